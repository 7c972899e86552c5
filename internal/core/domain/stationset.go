package domain

import (
	"sort"
	"strings"
)

// StationSet maps Station.ID to Station. It holds at most one entry per ID.
// Values are treated as immutable: Merge and Filter return new sets.
type StationSet map[int64]Station

// NewStationSet builds a set from stations; later duplicates win.
func NewStationSet(stations ...Station) StationSet {
	return StationSet(nil).Merge(stations)
}

// Merge inserts or overwrites every station of batch by ID and keeps the
// entries batch does not mention. The set is cumulative across viewport pans.
// Completions applied out of order resolve to last-applied-wins per ID.
func (s StationSet) Merge(batch []Station) StationSet {
	if len(batch) == 0 {
		return s
	}
	out := make(StationSet, len(s)+len(batch))
	for id, st := range s {
		out[id] = st
	}
	for _, st := range batch {
		out[st.ID] = st
	}
	return out
}

// Filter narrows the set to stations whose name contains term, ignoring
// case. An empty or blank term returns the receiver itself.
func (s StationSet) Filter(term string) StationSet {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return s
	}
	out := make(StationSet)
	for id, st := range s {
		if strings.Contains(strings.ToLower(st.Name), needle) {
			out[id] = st
		}
	}
	return out
}

// Sorted returns the stations ordered by ID.
func (s StationSet) Sorted() []Station {
	out := make([]Station, 0, len(s))
	for _, st := range s {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of stations.
func (s StationSet) Len() int { return len(s) }
