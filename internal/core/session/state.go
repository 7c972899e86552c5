package session

import (
	"github.com/samirrijal/stationmap/internal/core/domain"
)

// ViewState is everything one map screen displays. It is a value: every
// transition returns a new ViewState and leaves the receiver untouched.
type ViewState struct {
	Region      domain.GeoRegion
	HasRegion   bool
	Stations    domain.StationSet
	Filter      string
	Trip        domain.TripMode
	Destination *domain.GeoPoint
	Route       *domain.RouteOverlay
	Location    *domain.LocationName
}

// WithRegion replaces the current viewport.
func (s ViewState) WithRegion(r domain.GeoRegion) ViewState {
	s.Region = r
	s.HasRegion = true
	return s
}

// MergeStations folds a fetched batch into the cumulative station set.
func (s ViewState) MergeStations(batch []domain.Station) ViewState {
	s.Stations = s.Stations.Merge(batch)
	return s
}

// ResetStations empties the station set.
func (s ViewState) ResetStations() ViewState {
	s.Stations = nil
	return s
}

// WithFilter sets the name filter. The station set itself is not touched.
func (s ViewState) WithFilter(term string) ViewState {
	s.Filter = term
	return s
}

// WithLocation sets the reverse-geocoded name of the viewport center.
func (s ViewState) WithLocation(name *domain.LocationName) ViewState {
	s.Location = name
	return s
}

// BeginTrip moves Idle to Planning toward dest.
func (s ViewState) BeginTrip(dest domain.GeoPoint) (ViewState, error) {
	next, err := s.Trip.Find()
	if err != nil {
		return s, err
	}
	s.Trip = next
	s.Destination = &dest
	return s, nil
}

// CompleteTrip moves Planning to Active. Station browsing is suspended, so
// the station set is cleared and the overlay installed.
func (s ViewState) CompleteTrip(overlay *domain.RouteOverlay) (ViewState, error) {
	next, err := s.Trip.Succeed()
	if err != nil {
		return s, err
	}
	s.Trip = next
	s.Route = overlay
	s.Stations = nil
	return s, nil
}

// FailTrip moves Planning back to Idle without an overlay.
func (s ViewState) FailTrip() (ViewState, error) {
	next, err := s.Trip.Fail()
	if err != nil {
		return s, err
	}
	s.Trip = next
	s.Destination = nil
	s.Route = nil
	return s, nil
}

// CancelTrip leaves Planning or Active and removes the overlay.
func (s ViewState) CancelTrip() (ViewState, error) {
	next, err := s.Trip.Cancel()
	if err != nil {
		return s, err
	}
	s.Trip = next
	s.Destination = nil
	s.Route = nil
	return s, nil
}

// Visible returns the filtered stations ordered by ID.
func (s ViewState) Visible() []domain.Station {
	return s.Stations.Filter(s.Filter).Sorted()
}

// View is the rendered form of a ViewState sent to clients.
type View struct {
	Region      *domain.GeoRegion    `json:"region,omitempty"`
	Stations    []domain.Station     `json:"stations"`
	Total       int                  `json:"total"`
	Filter      string               `json:"filter,omitempty"`
	Trip        domain.TripMode      `json:"trip"`
	Destination *domain.GeoPoint     `json:"destination,omitempty"`
	Route       *domain.RouteOverlay `json:"route,omitempty"`
	Location    *domain.LocationName `json:"location,omitempty"`
}

// Render builds the client view.
func (s ViewState) Render() View {
	v := View{
		Stations:    s.Visible(),
		Total:       s.Stations.Len(),
		Filter:      s.Filter,
		Trip:        s.Trip,
		Destination: s.Destination,
		Route:       s.Route,
		Location:    s.Location,
	}
	if s.HasRegion {
		r := s.Region
		v.Region = &r
	}
	return v
}
