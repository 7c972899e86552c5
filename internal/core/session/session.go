// Package session keeps one map screen's view state consistent with a
// moving viewport and the trip-planning mode.
//
// Every state change is a closure posted to a single intake channel and run
// by the session goroutine, so ViewState needs no locks. Debounce timers and
// backend calls run elsewhere and post their results back to the intake.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samirrijal/stationmap/internal/core/domain"
	"github.com/samirrijal/stationmap/internal/core/ports"
	"github.com/samirrijal/stationmap/internal/pkg/geospatial"
	"github.com/samirrijal/stationmap/internal/pkg/metrics"
)

var (
	// ErrTripInProgress rejects a trip request while another one is planned or shown.
	ErrTripInProgress = errors.New("trip already in progress")
	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("session closed")
	// ErrBusy is returned by IngestStation when the intake is full.
	ErrBusy = errors.New("session busy")
)

// Notice codes sent to clients.
const (
	NoticeNetworkFailure   = "network_failure"
	NoticeNotFound         = "not_found"
	NoticeValidation       = "validation"
	NoticePermissionDenied = "permission_denied"
)

// Notice is a user-facing message about a failed operation.
type Notice struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StationFetcher loads the stations of a viewport.
type StationFetcher interface {
	FindInRegion(ctx context.Context, region domain.GeoRegion) ([]domain.Station, error)
}

// LocationResolver names the area around a point. A nil result means unknown.
type LocationResolver interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) *domain.LocationName
}

// TripPlanner builds a route overlay between two points.
type TripPlanner interface {
	Plan(ctx context.Context, origin, dest domain.GeoPoint) (*domain.RouteOverlay, error)
}

// Client is the screen a session drives. Methods are called from the
// session goroutine and must not call back into the session.
type Client interface {
	ports.MapCamera
	Render(View)
	Notify(Notice)
}

// Deps are the backend collaborators shared by all sessions. Places may be nil.
type Deps struct {
	Stations StationFetcher
	Places   LocationResolver
	Trips    TripPlanner
}

// Config tunes a session.
type Config struct {
	StationDebounce   time.Duration
	LocationDebounce  time.Duration
	FetchTimeout      time.Duration
	FallbackRegion    domain.GeoRegion
	LocateRadius      float64 // meters around the device position
	CenterZoom        float64
	CenterAnimationMs int
}

// DefaultConfig returns the production timings with a fallback on Bilbao.
func DefaultConfig() Config {
	return Config{
		StationDebounce:   400 * time.Millisecond,
		LocationDebounce:  500 * time.Millisecond,
		FetchTimeout:      15 * time.Second,
		FallbackRegion:    RegionAround(domain.GeoPoint{Lat: 43.2630, Lon: -2.9350}, 5000),
		LocateRadius:      5000,
		CenterZoom:        13,
		CenterAnimationMs: 1000,
	}
}

// RegionAround returns a square viewport of side 2*radiusMeters centred on p.
func RegionAround(p domain.GeoPoint, radiusMeters float64) domain.GeoRegion {
	latDelta, lonDelta := geospatial.Deltas(p.Lat, radiusMeters)
	return domain.GeoRegion{
		Latitude:       p.Lat,
		Longitude:      p.Lon,
		LatitudeDelta:  latDelta,
		LongitudeDelta: lonDelta,
	}
}

// Session is the controller of one map screen.
type Session struct {
	id     string
	cfg    Config
	deps   Deps
	client Client
	log    *slog.Logger

	events    chan func()
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	stationTimer  *Debouncer[domain.GeoRegion]
	locationTimer *Debouncer[domain.GeoRegion]
	locationSeq   atomic.Uint64

	// Owned by the run goroutine.
	state        ViewState
	stationEpoch uint64
	tripSeq      uint64
}

// New starts a session. Close must be called to release it.
func New(id string, cfg Config, deps Deps, client Client) *Session {
	s := &Session{
		id:      id,
		cfg:     cfg,
		deps:    deps,
		client:  client,
		log:     slog.With("session_id", id),
		events:  make(chan func(), 64),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	s.stationTimer = NewDebouncer(cfg.StationDebounce, func(r domain.GeoRegion) {
		s.post(func() { s.fetchStations(r) })
	})
	s.locationTimer = NewDebouncer(cfg.LocationDebounce, s.resolveLocation)

	go s.run()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

func (s *Session) run() {
	defer close(s.stopped)
	for {
		select {
		case ev := <-s.events:
			select {
			case <-s.done:
				return
			default:
			}
			ev()
		case <-s.done:
			return
		}
	}
}

// post hands ev to the run goroutine. It reports false once the session is closed.
func (s *Session) post(ev func()) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

// tryPost is post without waiting for room in the intake.
func (s *Session) tryPost(ev func()) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.events <- ev:
		return nil
	case <-s.done:
		return ErrClosed
	default:
		return ErrBusy
	}
}

// call runs fn on the run goroutine and waits for its result.
func (s *Session) call(fn func() error) error {
	reply := make(chan error, 1)
	if !s.post(func() { reply <- fn() }) {
		return ErrClosed
	}
	select {
	case err := <-reply:
		return err
	case <-s.done:
		return ErrClosed
	}
}

// UpdateRegion reports a viewport change. Station and location refreshes
// are debounced independently; only the latest region of a burst is used.
func (s *Session) UpdateRegion(r domain.GeoRegion) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if !s.post(func() { s.applyRegion(r) }) {
		return ErrClosed
	}
	return nil
}

// SetFilter narrows the displayed stations by name.
func (s *Session) SetFilter(term string) error {
	if !s.post(func() {
		s.state = s.state.WithFilter(term)
		s.render()
	}) {
		return ErrClosed
	}
	return nil
}

// Refresh empties the station set and refetches the current viewport now.
func (s *Session) Refresh() error {
	return s.call(func() error {
		s.stationTimer.Cancel()
		s.state = s.state.ResetStations()
		s.stationEpoch++
		s.render()
		if s.state.HasRegion {
			s.fetchStations(s.state.Region)
		}
		return nil
	})
}

// FindTrip starts planning a route from origin to dest. Only one trip may
// be planned or shown at a time.
func (s *Session) FindTrip(origin, dest domain.GeoPoint) error {
	if !origin.Valid() {
		return domain.ValidationError{Field: "origin", Msg: "must be a valid coordinate"}
	}
	if !dest.Valid() {
		return domain.ValidationError{Field: "destination", Msg: "must be a valid coordinate"}
	}
	return s.call(func() error { return s.beginTrip(origin, dest) })
}

// CancelTrip leaves trip mode and refetches stations for the last viewport.
func (s *Session) CancelTrip() error {
	return s.call(s.cancelTrip)
}

// Locate centres the map on the device position. A non-nil err (typically
// domain.ErrPermissionDenied) falls back to the configured region. An
// invalid position with a nil err is rejected and leaves the map alone.
func (s *Session) Locate(p domain.GeoPoint, err error) error {
	if err == nil && !p.Valid() {
		return domain.ValidationError{Field: "location", Msg: "must be a valid coordinate"}
	}
	region := s.cfg.FallbackRegion
	if err == nil {
		region = RegionAround(p, s.cfg.LocateRadius)
	}
	if !s.post(func() {
		if err != nil {
			s.log.Info("location unavailable, using fallback region", "error", err)
			s.client.Notify(Notice{Code: NoticePermissionDenied, Message: "Location unavailable, showing default area"})
		}
		s.client.SetCenter(region.Longitude, region.Latitude, s.cfg.CenterZoom, s.cfg.CenterAnimationMs)
		s.applyRegion(region)
	}) {
		return ErrClosed
	}
	return nil
}

// LocationDenied is Locate for a refused location permission.
func (s *Session) LocationDenied() error {
	return s.Locate(domain.GeoPoint{}, domain.ErrPermissionDenied)
}

// IngestStation merges a station pushed from the event bus when it lies in
// the current viewport and no trip is shown. It never waits: when the
// intake is full the station is dropped and ErrBusy returned.
func (s *Session) IngestStation(st domain.Station) error {
	err := s.tryPost(func() {
		if s.state.Trip != domain.TripIdle || !s.state.HasRegion {
			return
		}
		if !s.state.Region.Bounds().Contains(st.Location.Lat, st.Location.Lon) {
			return
		}
		s.state = s.state.MergeStations([]domain.Station{st})
		s.render()
	})
	if errors.Is(err, ErrBusy) {
		metrics.IngestDropped.Inc()
		s.log.Warn("session intake full, dropping bus station", "station_id", st.ID)
	}
	return err
}

// Snapshot returns the current view.
func (s *Session) Snapshot() (View, error) {
	var v View
	err := s.call(func() error {
		v = s.state.Render()
		return nil
	})
	return v, err
}

// Close stops timers and the run goroutine. Backend calls still in flight
// finish on their own and their results are discarded.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.stationTimer.Cancel()
		s.locationTimer.Cancel()
		<-s.stopped
	})
}

func (s *Session) applyRegion(r domain.GeoRegion) {
	metrics.RegionUpdates.Inc()
	s.state = s.state.WithRegion(r)
	if s.state.Trip == domain.TripIdle {
		s.stationTimer.Push(r)
	}
	if s.deps.Places != nil {
		s.locationTimer.Push(r)
	}
}

// fetchStations issues a backend query for r. Runs on the run goroutine.
func (s *Session) fetchStations(r domain.GeoRegion) {
	if s.state.Trip != domain.TripIdle {
		metrics.StationFetches.WithLabelValues("dropped").Inc()
		return
	}
	epoch := s.stationEpoch
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FetchTimeout)
		defer cancel()
		stations, err := s.deps.Stations.FindInRegion(ctx, r)
		s.post(func() { s.applyStations(epoch, stations, err) })
	}()
}

func (s *Session) applyStations(epoch uint64, stations []domain.Station, err error) {
	if epoch != s.stationEpoch || s.state.Trip != domain.TripIdle {
		metrics.StationFetches.WithLabelValues("dropped").Inc()
		return
	}
	if err != nil {
		metrics.StationFetches.WithLabelValues("error").Inc()
		s.log.Warn("station fetch failed", "error", err)
		s.client.Notify(noticeFor(err, "Could not load stations"))
		return
	}
	metrics.StationFetches.WithLabelValues("ok").Inc()
	s.state = s.state.MergeStations(stations)
	s.render()
}

// resolveLocation runs on the debouncer goroutine. Only the most recently
// started lookup may update the name.
func (s *Session) resolveLocation(r domain.GeoRegion) {
	seq := s.locationSeq.Add(1)
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FetchTimeout)
	defer cancel()
	name := s.deps.Places.ReverseGeocode(ctx, r.Latitude, r.Longitude)
	if name == nil {
		return
	}
	s.post(func() {
		if seq != s.locationSeq.Load() {
			return
		}
		s.state = s.state.WithLocation(name)
		s.render()
	})
}

func (s *Session) beginTrip(origin, dest domain.GeoPoint) error {
	next, err := s.state.BeginTrip(dest)
	if err != nil {
		metrics.TripRequests.WithLabelValues("rejected").Inc()
		return fmt.Errorf("%w: trip is %s", ErrTripInProgress, s.state.Trip)
	}
	s.stationTimer.Cancel()
	s.state = next
	s.tripSeq++
	seq := s.tripSeq
	s.render()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FetchTimeout)
		defer cancel()
		overlay, err := s.deps.Trips.Plan(ctx, origin, dest)
		s.post(func() { s.finishTrip(seq, overlay, err) })
	}()
	return nil
}

func (s *Session) finishTrip(seq uint64, overlay *domain.RouteOverlay, err error) {
	// Cancelled or superseded while the route was computed.
	if seq != s.tripSeq || s.state.Trip != domain.TripPlanning {
		return
	}
	if err != nil {
		next, ferr := s.state.FailTrip()
		if ferr != nil {
			s.log.Error("fail trip", "error", ferr)
			return
		}
		s.state = next
		s.log.Warn("route planning failed", "error", err)
		s.client.Notify(noticeFor(err, "Could not find a route"))
		s.render()
		s.refetch()
		return
	}

	next, err := s.state.CompleteTrip(overlay)
	if err != nil {
		s.log.Error("complete trip", "error", err)
		return
	}
	s.state = next
	s.stationEpoch++
	s.client.FitBounds(overlay.Bounds, domain.RouteCameraPadding, domain.RouteCameraAnimationMs)
	s.render()
}

func (s *Session) cancelTrip() error {
	next, err := s.state.CancelTrip()
	if err != nil {
		return err
	}
	s.state = next
	s.tripSeq++
	s.render()
	s.refetch()
	return nil
}

// refetch replaces a pending debounced fetch with an immediate one for the
// last known region.
func (s *Session) refetch() {
	s.stationTimer.Cancel()
	if s.state.HasRegion {
		s.fetchStations(s.state.Region)
	}
}

func (s *Session) render() {
	s.client.Render(s.state.Render())
}

func noticeFor(err error, fallback string) Notice {
	switch {
	case domain.IsNotFound(err):
		return Notice{Code: NoticeNotFound, Message: err.Error()}
	case domain.IsValidation(err):
		return Notice{Code: NoticeValidation, Message: err.Error()}
	default:
		return Notice{Code: NoticeNetworkFailure, Message: fallback}
	}
}
