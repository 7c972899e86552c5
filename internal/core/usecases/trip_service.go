package usecases

import (
	"context"
	"time"

	"github.com/samirrijal/stationmap/internal/core/domain"
	"github.com/samirrijal/stationmap/internal/core/ports"
	"github.com/samirrijal/stationmap/internal/pkg/metrics"
)

// TripService plans driving routes.
type TripService struct {
	router ports.Router
}

// NewTripService creates a new TripService.
func NewTripService(router ports.Router) *TripService {
	return &TripService{router: router}
}

// Plan asks the router for a route and turns it into a displayable overlay.
func (s *TripService) Plan(ctx context.Context, origin, dest domain.GeoPoint) (*domain.RouteOverlay, error) {
	if !origin.Valid() {
		return nil, domain.ValidationError{Field: "origin", Msg: "must be a valid coordinate"}
	}
	if !dest.Valid() {
		return nil, domain.ValidationError{Field: "destination", Msg: "must be a valid coordinate"}
	}

	start := time.Now()
	res, err := s.router.Route(ctx, origin.Lat, origin.Lon, dest.Lat, dest.Lon)
	metrics.RoutingDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if domain.IsNotFound(err) {
			metrics.TripRequests.WithLabelValues("not_found").Inc()
		} else {
			metrics.TripRequests.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	overlay, err := domain.NewRouteOverlay(*res)
	if err != nil {
		metrics.TripRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.TripRequests.WithLabelValues("ok").Inc()
	return overlay, nil
}
