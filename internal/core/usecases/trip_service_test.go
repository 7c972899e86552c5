package usecases_test

import (
	"context"
	"testing"

	"github.com/samirrijal/stationmap/internal/core/domain"
	"github.com/samirrijal/stationmap/internal/core/usecases"
)

func TestTripService_Plan(t *testing.T) {
	router := &mockRouter{
		routeFn: func(ctx context.Context, startLat, startLon, destLat, destLon float64) (*domain.RouteResult, error) {
			if startLat != 43.26 || destLon != -2.90 {
				t.Errorf("unexpected route args %v %v %v %v", startLat, startLon, destLat, destLon)
			}
			return &domain.RouteResult{
				Coordinates:     [][2]float64{{-2.93, 43.26}, {-2.91, 43.27}, {-2.90, 43.25}},
				DistanceMeters:  12345,
				DurationSeconds: 125,
			}, nil
		},
	}
	svc := usecases.NewTripService(router)

	overlay, err := svc.Plan(context.Background(),
		domain.GeoPoint{Lat: 43.26, Lon: -2.93},
		domain.GeoPoint{Lat: 43.25, Lon: -2.90},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if overlay.Distance != "12.3 km" || overlay.Duration != "2 min" {
		t.Errorf("unexpected summary %q %q", overlay.Distance, overlay.Duration)
	}
	if overlay.Bounds.SouthwestLat != 43.25 || overlay.Bounds.NortheastLat != 43.27 {
		t.Errorf("unexpected bounds %+v", overlay.Bounds)
	}
}

func TestTripService_Plan_NoRoute(t *testing.T) {
	router := &mockRouter{
		routeFn: func(ctx context.Context, startLat, startLon, destLat, destLon float64) (*domain.RouteResult, error) {
			return nil, domain.NotFoundError{Resource: "route"}
		},
	}
	svc := usecases.NewTripService(router)

	_, err := svc.Plan(context.Background(), domain.GeoPoint{Lat: 1, Lon: 1}, domain.GeoPoint{Lat: 2, Lon: 2})
	if !domain.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestTripService_Plan_DegenerateRoute(t *testing.T) {
	router := &mockRouter{
		routeFn: func(ctx context.Context, startLat, startLon, destLat, destLon float64) (*domain.RouteResult, error) {
			return &domain.RouteResult{Coordinates: [][2]float64{{1, 1}}}, nil
		},
	}
	svc := usecases.NewTripService(router)

	_, err := svc.Plan(context.Background(), domain.GeoPoint{Lat: 1, Lon: 1}, domain.GeoPoint{Lat: 2, Lon: 2})
	if !domain.IsValidation(err) {
		t.Errorf("expected validation error for single-point route, got %v", err)
	}
}

func TestTripService_Plan_InvalidDestination(t *testing.T) {
	svc := usecases.NewTripService(&mockRouter{})
	_, err := svc.Plan(context.Background(), domain.GeoPoint{Lat: 1, Lon: 1}, domain.GeoPoint{Lat: 91, Lon: 0})
	if !domain.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}
