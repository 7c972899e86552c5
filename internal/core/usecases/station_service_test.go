package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/stationmap/internal/core/domain"
	"github.com/samirrijal/stationmap/internal/core/usecases"
)

var bilbao = domain.GeoRegion{Latitude: 43.263, Longitude: -2.935, LatitudeDelta: 0.05, LongitudeDelta: 0.05}

func TestStationService_FindInRegion(t *testing.T) {
	var gotBounds domain.BoundingBox
	repo := &mockStationRepo{
		findInRegionFn: func(ctx context.Context, bounds domain.BoundingBox, limit int) ([]domain.Station, error) {
			gotBounds = bounds
			if limit != 500 {
				t.Errorf("expected default limit 500, got %d", limit)
			}
			return []domain.Station{{ID: 1, Name: "Repsol Deusto"}}, nil
		},
	}

	svc := usecases.NewStationService(repo, nil, nil)
	stations, err := svc.FindInRegion(context.Background(), bilbao)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stations) != 1 {
		t.Fatalf("expected 1 station, got %d", len(stations))
	}
	if !gotBounds.Contains(43.263, -2.935) {
		t.Errorf("bounds %+v should contain the region center", gotBounds)
	}
}

func TestStationService_FindInRegion_InvalidRegion(t *testing.T) {
	called := false
	repo := &mockStationRepo{
		findInRegionFn: func(ctx context.Context, bounds domain.BoundingBox, limit int) ([]domain.Station, error) {
			called = true
			return nil, nil
		},
	}
	svc := usecases.NewStationService(repo, nil, nil)

	_, err := svc.FindInRegion(context.Background(), domain.GeoRegion{Latitude: 43, Longitude: -2})
	if !domain.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	if called {
		t.Error("repo must not be called for an invalid region")
	}
}

func TestStationService_FindInRegion_UsesCache(t *testing.T) {
	calls := 0
	repo := &mockStationRepo{
		findInRegionFn: func(ctx context.Context, bounds domain.BoundingBox, limit int) ([]domain.Station, error) {
			calls++
			return []domain.Station{{ID: 7, Name: "BP Zorrozaurre"}}, nil
		},
	}
	svc := usecases.NewStationService(repo, newMockCache(), nil)

	for i := 0; i < 3; i++ {
		stations, err := svc.FindInRegion(context.Background(), bilbao)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(stations) != 1 || stations[0].ID != 7 {
			t.Fatalf("unexpected stations %+v", stations)
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 repo call, got %d", calls)
	}
}

func TestStationService_FindInRegion_RepoError(t *testing.T) {
	repo := &mockStationRepo{
		findInRegionFn: func(ctx context.Context, bounds domain.BoundingBox, limit int) ([]domain.Station, error) {
			return nil, domain.NetworkError{Op: "query", Err: errors.New("connection reset")}
		},
	}
	svc := usecases.NewStationService(repo, nil, nil)

	_, err := svc.FindInRegion(context.Background(), bilbao)
	if !domain.IsNetwork(err) {
		t.Errorf("expected network error to propagate, got %v", err)
	}
}

func TestStationService_FindNearPoint_SortedByDistance(t *testing.T) {
	repo := &mockStationRepo{
		findNearPointFn: func(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.Station, error) {
			if limit != 50 {
				t.Errorf("expected limit clamped to 50, got %d", limit)
			}
			return []domain.Station{
				{ID: 1, Name: "Far", Location: domain.GeoPoint{Lat: 43.280, Lon: -2.935}},
				{ID: 2, Name: "Near", Location: domain.GeoPoint{Lat: 43.2635, Lon: -2.935}},
			}, nil
		},
	}
	svc := usecases.NewStationService(repo, nil, nil)

	stations, err := svc.FindNearPoint(context.Background(), 43.263, -2.935, 5000, 999)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stations[0].Name != "Near" {
		t.Errorf("expected Near first, got %s", stations[0].Name)
	}
	for _, st := range stations {
		if st.Distance == nil {
			t.Fatalf("station %d has no distance", st.ID)
		}
	}
	if *stations[0].Distance > *stations[1].Distance {
		t.Error("stations not sorted by distance")
	}
}

func TestStationService_FindNearPoint_RadiusBounds(t *testing.T) {
	svc := usecases.NewStationService(&mockStationRepo{}, nil, nil)
	for _, r := range []float64{0, -5, 10001} {
		if _, err := svc.FindNearPoint(context.Background(), 43, -2, r, 10); !domain.IsValidation(err) {
			t.Errorf("radius %v: expected validation error, got %v", r, err)
		}
	}
}

func TestStationService_GetByID_NotFound(t *testing.T) {
	svc := usecases.NewStationService(&mockStationRepo{}, nil, nil)
	_, err := svc.GetByID(context.Background(), 42)
	if !domain.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestStationService_Submit(t *testing.T) {
	pub := &mockPublisher{}
	repo := &mockStationRepo{
		insertFn: func(ctx context.Context, in domain.StationInput, submittedBy string) (*domain.Station, error) {
			if submittedBy != "user-1" {
				t.Errorf("expected submitter user-1, got %s", submittedBy)
			}
			if in.Name != "Galp Indautxu" {
				t.Errorf("expected trimmed name, got %q", in.Name)
			}
			return &domain.Station{ID: 99, Name: in.Name, Location: in.Location}, nil
		},
	}
	svc := usecases.NewStationService(repo, nil, pub)

	st, err := svc.Submit(context.Background(), "user-1", domain.StationInput{
		Name:     "  Galp Indautxu ",
		Location: domain.GeoPoint{Lat: 43.26, Lon: -2.94},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.ID != 99 {
		t.Errorf("expected id 99, got %d", st.ID)
	}
	if len(pub.published) != 1 || pub.published[0].ID != 99 {
		t.Errorf("expected one station.created event, got %+v", pub.published)
	}
}

func TestStationService_Submit_PublishFailureIgnored(t *testing.T) {
	pub := &mockPublisher{err: errors.New("nats down")}
	repo := &mockStationRepo{
		insertFn: func(ctx context.Context, in domain.StationInput, submittedBy string) (*domain.Station, error) {
			return &domain.Station{ID: 5, Name: in.Name}, nil
		},
	}
	svc := usecases.NewStationService(repo, nil, pub)

	if _, err := svc.Submit(context.Background(), "u", domain.StationInput{
		Name: "Shell", Location: domain.GeoPoint{Lat: 1, Lon: 1},
	}); err != nil {
		t.Errorf("publish failure must not fail the submission: %v", err)
	}
}

func TestStationService_Submit_RejectsBeforeInsert(t *testing.T) {
	called := false
	repo := &mockStationRepo{
		insertFn: func(ctx context.Context, in domain.StationInput, submittedBy string) (*domain.Station, error) {
			called = true
			return nil, nil
		},
	}
	svc := usecases.NewStationService(repo, nil, nil)
	valid := domain.StationInput{Name: "Shell", Location: domain.GeoPoint{Lat: 1, Lon: 1}}

	if _, err := svc.Submit(context.Background(), "", valid); !domain.IsAuthRequired(err) {
		t.Errorf("expected auth required, got %v", err)
	}
	if _, err := svc.Submit(context.Background(), "u", domain.StationInput{Location: valid.Location}); !domain.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	if called {
		t.Error("insert must not be called for rejected submissions")
	}
}

func TestStationService_Clusters(t *testing.T) {
	repo := &mockStationRepo{
		findInRegionFn: func(ctx context.Context, bounds domain.BoundingBox, limit int) ([]domain.Station, error) {
			return []domain.Station{
				{ID: 1, Location: domain.GeoPoint{Lat: 43.2609, Lon: -2.9265}},
				{ID: 2, Location: domain.GeoPoint{Lat: 43.2626, Lon: -2.9346}},
				{ID: 3, Location: domain.GeoPoint{Lat: 40.4168, Lon: -3.7038}},
			}, nil
		},
	}
	svc := usecases.NewStationService(repo, nil, nil)
	wide := domain.GeoRegion{Latitude: 42, Longitude: -3, LatitudeDelta: 6, LongitudeDelta: 6}

	clusters, err := svc.Clusters(context.Background(), wide, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	if clusters[0].Count != 2 || clusters[1].Count != 1 {
		t.Errorf("expected counts [2 1], got [%d %d]", clusters[0].Count, clusters[1].Count)
	}
	if clusters[0].Level != 6 || clusters[0].CellID == "" {
		t.Errorf("unexpected cluster %+v", clusters[0])
	}

	if _, err := svc.Clusters(context.Background(), wide, 31); !domain.IsValidation(err) {
		t.Errorf("expected validation error for level 31, got %v", err)
	}
}
