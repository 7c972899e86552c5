package usecases_test

import (
	"context"
	"errors"
	"sync"

	"github.com/samirrijal/stationmap/internal/core/domain"
)

// --- Mock StationRepository ---

type mockStationRepo struct {
	findInRegionFn  func(ctx context.Context, bounds domain.BoundingBox, limit int) ([]domain.Station, error)
	findNearPointFn func(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.Station, error)
	getByIDFn       func(ctx context.Context, id int64) (*domain.Station, error)
	insertFn        func(ctx context.Context, in domain.StationInput, submittedBy string) (*domain.Station, error)
}

func (m *mockStationRepo) FindInRegion(ctx context.Context, bounds domain.BoundingBox, limit int) ([]domain.Station, error) {
	if m.findInRegionFn != nil {
		return m.findInRegionFn(ctx, bounds, limit)
	}
	return nil, nil
}

func (m *mockStationRepo) FindNearPoint(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.Station, error) {
	if m.findNearPointFn != nil {
		return m.findNearPointFn(ctx, lat, lon, radius, limit)
	}
	return nil, nil
}

func (m *mockStationRepo) GetByID(ctx context.Context, id int64) (*domain.Station, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.NotFoundError{Resource: "station"}
}

func (m *mockStationRepo) Insert(ctx context.Context, in domain.StationInput, submittedBy string) (*domain.Station, error) {
	if m.insertFn != nil {
		return m.insertFn(ctx, in, submittedBy)
	}
	return nil, errors.New("insert not configured")
}

// --- Mock CacheService ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMockCache() *mockCache { return &mockCache{data: make(map[string][]byte)} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errors.New("miss")
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	published []*domain.Station
	err       error
}

func (m *mockPublisher) PublishStationCreated(ctx context.Context, st *domain.Station) error {
	m.published = append(m.published, st)
	return m.err
}

// --- Mock Geocoder ---

type mockGeocoder struct {
	reverseFn func(ctx context.Context, lat, lon float64) (*domain.LocationName, error)
	searchFn  func(ctx context.Context, text string) ([]domain.PlaceCandidate, error)
	detailsFn func(ctx context.Context, placeID string) (*domain.Place, error)
}

func (m *mockGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (*domain.LocationName, error) {
	if m.reverseFn != nil {
		return m.reverseFn(ctx, lat, lon)
	}
	return nil, nil
}

func (m *mockGeocoder) Search(ctx context.Context, text string) ([]domain.PlaceCandidate, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, text)
	}
	return nil, nil
}

func (m *mockGeocoder) Details(ctx context.Context, placeID string) (*domain.Place, error) {
	if m.detailsFn != nil {
		return m.detailsFn(ctx, placeID)
	}
	return nil, domain.NotFoundError{Resource: "place"}
}

// --- Mock Router ---

type mockRouter struct {
	routeFn func(ctx context.Context, startLat, startLon, destLat, destLon float64) (*domain.RouteResult, error)
}

func (m *mockRouter) Route(ctx context.Context, startLat, startLon, destLat, destLon float64) (*domain.RouteResult, error) {
	return m.routeFn(ctx, startLat, startLon, destLat, destLon)
}
