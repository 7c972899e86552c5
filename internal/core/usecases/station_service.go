package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/stationmap/internal/core/domain"
	"github.com/samirrijal/stationmap/internal/core/ports"
	"github.com/samirrijal/stationmap/internal/pkg/geospatial"
	"github.com/samirrijal/stationmap/internal/pkg/metrics"
	"github.com/samirrijal/stationmap/internal/pkg/telemetry"
)

const (
	defaultRegionLimit = 500
	maxNearbyLimit     = 50
	maxNearbyRadius    = 10000.0
	regionCacheTTL     = 60
	stationCacheTTL    = 600
)

// StationService handles station queries and submissions.
type StationService struct {
	stations  ports.StationRepository
	cache     ports.CacheService
	publisher ports.EventPublisher
	limit     int
}

// NewStationService creates a new StationService. cache and publisher may be nil.
func NewStationService(stations ports.StationRepository, cache ports.CacheService, publisher ports.EventPublisher) *StationService {
	return &StationService{stations: stations, cache: cache, publisher: publisher, limit: defaultRegionLimit}
}

// WithLimit caps the number of stations returned per region query.
func (s *StationService) WithLimit(limit int) *StationService {
	if limit > 0 {
		s.limit = limit
	}
	return s
}

// FindInRegion returns the stations inside the viewport.
func (s *StationService) FindInRegion(ctx context.Context, region domain.GeoRegion) ([]domain.Station, error) {
	if err := region.Validate(); err != nil {
		return nil, err
	}
	ctx, span := telemetry.Tracer("usecases").Start(ctx, "StationService.FindInRegion")
	defer span.End()

	bounds := region.Bounds()
	cacheKey := fmt.Sprintf("stations:region:%.4f:%.4f:%.4f:%.4f:%d",
		bounds.SouthwestLon, bounds.SouthwestLat, bounds.NortheastLon, bounds.NortheastLat, s.limit)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var stations []domain.Station
			if err := json.Unmarshal(data, &stations); err == nil {
				metrics.CacheHits.WithLabelValues("stations_region").Inc()
				span.SetAttributes(attribute.Bool("cache.hit", true))
				return stations, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("stations_region").Inc()
	}

	stations, err := s.stations.FindInRegion(ctx, bounds, s.limit)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("find stations in region: %w", err)
	}
	span.SetAttributes(attribute.Int("stations.count", len(stations)))

	// Short TTL: submissions show up within a minute.
	if s.cache != nil {
		if data, err := json.Marshal(stations); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, regionCacheTTL)
		}
	}

	return stations, nil
}

// FindNearPoint returns stations within radiusMeters of the point, nearest first.
func (s *StationService) FindNearPoint(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Station, error) {
	if !(domain.GeoPoint{Lat: lat, Lon: lon}).Valid() {
		return nil, domain.ValidationError{Field: "location", Msg: "must be a valid coordinate"}
	}
	if radiusMeters <= 0 || radiusMeters > maxNearbyRadius {
		return nil, domain.ValidationError{Field: "radius", Msg: fmt.Sprintf("must be in (0, %.0f]", maxNearbyRadius)}
	}
	if limit <= 0 || limit > maxNearbyLimit {
		limit = maxNearbyLimit
	}

	stations, err := s.stations.FindNearPoint(ctx, lat, lon, radiusMeters, limit)
	if err != nil {
		return nil, fmt.Errorf("find stations near point: %w", err)
	}

	for i := range stations {
		d := geospatial.Haversine(lat, lon, stations[i].Location.Lat, stations[i].Location.Lon)
		stations[i].Distance = &d
	}
	sort.SliceStable(stations, func(i, j int) bool {
		return *stations[i].Distance < *stations[j].Distance
	})
	return stations, nil
}

// GetByID returns a single station.
func (s *StationService) GetByID(ctx context.Context, id int64) (*domain.Station, error) {
	cacheKey := fmt.Sprintf("stations:id:%d", id)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var st domain.Station
			if err := json.Unmarshal(data, &st); err == nil {
				return &st, nil
			}
		}
	}

	st, err := s.stations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(st); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, stationCacheTTL)
		}
	}
	return st, nil
}

// Submit stores a user-submitted station. The identity check and input
// validation both happen before any backend call.
func (s *StationService) Submit(ctx context.Context, userID string, in domain.StationInput) (*domain.Station, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrAuthRequired
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)

	st, err := s.stations.Insert(ctx, in, userID)
	if err != nil {
		return nil, fmt.Errorf("insert station: %w", err)
	}
	metrics.StationsSubmitted.Inc()

	if s.publisher != nil {
		if err := s.publisher.PublishStationCreated(ctx, st); err != nil {
			slog.WarnContext(ctx, "publish station created", "station_id", st.ID, "error", err)
		}
	}
	return st, nil
}

// Clusters groups the stations of the viewport into S2 cells. A level of 0
// picks one from the viewport height.
func (s *StationService) Clusters(ctx context.Context, region domain.GeoRegion, level int) ([]domain.StationCluster, error) {
	if level < 0 || level > geospatial.MaxClusterLevel {
		return nil, domain.ValidationError{Field: "level", Msg: fmt.Sprintf("must be in [0, %d]", geospatial.MaxClusterLevel)}
	}
	stations, err := s.FindInRegion(ctx, region)
	if err != nil {
		return nil, err
	}
	if level == 0 {
		level = geospatial.ClusterLevel(region.LatitudeDelta)
	}

	byCell := make(map[uint64]*domain.StationCluster)
	var order []uint64
	for _, st := range stations {
		id := geospatial.CellID(st.Location.Lat, st.Location.Lon, level)
		c, ok := byCell[uint64(id)]
		if !ok {
			lat, lon := geospatial.CellCenter(id)
			c = &domain.StationCluster{
				CellID: id.ToToken(),
				Level:  level,
				Center: domain.GeoPoint{Lat: lat, Lon: lon},
			}
			byCell[uint64(id)] = c
			order = append(order, uint64(id))
		}
		c.Count++
	}

	out := make([]domain.StationCluster, 0, len(order))
	for _, id := range order {
		out = append(out, *byCell[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out, nil
}
