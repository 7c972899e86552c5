package ports

import (
	"context"

	"github.com/samirrijal/stationmap/internal/core/domain"
)

// StationRepository persists stations.
type StationRepository interface {
	// FindInRegion returns the stations inside bounds, at most limit rows.
	FindInRegion(ctx context.Context, bounds domain.BoundingBox, limit int) ([]domain.Station, error)
	// FindNearPoint returns stations within radiusMeters of the point.
	FindNearPoint(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Station, error)
	GetByID(ctx context.Context, id int64) (*domain.Station, error)
	// Insert stores a new station and returns it with ID and CreatedAt set.
	Insert(ctx context.Context, in domain.StationInput, submittedBy string) (*domain.Station, error)
}
