package ports

import (
	"context"

	"github.com/samirrijal/stationmap/internal/core/domain"
)

// Geocoder resolves coordinates to names and free text to places.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (*domain.LocationName, error)
	Search(ctx context.Context, text string) ([]domain.PlaceCandidate, error)
	Details(ctx context.Context, placeID string) (*domain.Place, error)
}

// Router computes a driving route. It fails with a domain.NotFoundError
// when the routing service has no route between the points.
type Router interface {
	Route(ctx context.Context, startLat, startLon, destLat, destLon float64) (*domain.RouteResult, error)
}

// MapCamera drives the client's map camera. Calls are fire-and-forget.
type MapCamera interface {
	SetCenter(lon, lat, zoom float64, animationMs int)
	FitBounds(bounds domain.BoundingBox, padding domain.CameraPadding, animationMs int)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishStationCreated(ctx context.Context, st *domain.Station) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeStationCreated(ctx context.Context, handler func(ctx context.Context, st *domain.Station) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
