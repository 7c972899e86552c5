package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samirrijal/stationmap/internal/core/domain"
	"github.com/samirrijal/stationmap/internal/core/ports"
)

// PlaceService wraps the geocoder for place search and reverse lookups.
type PlaceService struct {
	geocoder ports.Geocoder
}

// NewPlaceService creates a new PlaceService.
func NewPlaceService(geocoder ports.Geocoder) *PlaceService {
	return &PlaceService{geocoder: geocoder}
}

// Search returns place suggestions for free text.
func (s *PlaceService) Search(ctx context.Context, text string) ([]domain.PlaceCandidate, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ValidationError{Field: "q", Msg: "search text must not be empty"}
	}
	candidates, err := s.geocoder.Search(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("place search: %w", err)
	}
	if len(candidates) == 0 {
		return nil, domain.NotFoundError{Resource: "place"}
	}
	return candidates, nil
}

// Details resolves a candidate to its coordinates.
func (s *PlaceService) Details(ctx context.Context, placeID string) (*domain.Place, error) {
	if strings.TrimSpace(placeID) == "" {
		return nil, domain.ValidationError{Field: "place_id", Msg: "is required"}
	}
	return s.geocoder.Details(ctx, placeID)
}

// ReverseGeocode names the area around a point. It is best effort: failures
// are logged and reported as a nil result.
func (s *PlaceService) ReverseGeocode(ctx context.Context, lat, lon float64) *domain.LocationName {
	name, err := s.geocoder.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		slog.WarnContext(ctx, "reverse geocode failed", "lat", lat, "lon", lon, "error", err)
		return nil
	}
	return name
}
