package domain

import (
	"fmt"
	"math"
)

// Camera fit applied when a route overlay is shown.
const RouteCameraAnimationMs = 1000

// RouteCameraPadding leaves room for the trip panel at the bottom.
var RouteCameraPadding = CameraPadding{Top: 50, Right: 50, Bottom: 150, Left: 50}

// CameraPadding is the edge clearance used when fitting bounds.
type CameraPadding struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// RoutePath is an ordered [lon, lat] sequence with at least two points.
type RoutePath [][2]float64

// RouteOverlay is a displayable route: the line, its fitted bounds and the
// formatted trip summary.
type RouteOverlay struct {
	Path            RoutePath   `json:"path"`
	Bounds          BoundingBox `json:"bounds"`
	DistanceMeters  float64     `json:"distance_meters"`
	DurationSeconds float64     `json:"duration_seconds"`
	Distance        string      `json:"distance"`
	Duration        string      `json:"duration"`
}

// BuildRoute copies coords into a RoutePath and computes its bounds in a
// single scan seeded with the first coordinate.
func BuildRoute(coords [][2]float64) (RoutePath, BoundingBox, error) {
	if len(coords) < 2 {
		return nil, BoundingBox{}, ValidationError{
			Field: "coordinates",
			Msg:   fmt.Sprintf("route needs at least 2 points, got %d", len(coords)),
		}
	}

	path := make(RoutePath, len(coords))
	var bb BoundingBox
	for i, c := range coords {
		lon, lat := c[0], c[1]
		if !finite(lon) || !finite(lat) {
			return nil, BoundingBox{}, ValidationError{
				Field: "coordinates",
				Msg:   fmt.Sprintf("non-finite coordinate at index %d", i),
			}
		}
		path[i] = c
		if i == 0 {
			bb = BoundingBox{SouthwestLon: lon, SouthwestLat: lat, NortheastLon: lon, NortheastLat: lat}
			continue
		}
		bb.SouthwestLon = math.Min(bb.SouthwestLon, lon)
		bb.NortheastLon = math.Max(bb.NortheastLon, lon)
		bb.SouthwestLat = math.Min(bb.SouthwestLat, lat)
		bb.NortheastLat = math.Max(bb.NortheastLat, lat)
	}
	return path, bb, nil
}

// NewRouteOverlay builds the overlay for a routing-service result.
func NewRouteOverlay(res RouteResult) (*RouteOverlay, error) {
	path, bounds, err := BuildRoute(res.Coordinates)
	if err != nil {
		return nil, err
	}
	return &RouteOverlay{
		Path:            path,
		Bounds:          bounds,
		DistanceMeters:  res.DistanceMeters,
		DurationSeconds: res.DurationSeconds,
		Distance:        FormatDistance(res.DistanceMeters),
		Duration:        FormatDuration(res.DurationSeconds),
	}, nil
}

// FormatDistance renders meters as kilometers with one decimal, e.g. "12.3 km".
func FormatDistance(meters float64) string {
	return fmt.Sprintf("%.1f km", meters/1000)
}

// FormatDuration renders seconds as whole minutes, e.g. "2 min".
func FormatDuration(seconds float64) string {
	return fmt.Sprintf("%d min", int64(math.Round(seconds/60)))
}
