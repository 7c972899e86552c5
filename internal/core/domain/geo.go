package domain

import (
	"math"

	"github.com/golang/geo/s2"
)

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point is finite and inside the WGS 84 range.
func (p GeoPoint) Valid() bool {
	return finite(p.Lat) && finite(p.Lon) &&
		p.Lat >= -90 && p.Lat <= 90 &&
		p.Lon >= -180 && p.Lon <= 180
}

// GeoRegion is a map viewport: a center plus angular extents in degrees.
// A new value replaces the old one on every viewport change.
type GeoRegion struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	LatitudeDelta  float64 `json:"latitude_delta"`
	LongitudeDelta float64 `json:"longitude_delta"`
}

// Validate checks that all fields are finite and both deltas are positive.
func (r GeoRegion) Validate() error {
	if !finite(r.Latitude) || !finite(r.Longitude) || !finite(r.LatitudeDelta) || !finite(r.LongitudeDelta) {
		return ValidationError{Field: "region", Msg: "coordinates must be finite"}
	}
	if r.LatitudeDelta <= 0 || r.LongitudeDelta <= 0 {
		return ValidationError{Field: "region", Msg: "latitude_delta and longitude_delta must be positive"}
	}
	if !r.Center().Valid() {
		return ValidationError{Field: "region", Msg: "center out of range"}
	}
	return nil
}

// Center returns the viewport center.
func (r GeoRegion) Center() GeoPoint {
	return GeoPoint{Lat: r.Latitude, Lon: r.Longitude}
}

// Bounds returns the rectangle covered by the viewport. Latitudes are clamped
// at the poles; a viewport crossing the antimeridian covers every longitude.
func (r GeoRegion) Bounds() BoundingBox {
	center := s2.LatLngFromDegrees(r.Latitude, r.Longitude)
	size := s2.LatLngFromDegrees(r.LatitudeDelta, r.LongitudeDelta)
	rect := s2.RectFromCenterSize(center, size)

	lo, hi := rect.Lo(), rect.Hi()
	bb := BoundingBox{
		SouthwestLon: lo.Lng.Degrees(),
		SouthwestLat: lo.Lat.Degrees(),
		NortheastLon: hi.Lng.Degrees(),
		NortheastLat: hi.Lat.Degrees(),
	}
	if rect.Lng.IsFull() || rect.Lng.IsInverted() {
		bb.SouthwestLon, bb.NortheastLon = -180, 180
	}
	return bb
}

// BoundingBox is an axis-aligned longitude/latitude rectangle.
// SouthwestLon <= NortheastLon and SouthwestLat <= NortheastLat.
type BoundingBox struct {
	SouthwestLon float64 `json:"sw_lon"`
	SouthwestLat float64 `json:"sw_lat"`
	NortheastLon float64 `json:"ne_lon"`
	NortheastLat float64 `json:"ne_lat"`
}

// Contains reports whether the point lies inside the box, edges included.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.SouthwestLat && lat <= b.NortheastLat &&
		lon >= b.SouthwestLon && lon <= b.NortheastLon
}

// Southwest returns the [lon, lat] pair of the southwest corner.
func (b BoundingBox) Southwest() [2]float64 {
	return [2]float64{b.SouthwestLon, b.SouthwestLat}
}

// Northeast returns the [lon, lat] pair of the northeast corner.
func (b BoundingBox) Northeast() [2]float64 {
	return [2]float64{b.NortheastLon, b.NortheastLat}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
