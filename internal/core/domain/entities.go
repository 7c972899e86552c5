package domain

import (
	"strings"
	"time"
)

// Station is a fuel or charging station shown as a map marker. Identity is ID.
type Station struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Location  GeoPoint  `json:"location"`
	Price     *float64  `json:"price,omitempty"`
	Address   string    `json:"address,omitempty"`
	FuelType  string    `json:"fuel_type,omitempty"`
	Distance  *float64  `json:"distance,omitempty"` // computed field
	CreatedAt time.Time `json:"created_at"`
}

// StationInput is a user-submitted station record.
type StationInput struct {
	Name     string   `json:"name"`
	Location GeoPoint `json:"location"`
	Price    *float64 `json:"price,omitempty"`
	Address  string   `json:"address,omitempty"`
	FuelType string   `json:"fuel_type,omitempty"`
}

// Validate reports the first missing or malformed field.
func (in StationInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ValidationError{Field: "name", Msg: "is required"}
	}
	if !in.Location.Valid() {
		return ValidationError{Field: "location", Msg: "must be a valid coordinate"}
	}
	if in.Price != nil && (!finite(*in.Price) || *in.Price < 0) {
		return ValidationError{Field: "price", Msg: "must be a non-negative number"}
	}
	return nil
}

// StationCluster groups the stations falling into one S2 cell.
type StationCluster struct {
	CellID string   `json:"cell_id"`
	Level  int      `json:"level"`
	Center GeoPoint `json:"center"`
	Count  int      `json:"count"`
}

// PlaceCandidate is one place-search suggestion.
type PlaceCandidate struct {
	PlaceID     string `json:"place_id"`
	Description string `json:"description"`
}

// Place is a resolved place-search candidate.
type Place struct {
	PlaceID  string   `json:"place_id"`
	Name     string   `json:"name"`
	Location GeoPoint `json:"location"`
}

// LocationName is the best-effort reverse geocode of a viewport center.
type LocationName struct {
	City        string `json:"city,omitempty"`
	Country     string `json:"country,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}

// RouteResult is the raw answer of the routing service.
type RouteResult struct {
	Coordinates     [][2]float64 `json:"coordinates"` // [lon, lat]
	DistanceMeters  float64      `json:"distance_meters"`
	DurationSeconds float64      `json:"duration_seconds"`
}
