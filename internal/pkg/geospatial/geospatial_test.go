package geospatial_test

import (
	"math"
	"testing"

	"github.com/samirrijal/stationmap/internal/pkg/geospatial"
)

func TestHaversine(t *testing.T) {
	// Bilbao Abando to Moyua, roughly 550 m.
	d := geospatial.Haversine(43.2609, -2.9265, 43.2626, -2.9346)
	if d < 500 || d > 750 {
		t.Errorf("unexpected distance %.1f m", d)
	}
	if got := geospatial.Haversine(10, 10, 10, 10); got != 0 {
		t.Errorf("expected 0 for identical points, got %v", got)
	}
}

func TestDeltas(t *testing.T) {
	latDelta, lonDelta := geospatial.Deltas(0, 111320/2)
	if math.Abs(latDelta-1) > 1e-9 || math.Abs(lonDelta-1) > 1e-9 {
		t.Errorf("expected 1x1 degree at the equator, got %v x %v", latDelta, lonDelta)
	}

	_, lonAt60 := geospatial.Deltas(60, 111320/2)
	if math.Abs(lonAt60-2) > 1e-6 {
		t.Errorf("expected longitude span to double at 60 degrees, got %v", lonAt60)
	}
}

func TestClusterLevel(t *testing.T) {
	wide := geospatial.ClusterLevel(40)
	narrow := geospatial.ClusterLevel(0.01)
	if wide >= narrow {
		t.Errorf("expected zooming in to raise the level: wide=%d narrow=%d", wide, narrow)
	}
	if got := geospatial.ClusterLevel(1000); got != geospatial.MinClusterLevel {
		t.Errorf("expected clamp to %d, got %d", geospatial.MinClusterLevel, got)
	}
	if got := geospatial.ClusterLevel(0); got != geospatial.MaxClusterLevel {
		t.Errorf("expected %d for empty span, got %d", geospatial.MaxClusterLevel, got)
	}
}

func TestCellID_SameCellForNearbyPoints(t *testing.T) {
	a := geospatial.CellID(43.2609, -2.9265, 4)
	b := geospatial.CellID(43.2626, -2.9346, 4)
	if a != b {
		t.Errorf("expected points 700 m apart to share a level-4 cell")
	}
	if a.Level() != 4 {
		t.Errorf("expected level 4, got %d", a.Level())
	}

	lat, lon := geospatial.CellCenter(a)
	if geospatial.Haversine(lat, lon, 43.26, -2.93) > 600000 {
		t.Errorf("cell center too far from its members: %v,%v", lat, lon)
	}
}
