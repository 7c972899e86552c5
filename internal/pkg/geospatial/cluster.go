package geospatial

import (
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// Cluster levels are kept inside this range whatever the viewport size.
const (
	MinClusterLevel = 2
	MaxClusterLevel = 20
)

// CellsPerViewport is the number of clusters wanted across the viewport height.
const CellsPerViewport = 8

// CellID returns the S2 cell containing the point at the given level.
func CellID(lat, lon float64, level int) s2.CellID {
	return s2.CellIDFromLatLng(s2.LatLngFromDegrees(lat, lon)).Parent(level)
}

// CellCenter returns the center of a cell in degrees.
func CellCenter(id s2.CellID) (lat, lon float64) {
	ll := id.LatLng()
	return ll.Lat.Degrees(), ll.Lng.Degrees()
}

// ClusterLevel picks the S2 level whose average cell edge is closest to
// latDelta / CellsPerViewport.
func ClusterLevel(latDelta float64) int {
	if latDelta <= 0 {
		return MaxClusterLevel
	}
	edge := s1.Angle(latDelta/CellsPerViewport) * s1.Degree
	level := s2.AvgEdgeMetric.ClosestLevel(edge.Radians())
	switch {
	case level < MinClusterLevel:
		return MinClusterLevel
	case level > MaxClusterLevel:
		return MaxClusterLevel
	}
	return level
}
