package model

import "math"

// GeographicPoint is a WGS84 coordinate in decimal degrees.
type GeographicPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ProjectedPoint is a coordinate in the feature service's projected CRS
// (LV95, meters). Produced by the reframe client or parsed from service
// geometry, never hand-constructed from degrees.
type ProjectedPoint struct {
	Easting  float64 `json:"easting"`
	Northing float64 `json:"northing"`
}

// DistanceTo returns the Euclidean distance to other in CRS length units.
func (p ProjectedPoint) DistanceTo(other ProjectedPoint) float64 {
	dx := p.Easting - other.Easting
	dy := p.Northing - other.Northing
	return math.Sqrt(dx*dx + dy*dy)
}
