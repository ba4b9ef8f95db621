package model

// Candidate is one raw feature record returned by a spatial lookup, scoped
// to a single response. Centroid is nil when geometry was not requested or
// not returned; Distance is filled in by the selector when a query point is
// known.
type Candidate struct {
	Attrs    RawAttributes   `json:"attributes"`
	Centroid *ProjectedPoint `json:"centroid,omitempty"`
	Distance float64         `json:"distance,omitempty"`
}

// NormalizedResult is a feature's attributes reduced to the quantities the
// rest of the system consumes.
type NormalizedResult struct {
	Radiation   float64       `json:"radiation"` // kWh/m²/year, integer-valued
	Area        float64       `json:"area,omitempty"`
	RatedPower  float64       `json:"rated_power,omitempty"` // kW
	Suitability string        `json:"suitability,omitempty"`
	Attrs       RawAttributes `json:"attributes,omitempty"`
}
