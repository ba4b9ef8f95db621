package model

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// ErrInvalidPolygon is returned for polygons with fewer than three vertices.
var ErrInvalidPolygon = eris.New("model: polygon requires at least 3 vertices")

// Polygon is a single simple ring of geographic points. The first vertex is
// not required to repeat at the end.
type Polygon []GeographicPoint

// Validate rejects degenerate rings before any sampling work starts.
func (p Polygon) Validate() error {
	if len(p) < 3 {
		return ErrInvalidPolygon
	}
	return nil
}

// Centroid returns the arithmetic mean of the vertices. Not area-weighted;
// the sampler only needs a representative interior-ish point for tiny
// polygons, not a true center of mass.
func (p Polygon) Centroid() GeographicPoint {
	var lat, lng float64
	for _, v := range p {
		lat += v.Lat
		lng += v.Lng
	}
	n := float64(len(p))
	return GeographicPoint{Lat: lat / n, Lng: lng / n}
}

// BBox is an axis-aligned bounding box in geographic coordinates.
type BBox struct {
	MinLng float64 `json:"min_lng"`
	MinLat float64 `json:"min_lat"`
	MaxLng float64 `json:"max_lng"`
	MaxLat float64 `json:"max_lat"`
}

// Area returns the box area in squared degrees.
func (b BBox) Area() float64 {
	return (b.MaxLng - b.MinLng) * (b.MaxLat - b.MinLat)
}

// BoundingBox computes the polygon's bounding box.
func (p Polygon) BoundingBox() BBox {
	flat := make([]float64, 0, len(p)*2)
	for _, v := range p {
		flat = append(flat, v.Lng, v.Lat)
	}
	bounds := geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)}).Bounds()
	return BBox{
		MinLng: bounds.Min(0),
		MinLat: bounds.Min(1),
		MaxLng: bounds.Max(0),
		MaxLat: bounds.Max(1),
	}
}
