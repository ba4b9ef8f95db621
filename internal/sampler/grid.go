package sampler

import (
	"github.com/heliomap/solar-cli/internal/model"
)

// Escalation thresholds in squared degrees: past each one the grid gets two
// steps finer. Around 1e-7 deg² is a large rooftop at mid latitudes.
var gridAreaThresholds = [3]float64{1e-7, 1e-6, 1e-5}

// gridResolution picks the per-axis grid resolution for a bounding box of
// the given area, starting at base and capped at max.
func gridResolution(area float64, base, max int) int {
	res := base
	for _, threshold := range gridAreaThresholds {
		if area > threshold {
			res += 2
		}
	}
	if res > max {
		res = max
	}
	return res
}

// interiorGrid returns a res×res lattice strictly inside the box, at
// fractions i/(res+1) of each span so the border itself is never sampled.
func interiorGrid(b model.BBox, res int) []model.GeographicPoint {
	pts := make([]model.GeographicPoint, 0, res*res)
	spanLat := b.MaxLat - b.MinLat
	spanLng := b.MaxLng - b.MinLng
	for i := 1; i <= res; i++ {
		for j := 1; j <= res; j++ {
			pts = append(pts, model.GeographicPoint{
				Lat: b.MinLat + spanLat*float64(i)/float64(res+1),
				Lng: b.MinLng + spanLng*float64(j)/float64(res+1),
			})
		}
	}
	return pts
}

// pointInPolygon runs the even-odd ray-casting test: a horizontal ray from
// the point crosses the ring an odd number of times iff the point is inside.
// The epsilon keeps horizontal edges from dividing by zero.
func pointInPolygon(pt model.GeographicPoint, poly model.Polygon) bool {
	inside := false
	n := len(poly)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		vi, vj := poly[i], poly[j]
		if (vi.Lat > pt.Lat) != (vj.Lat > pt.Lat) &&
			pt.Lng < (vj.Lng-vi.Lng)*(pt.Lat-vi.Lat)/(vj.Lat-vi.Lat+1e-12)+vi.Lng {
			inside = !inside
		}
	}
	return inside
}

// partition deals points round-robin into at most n groups, preserving scan
// order within each group.
func partition(pts []model.GeographicPoint, n int) [][]model.GeographicPoint {
	if n < 1 {
		n = 1
	}
	if n > len(pts) {
		n = len(pts)
	}
	groups := make([][]model.GeographicPoint, n)
	for i, pt := range pts {
		groups[i%n] = append(groups[i%n], pt)
	}
	return groups
}
