// Package selector reduces the overlapping feature records a lookup returns
// for one query to the single candidate worth normalizing. The service
// routinely reports several adjacent or duplicated roof records per point;
// neither "first result" nor "largest result" alone picks the right one.
package selector

import (
	"math"

	"github.com/heliomap/solar-cli/internal/model"
)

// nearbyThreshold is the distance, in CRS units, under which the nearest
// representative is trusted over the most substantial one. Inclusive at the
// boundary.
const nearbyThreshold = 20.0

// Select picks at most one candidate. Candidates are first deduplicated by
// identity key, keeping the more substantial record per group; the nearest
// representative wins if it is within nearbyThreshold of the query point,
// otherwise the most substantial representative overall wins. Returns nil
// for an empty input.
func Select(cands []model.Candidate, query *model.ProjectedPoint) *model.Candidate {
	if len(cands) == 0 {
		return nil
	}

	reps := Dedup(cands)
	for i := range reps {
		reps[i].Distance = distanceTo(reps[i], query)
	}

	nearest := &reps[0]
	for i := 1; i < len(reps); i++ {
		if reps[i].Distance < nearest.Distance {
			nearest = &reps[i]
		}
	}
	if nearest.Distance <= nearbyThreshold {
		return nearest
	}

	best := &reps[0]
	for i := 1; i < len(reps); i++ {
		if moreSubstantial(reps[i], *best) {
			best = &reps[i]
		}
	}
	return best
}

// Dedup groups candidates by identity key, keeping one representative per
// group and the input order of first appearance. The representative is the
// more substantial record of its group.
func Dedup(cands []model.Candidate) []model.Candidate {
	reps := make([]model.Candidate, 0, len(cands))
	index := make(map[string]int, len(cands))
	for _, c := range cands {
		key := c.Attrs.IdentityKey()
		i, seen := index[key]
		if !seen {
			index[key] = len(reps)
			reps = append(reps, c)
			continue
		}
		if moreSubstantial(c, reps[i]) {
			reps[i] = c
		}
	}
	return reps
}

// moreSubstantial orders candidates by reported area, then by reported
// production. Missing values count as zero.
func moreSubstantial(a, b model.Candidate) bool {
	areaA, _ := a.Attrs.Area()
	areaB, _ := b.Attrs.Area()
	if areaA != areaB {
		return areaA > areaB
	}
	prodA, _ := a.Attrs.Production()
	prodB, _ := b.Attrs.Production()
	return prodA > prodB
}

// distanceTo returns the Euclidean distance from the candidate's centroid to
// the query point, infinite when either side is unknown.
func distanceTo(c model.Candidate, query *model.ProjectedPoint) float64 {
	if c.Centroid == nil || query == nil {
		return math.Inf(1)
	}
	return query.DistanceTo(*c.Centroid)
}
