package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heliomap/solar-cli/internal/model"
)

func cand(id string, area, production float64, centroid *model.ProjectedPoint) model.Candidate {
	return model.Candidate{
		Attrs:    model.RawAttributes{"id": id, "flaeche": area, "stromertrag": production},
		Centroid: centroid,
	}
}

func TestSelectEmpty(t *testing.T) {
	t.Parallel()
	assert.Nil(t, Select(nil, &model.ProjectedPoint{}))
	assert.Nil(t, Select([]model.Candidate{}, nil))
}

func TestSelectNearbyBeatsLarger(t *testing.T) {
	t.Parallel()

	query := &model.ProjectedPoint{Easting: 0, Northing: 0}
	a := cand("a", 50, 0, &model.ProjectedPoint{Easting: 5, Northing: 0})   // distance 5
	b := cand("b", 80, 0, &model.ProjectedPoint{Easting: 30, Northing: 0})  // distance 30

	got := Select([]model.Candidate{a, b}, query)
	require.NotNil(t, got)
	assert.Equal(t, "id:a", got.Attrs.IdentityKey())
	assert.InDelta(t, 5.0, got.Distance, 1e-9)
}

func TestSelectThresholdInclusive(t *testing.T) {
	t.Parallel()

	query := &model.ProjectedPoint{Easting: 0, Northing: 0}
	near := cand("near", 10, 0, &model.ProjectedPoint{Easting: 20, Northing: 0}) // exactly 20
	big := cand("big", 500, 0, &model.ProjectedPoint{Easting: 80, Northing: 0})

	got := Select([]model.Candidate{near, big}, query)
	require.NotNil(t, got)
	assert.Equal(t, "id:near", got.Attrs.IdentityKey())
}

func TestSelectFallsBackToLargest(t *testing.T) {
	t.Parallel()

	query := &model.ProjectedPoint{Easting: 0, Northing: 0}
	far1 := cand("far1", 40, 100, &model.ProjectedPoint{Easting: 50, Northing: 0})
	far2 := cand("far2", 90, 10, &model.ProjectedPoint{Easting: 60, Northing: 0})

	got := Select([]model.Candidate{far1, far2}, query)
	require.NotNil(t, got)
	assert.Equal(t, "id:far2", got.Attrs.IdentityKey())
}

func TestSelectAreaTieBrokenByProduction(t *testing.T) {
	t.Parallel()

	query := &model.ProjectedPoint{Easting: 0, Northing: 0}
	low := cand("low", 50, 100, &model.ProjectedPoint{Easting: 70, Northing: 0})
	high := cand("high", 50, 900, &model.ProjectedPoint{Easting: 90, Northing: 0})

	got := Select([]model.Candidate{low, high}, query)
	require.NotNil(t, got)
	assert.Equal(t, "id:high", got.Attrs.IdentityKey())
}

func TestSelectDedupKeepsLargerRecord(t *testing.T) {
	t.Parallel()

	query := &model.ProjectedPoint{Easting: 0, Northing: 0}
	small := cand("dup", 10, 0, &model.ProjectedPoint{Easting: 3, Northing: 0})
	large := cand("dup", 60, 0, &model.ProjectedPoint{Easting: 4, Northing: 0})
	other := cand("other", 5, 0, &model.ProjectedPoint{Easting: 100, Northing: 0})

	got := Select([]model.Candidate{small, large, other}, query)
	require.NotNil(t, got)
	area, ok := got.Attrs.Area()
	require.True(t, ok)
	assert.InDelta(t, 60.0, area, 1e-9)
}

func TestDedupPreservesFirstAppearanceOrder(t *testing.T) {
	t.Parallel()

	first := cand("x", 10, 0, nil)
	second := cand("y", 20, 0, nil)
	dupOfFirst := cand("x", 40, 0, nil)

	reps := Dedup([]model.Candidate{first, second, dupOfFirst})
	require.Len(t, reps, 2)

	assert.Equal(t, "id:x", reps[0].Attrs.IdentityKey())
	assert.Equal(t, "id:y", reps[1].Attrs.IdentityKey())
	area, ok := reps[0].Attrs.Area()
	require.True(t, ok)
	assert.InDelta(t, 40.0, area, 1e-9)
}

func TestSelectNoCentroidMeansFar(t *testing.T) {
	t.Parallel()

	query := &model.ProjectedPoint{Easting: 0, Northing: 0}
	blind := cand("blind", 900, 0, nil)
	near := cand("near", 1, 0, &model.ProjectedPoint{Easting: 2, Northing: 0})

	got := Select([]model.Candidate{blind, near}, query)
	require.NotNil(t, got)
	assert.Equal(t, "id:near", got.Attrs.IdentityKey())
}

func TestSelectNoQueryPointUsesLargest(t *testing.T) {
	t.Parallel()

	a := cand("a", 50, 0, &model.ProjectedPoint{Easting: 1, Northing: 0})
	b := cand("b", 80, 0, &model.ProjectedPoint{Easting: 2, Northing: 0})

	got := Select([]model.Candidate{a, b}, nil)
	require.NotNil(t, got)
	assert.Equal(t, "id:b", got.Attrs.IdentityKey())
}
