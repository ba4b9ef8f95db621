package sampler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoefficientOfVariation(t *testing.T) {
	t.Parallel()

	// mean 1002.5, population stddev ~5.59
	cv := coefficientOfVariation([]float64{1000, 1010, 995, 1005})
	assert.InDelta(t, 0.00558, cv, 0.0001)

	assert.Equal(t, 0.0, coefficientOfVariation([]float64{800, 800, 800}))
	assert.True(t, math.IsInf(coefficientOfVariation(nil), 1))
	assert.True(t, math.IsInf(coefficientOfVariation([]float64{100, -100}), 1))
}

func TestSessionStopsWhenStable(t *testing.T) {
	t.Parallel()

	sess := &session{}
	for _, v := range []float64{1000, 1010, 995} {
		sess.add(v, 4, 0.05)
		assert.False(t, sess.stop.Load())
	}

	sess.add(1005, 4, 0.05)
	assert.True(t, sess.stop.Load())
	assert.Len(t, sess.snapshot(), 4)
}

func TestSessionKeepsGoingWhileNoisy(t *testing.T) {
	t.Parallel()

	sess := &session{}
	for _, v := range []float64{200, 1800, 400, 1600, 300} {
		sess.add(v, 4, 0.05)
	}
	assert.False(t, sess.stop.Load())
	assert.Len(t, sess.snapshot(), 5)
}

func TestSessionSnapshotIsCopy(t *testing.T) {
	t.Parallel()

	sess := &session{}
	sess.add(100, 4, 0.05)
	snap := sess.snapshot()
	snap[0] = 999
	assert.Equal(t, []float64{100}, sess.snapshot())
}
