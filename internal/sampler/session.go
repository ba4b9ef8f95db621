package sampler

import (
	"math"
	"sync"
	"sync/atomic"
)

// session holds the shared state of one sampling run. Workers append
// accepted samples through add and poll stop between points.
type session struct {
	mu      sync.Mutex
	samples []float64

	done atomic.Int64
	stop atomic.Bool
}

// add records an accepted sample and raises the stop flag once the estimate
// has settled: at least minSamples values whose coefficient of variation is
// below threshold.
func (s *session) add(v float64, minSamples int, threshold float64) {
	s.mu.Lock()
	s.samples = append(s.samples, v)
	stable := len(s.samples) >= minSamples &&
		coefficientOfVariation(s.samples) < threshold
	s.mu.Unlock()
	if stable {
		s.stop.Store(true)
	}
}

func (s *session) snapshot() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float64, len(s.samples))
	copy(out, s.samples)
	return out
}

// coefficientOfVariation is the population standard deviation divided by the
// mean. Empty or zero-mean inputs report +Inf so they never read as stable.
func coefficientOfVariation(samples []float64) float64 {
	if len(samples) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for _, v := range samples {
		sum += v
	}
	mean := sum / float64(len(samples))
	if mean == 0 {
		return math.Inf(1)
	}
	var sq float64
	for _, v := range samples {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq/float64(len(samples))) / mean
}
