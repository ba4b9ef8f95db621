// Package sampler turns a rooftop polygon into a single yearly radiation
// estimate by probing the cadastre at a grid of interior points and
// aggregating the per-point values.
package sampler

import (
	"context"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/heliomap/solar-cli/internal/cache"
	"github.com/heliomap/solar-cli/internal/model"
	"github.com/heliomap/solar-cli/internal/radiation"
	"github.com/heliomap/solar-cli/internal/selector"
	"github.com/heliomap/solar-cli/pkg/identify"
	"github.com/heliomap/solar-cli/pkg/reframe"
)

const (
	defaultWorkers            = 4
	defaultMinSamples         = 4
	defaultStabilityThreshold = 0.05
	defaultBaseResolution     = 4
	defaultMaxResolution      = 10
)

// Config tunes the sampling loop. Zero values fall back to the defaults.
type Config struct {
	// Workers is the number of concurrent point workers.
	Workers int
	// MinSamples is how many accepted samples are needed before the
	// stability check may stop the run early.
	MinSamples int
	// StabilityThreshold is the coefficient-of-variation cutoff below
	// which the estimate counts as settled.
	StabilityThreshold float64
	// BaseResolution and MaxResolution bound the per-axis grid size.
	BaseResolution int
	MaxResolution  int
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.MinSamples <= 0 {
		c.MinSamples = defaultMinSamples
	}
	if c.StabilityThreshold <= 0 {
		c.StabilityThreshold = defaultStabilityThreshold
	}
	if c.BaseResolution <= 0 {
		c.BaseResolution = defaultBaseResolution
	}
	if c.MaxResolution <= 0 {
		c.MaxResolution = defaultMaxResolution
	}
	return c
}

// Result is the outcome of one polygon estimate.
type Result struct {
	// Radiation is the aggregated yearly value in kWh/m²/year.
	Radiation float64 `json:"radiation"`
	// Samples is how many grid points contributed a usable value.
	Samples int `json:"samples"`
	// Points is how many grid points were visited before the run settled.
	Points int `json:"points"`
	// FromCache marks estimates served without touching the network.
	FromCache bool `json:"from_cache"`
	// Fingerprint identifies the polygon in the cache.
	Fingerprint string `json:"fingerprint"`
}

// ProgressFunc is invoked after every visited grid point with the number of
// points processed so far and the total planned. Calls may arrive
// concurrently from worker goroutines.
type ProgressFunc func(processed, total int)

// Option adjusts a single Estimate call.
type Option func(*estimateOpts)

type estimateOpts struct {
	progress ProgressFunc
}

// WithProgress registers a progress callback for one Estimate call.
func WithProgress(fn ProgressFunc) Option {
	return func(o *estimateOpts) { o.progress = fn }
}

// Sampler produces polygon-level radiation estimates. It is safe for
// concurrent use.
type Sampler struct {
	projector reframe.Client
	lookup    identify.Client
	cache     *cache.Cache
	cfg       Config
}

// New builds a Sampler. The cache may be nil, in which case every estimate
// is computed from scratch.
func New(projector reframe.Client, lookup identify.Client, c *cache.Cache, cfg Config) *Sampler {
	return &Sampler{
		projector: projector,
		lookup:    lookup,
		cache:     c,
		cfg:       cfg.withDefaults(),
	}
}

// Estimate samples the polygon and returns the aggregated radiation value.
// It returns (nil, nil) when no grid point yields a usable sample. Polygons
// with fewer than three vertices fail before any network call is made.
func (s *Sampler) Estimate(ctx context.Context, poly model.Polygon, opts ...Option) (*Result, error) {
	if err := poly.Validate(); err != nil {
		return nil, err
	}

	var eo estimateOpts
	for _, opt := range opts {
		opt(&eo)
	}

	fp := cache.Fingerprint(poly)
	log := zap.L().With(
		zap.String("component", "sampler"),
		zap.String("session", uuid.New().String()[:8]),
	)

	if s.cache != nil {
		if v, ok := s.cache.Get(ctx, fp); ok {
			log.Debug("estimate served from cache", zap.Float64("radiation", v))
			return &Result{Radiation: v, FromCache: true, Fingerprint: fp}, nil
		}
	}

	box := poly.BoundingBox()
	res := gridResolution(box.Area(), s.cfg.BaseResolution, s.cfg.MaxResolution)
	var points []model.GeographicPoint
	for _, pt := range interiorGrid(box, res) {
		if pointInPolygon(pt, poly) {
			points = append(points, pt)
		}
	}
	log.Debug("sampling grid generated",
		zap.Int("resolution", res),
		zap.Int("interior_points", len(points)))

	if len(points) == 0 {
		return s.estimateCentroid(ctx, poly, fp, eo, log)
	}

	sess := &session{}
	total := len(points)

	g, gctx := errgroup.WithContext(ctx)
	for _, group := range partition(points, s.cfg.Workers) {
		g.Go(func() error {
			for _, pt := range group {
				if sess.stop.Load() {
					return nil
				}
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}

				value, err := s.SamplePoint(gctx, pt)
				switch {
				case err != nil:
					// Individual point failures never abort the run.
					log.Debug("grid point skipped",
						zap.Float64("lat", pt.Lat),
						zap.Float64("lng", pt.Lng),
						zap.Error(err))
				case value != nil && value.Radiation > 0:
					sess.add(value.Radiation, s.cfg.MinSamples, s.cfg.StabilityThreshold)
				}

				processed := int(sess.done.Add(1))
				if eo.progress != nil {
					eo.progress(processed, total)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	samples := sess.snapshot()
	visited := int(sess.done.Load())
	if len(samples) == 0 {
		log.Info("no usable samples for polygon",
			zap.Int("points_visited", visited),
			zap.Int("points_total", total))
		return nil, nil
	}

	var sum float64
	for _, v := range samples {
		sum += v
	}
	value := math.Round(sum / float64(len(samples)))

	if s.cache != nil {
		s.cache.Put(ctx, fp, value)
	}
	log.Info("estimate complete",
		zap.Float64("radiation", value),
		zap.Int("samples", len(samples)),
		zap.Int("points_visited", visited),
		zap.Int("points_total", total))

	return &Result{
		Radiation:   value,
		Samples:     len(samples),
		Points:      visited,
		Fingerprint: fp,
	}, nil
}

// estimateCentroid handles polygons too small or too thin for the grid: a
// single probe at the vertex-mean centroid.
func (s *Sampler) estimateCentroid(ctx context.Context, poly model.Polygon, fp string, eo estimateOpts, log *zap.Logger) (*Result, error) {
	centroid := poly.Centroid()
	log.Debug("no interior grid points, sampling centroid",
		zap.Float64("lat", centroid.Lat),
		zap.Float64("lng", centroid.Lng))

	value, err := s.SamplePoint(ctx, centroid)
	if eo.progress != nil {
		eo.progress(1, 1)
	}
	if err != nil {
		log.Debug("centroid probe failed", zap.Error(err))
		return nil, nil
	}
	if value == nil || value.Radiation <= 0 {
		return nil, nil
	}

	if s.cache != nil {
		s.cache.Put(ctx, fp, value.Radiation)
	}
	return &Result{
		Radiation:   value.Radiation,
		Samples:     1,
		Points:      1,
		Fingerprint: fp,
	}, nil
}

// SamplePoint runs the per-point pipeline: project the coordinate, look up
// cadastre features around it, pick the best candidate and normalize its
// attributes. It returns (nil, nil) when the location has no feature.
func (s *Sampler) SamplePoint(ctx context.Context, pt model.GeographicPoint) (*model.NormalizedResult, error) {
	projected, err := s.projector.Project(ctx, pt)
	if err != nil {
		return nil, err
	}

	candidates, err := s.lookup.AtPoint(ctx, projected)
	if err != nil {
		return nil, err
	}

	chosen := selector.Select(candidates, &projected)
	if chosen == nil {
		return nil, nil
	}

	result := radiation.Normalize(chosen.Attrs)
	return &result, nil
}
