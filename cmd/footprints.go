package main

import (
	"encoding/json"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/charmap"

	"github.com/heliomap/solar-cli/internal/model"
)

var (
	footprintsShapefile   string
	footprintsLimit       int
	footprintsConcurrency int
	footprintsOut         string
	footprintsLabelField  string
)

// footprintRow is one JSON line of batch output.
type footprintRow struct {
	Shape     int     `json:"shape"`
	Label     string  `json:"label,omitempty"`
	Found     bool    `json:"found"`
	Radiation float64 `json:"radiation,omitempty"`
	Samples   int     `json:"samples,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// footprint pairs one shapefile ring with the DBF attribute carried into its
// output row.
type footprint struct {
	poly  model.Polygon
	label string
}

var footprintsCmd = &cobra.Command{
	Use:   "footprints",
	Short: "Batch-estimate every building footprint in a shapefile",
	Long:  "Reads WGS84 polygon footprints from a shapefile and runs the sampling estimate for each, writing one JSON line per shape.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("footprints"); err != nil {
			return err
		}
		ctx := cmd.Context()
		log := zap.L().With(zap.String("component", "footprints"))

		footprints, err := readFootprints(footprintsShapefile, footprintsLimit, footprintsLabelField)
		if err != nil {
			return err
		}
		log.Info("footprints loaded",
			zap.String("shapefile", footprintsShapefile),
			zap.Int("count", len(footprints)))

		c, err := openCache(ctx)
		if err != nil {
			return eris.Wrap(err, "open cache")
		}
		defer c.Close() //nolint:errcheck

		s := newSampler(c, 0)

		out := os.Stdout
		if footprintsOut != "" {
			f, err := os.Create(footprintsOut)
			if err != nil {
				return eris.Wrap(err, "create output file")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		var mu sync.Mutex
		enc := json.NewEncoder(out)
		var estimated, empty, failed atomic.Int64

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(footprintsConcurrency)
		for i, fp := range footprints {
			g.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}

				row := footprintRow{Shape: i, Label: fp.label}
				result, err := s.Estimate(gctx, fp.poly)
				switch {
				case err != nil:
					// One bad footprint must not kill the batch.
					log.Error("footprint estimate failed", zap.Int("shape", i), zap.Error(err))
					failed.Add(1)
					row.Error = err.Error()
				case result == nil:
					empty.Add(1)
				default:
					estimated.Add(1)
					row.Found = true
					row.Radiation = result.Radiation
					row.Samples = result.Samples
				}

				mu.Lock()
				defer mu.Unlock()
				return enc.Encode(row)
			})
		}
		if err := g.Wait(); err != nil {
			return eris.Wrap(err, "footprints batch")
		}

		log.Info("footprints batch complete",
			zap.Int64("estimated", estimated.Load()),
			zap.Int64("empty", empty.Load()),
			zap.Int64("failed", failed.Load()))
		return nil
	},
}

// readFootprints loads up to limit polygons from a shapefile. Only the outer
// ring of each shape's first part is kept; inner rings and extra parts are
// holes or islands the sampler does not need.
func readFootprints(path string, limit int, labelField string) ([]footprint, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open shapefile")
	}
	defer func() { _ = reader.Close() }()

	labelIdx := -1
	if labelField != "" {
		for i, f := range reader.Fields() {
			name := strings.TrimRight(f.String(), "\x00")
			if strings.EqualFold(name, labelField) {
				labelIdx = i
				break
			}
		}
	}

	var footprints []footprint
	for reader.Next() {
		if limit > 0 && len(footprints) >= limit {
			break
		}
		_, shape := reader.Shape()
		p, ok := shape.(*shp.Polygon)
		if !ok || len(p.Points) == 0 {
			continue
		}

		end := len(p.Points)
		if p.NumParts > 1 {
			end = int(p.Parts[1])
		}

		poly := make(model.Polygon, 0, end)
		for _, pt := range p.Points[:end] {
			poly = append(poly, model.GeographicPoint{Lat: pt.Y, Lng: pt.X})
		}
		if poly.Validate() != nil {
			continue
		}

		fp := footprint{poly: poly}
		if labelIdx >= 0 {
			raw := strings.TrimSpace(strings.TrimRight(reader.Attribute(labelIdx), "\x00"))
			fp.label = decodeDBFText(raw)
		}
		footprints = append(footprints, fp)
	}
	return footprints, nil
}

// decodeDBFText fixes up attribute text from older cantonal exports whose DBF
// sidecars are ISO 8859-1. Text that already decodes as UTF-8 passes through.
func decodeDBFText(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().String(s)
	if err != nil {
		return s
	}
	return decoded
}

func init() {
	footprintsCmd.Flags().StringVar(&footprintsShapefile, "shapefile", "", "path to a WGS84 polygon shapefile (required)")
	footprintsCmd.Flags().IntVar(&footprintsLimit, "limit", 0, "maximum shapes to process (0 = all)")
	footprintsCmd.Flags().IntVar(&footprintsConcurrency, "concurrency", 2, "polygons estimated in parallel")
	footprintsCmd.Flags().StringVar(&footprintsOut, "out", "", "output file (default stdout)")
	footprintsCmd.Flags().StringVar(&footprintsLabelField, "label-field", "egid", "DBF column copied into each output row (empty to disable)")
	_ = footprintsCmd.MarkFlagRequired("shapefile")
	rootCmd.AddCommand(footprintsCmd)
}
