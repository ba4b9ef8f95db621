package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/heliomap/solar-cli/internal/cache"
	"github.com/heliomap/solar-cli/internal/sampler"
)

var (
	sampleCoords   string
	sampleFile     string
	sampleWorkers  int
	sampleNoCache  bool
	sampleProgress bool
)

// sampleOutput is the stdout payload for a polygon estimate.
type sampleOutput struct {
	Found    bool            `json:"found"`
	Estimate *sampler.Result `json:"estimate,omitempty"`
}

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Estimate yearly radiation for a rooftop polygon",
	Long:  "Samples the cadastre at a grid of points inside the polygon and aggregates the per-point values into one yearly kWh/m² figure.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("sample"); err != nil {
			return err
		}
		ctx := cmd.Context()

		poly, err := resolvePolygon(sampleCoords, sampleFile)
		if err != nil {
			return err
		}

		var c *cache.Cache
		if !sampleNoCache {
			c, err = openCache(ctx)
			if err != nil {
				return eris.Wrap(err, "open cache")
			}
			defer c.Close() //nolint:errcheck
		}

		s := newSampler(c, sampleWorkers)

		var opts []sampler.Option
		if sampleProgress {
			opts = append(opts, sampler.WithProgress(func(processed, total int) {
				fmt.Fprintf(os.Stderr, "\rsampling %d/%d", processed, total)
			}))
		}

		result, err := s.Estimate(ctx, poly, opts...)
		if sampleProgress {
			fmt.Fprintln(os.Stderr)
		}
		if err != nil {
			return eris.Wrap(err, "estimate polygon")
		}

		if result == nil {
			zap.L().Info("polygon yielded no usable samples", zap.Int("vertices", len(poly)))
		} else {
			zap.L().Info("polygon estimate",
				zap.Float64("radiation", result.Radiation),
				zap.Int("samples", result.Samples),
				zap.Bool("from_cache", result.FromCache))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sampleOutput{Found: result != nil, Estimate: result})
	},
}

func init() {
	sampleCmd.Flags().StringVar(&sampleCoords, "coords", "", `polygon vertices as "lat,lng;lat,lng;..."`)
	sampleCmd.Flags().StringVar(&sampleFile, "file", "", "polygon JSON or YAML file")
	sampleCmd.Flags().IntVar(&sampleWorkers, "workers", 0, "concurrent sampling workers (default from config)")
	sampleCmd.Flags().BoolVar(&sampleNoCache, "no-cache", false, "bypass the sample cache")
	sampleCmd.Flags().BoolVar(&sampleProgress, "progress", false, "print sampling progress to stderr")
	rootCmd.AddCommand(sampleCmd)
}
