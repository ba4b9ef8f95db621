package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/heliomap/solar-cli/internal/model"
)

var (
	pointLat float64
	pointLng float64
)

// pointOutput is the stdout payload for a single-point lookup.
type pointOutput struct {
	Lat   float64                 `json:"lat"`
	Lng   float64                 `json:"lng"`
	Found bool                    `json:"found"`
	Roof  *model.NormalizedResult `json:"roof,omitempty"`
}

var pointCmd = &cobra.Command{
	Use:   "point",
	Short: "Look up the roof at a single WGS84 coordinate",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("point"); err != nil {
			return err
		}
		ctx := cmd.Context()

		s := newSampler(nil, 0)
		roof, err := s.SamplePoint(ctx, model.GeographicPoint{Lat: pointLat, Lng: pointLng})
		if err != nil {
			return eris.Wrap(err, "sample point")
		}

		if roof == nil {
			zap.L().Info("no roof found at location",
				zap.Float64("lat", pointLat),
				zap.Float64("lng", pointLng))
		} else {
			zap.L().Info("roof found",
				zap.Float64("radiation", roof.Radiation),
				zap.String("suitability", roof.Suitability))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(pointOutput{
			Lat:   pointLat,
			Lng:   pointLng,
			Found: roof != nil,
			Roof:  roof,
		})
	},
}

func init() {
	pointCmd.Flags().Float64Var(&pointLat, "lat", 0, "WGS84 latitude (required)")
	pointCmd.Flags().Float64Var(&pointLng, "lng", 0, "WGS84 longitude (required)")
	_ = pointCmd.MarkFlagRequired("lat")
	_ = pointCmd.MarkFlagRequired("lng")
	rootCmd.AddCommand(pointCmd)
}
