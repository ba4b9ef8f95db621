package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/heliomap/solar-cli/internal/model"
	"github.com/heliomap/solar-cli/internal/radiation"
	"github.com/heliomap/solar-cli/internal/selector"
)

var (
	featuresCoords string
	featuresFile   string
)

// featureRow is one cadastre feature inside the queried polygon, with both
// the normalized view and the raw layer attributes.
type featureRow struct {
	ID          string              `json:"id"`
	Radiation   float64             `json:"radiation"`
	Area        float64             `json:"area,omitempty"`
	Suitability string              `json:"suitability,omitempty"`
	Attributes  model.RawAttributes `json:"attributes"`
}

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "List cadastre features intersecting a polygon",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("features"); err != nil {
			return err
		}
		ctx := cmd.Context()

		poly, err := resolvePolygon(featuresCoords, featuresFile)
		if err != nil {
			return err
		}
		if err := poly.Validate(); err != nil {
			return err
		}

		projector := newProjector()
		ring := make([]model.ProjectedPoint, 0, len(poly))
		for _, v := range poly {
			pt, err := projector.Project(ctx, v)
			if err != nil {
				return eris.Wrap(err, "project polygon vertex")
			}
			ring = append(ring, pt)
		}

		candidates, err := newLookup().InPolygon(ctx, ring)
		if err != nil {
			return eris.Wrap(err, "identify features")
		}

		deduped := selector.Dedup(candidates)
		zap.L().Info("features identified",
			zap.Int("count", len(deduped)),
			zap.Int("raw", len(candidates)),
			zap.Int("vertices", len(poly)))

		rows := make([]featureRow, 0, len(deduped))
		for _, cand := range deduped {
			normalized := radiation.Normalize(cand.Attrs)
			rows = append(rows, featureRow{
				ID:          cand.Attrs.IdentityKey(),
				Radiation:   normalized.Radiation,
				Area:        normalized.Area,
				Suitability: normalized.Suitability,
				Attributes:  cand.Attrs,
			})
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	},
}

func init() {
	featuresCmd.Flags().StringVar(&featuresCoords, "coords", "", `polygon vertices as "lat,lng;lat,lng;..."`)
	featuresCmd.Flags().StringVar(&featuresFile, "file", "", "polygon JSON or YAML file")
	rootCmd.AddCommand(featuresCmd)
}
