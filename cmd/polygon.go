package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/heliomap/solar-cli/internal/model"
)

// polygonFile is the on-disk polygon shape, shared by JSON and YAML inputs.
// Vertices are [lat, lng] pairs.
type polygonFile struct {
	Polygon [][2]float64 `json:"polygon" yaml:"polygon"`
}

// parseCoords parses "lat,lng;lat,lng;..." into a polygon.
func parseCoords(raw string) (model.Polygon, error) {
	var poly model.Polygon
	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.Split(pair, ",")
		if len(parts) != 2 {
			return nil, eris.Errorf("invalid coordinate pair %q (want lat,lng)", pair)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, eris.Errorf("invalid latitude %q", parts[0])
		}
		lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, eris.Errorf("invalid longitude %q", parts[1])
		}
		poly = append(poly, model.GeographicPoint{Lat: lat, Lng: lng})
	}
	return poly, nil
}

// loadPolygonFile reads a polygon from a JSON or YAML file, chosen by
// extension.
func loadPolygonFile(path string) (model.Polygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "read polygon file")
	}

	var pf polygonFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &pf); err != nil {
			return nil, eris.Wrap(err, "parse polygon YAML")
		}
	default:
		if err := json.Unmarshal(data, &pf); err != nil {
			return nil, eris.Wrap(err, "parse polygon JSON")
		}
	}

	poly := make(model.Polygon, 0, len(pf.Polygon))
	for _, v := range pf.Polygon {
		poly = append(poly, model.GeographicPoint{Lat: v[0], Lng: v[1]})
	}
	return poly, nil
}

// resolvePolygon picks the polygon source: inline coords win over a file.
func resolvePolygon(coords, file string) (model.Polygon, error) {
	switch {
	case coords != "":
		return parseCoords(coords)
	case file != "":
		return loadPolygonFile(file)
	default:
		return nil, eris.New("either --coords or --file is required")
	}
}
