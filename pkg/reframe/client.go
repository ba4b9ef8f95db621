// Package reframe converts WGS84 coordinates into the LV95 projected CRS via
// the swisstopo REFRAME service.
package reframe

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/heliomap/solar-cli/internal/model"
)

const (
	defaultPrimaryURL  = "https://geodesy.geo.admin.ch/reframe/wgs84tolv95"
	defaultFallbackURL = "https://tc-geodesy.bgdi-dev.swisstopo.cloud/reframe/wgs84tolv95"
)

// ErrConversionFailed means both conversion endpoints failed for a point.
var ErrConversionFailed = eris.New("reframe: coordinate conversion failed")

// Client projects geographic coordinates into the feature service's CRS.
type Client interface {
	// Project converts a single WGS84 point. It tries the primary endpoint
	// first and the fallback endpoint exactly once after that.
	Project(ctx context.Context, pt model.GeographicPoint) (model.ProjectedPoint, error)
}

// Option configures the transformer.
type Option func(*transformer)

// WithEndpoints overrides the primary and fallback conversion endpoints.
func WithEndpoints(primary, fallback string) Option {
	return func(t *transformer) {
		t.primaryURL = primary
		t.fallbackURL = fallback
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(t *transformer) {
		t.httpClient = hc
	}
}

type transformer struct {
	primaryURL  string
	fallbackURL string
	httpClient  *http.Client
}

// NewClient creates a conversion Client with the given options.
func NewClient(opts ...Option) Client {
	t := &transformer{
		primaryURL:  defaultPrimaryURL,
		fallbackURL: defaultFallbackURL,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Project converts a point, trying the primary endpoint and then the
// fallback. No retries beyond the single fallback attempt.
func (t *transformer) Project(ctx context.Context, pt model.GeographicPoint) (model.ProjectedPoint, error) {
	proj, primaryErr := t.projectVia(ctx, t.primaryURL, pt)
	if primaryErr == nil {
		return proj, nil
	}

	zap.L().Debug("reframe primary endpoint failed, trying fallback",
		zap.Float64("lat", pt.Lat),
		zap.Float64("lng", pt.Lng),
		zap.Error(primaryErr))

	proj, fallbackErr := t.projectVia(ctx, t.fallbackURL, pt)
	if fallbackErr == nil {
		return proj, nil
	}

	return model.ProjectedPoint{}, eris.Wrapf(ErrConversionFailed,
		"primary: %v; fallback: %v", primaryErr, fallbackErr)
}

// coordValue tolerates the service reporting coordinates either as JSON
// numbers or as quoted strings.
type coordValue float64

func (c *coordValue) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return eris.Wrapf(err, "reframe: parse coordinate %q", s)
	}
	*c = coordValue(f)
	return nil
}

type reframeResponse struct {
	Easting  coordValue `json:"easting"`
	Northing coordValue `json:"northing"`
}

func (t *transformer) projectVia(ctx context.Context, endpoint string, pt model.GeographicPoint) (model.ProjectedPoint, error) {
	params := url.Values{
		"easting":  {strconv.FormatFloat(pt.Lng, 'f', -1, 64)},
		"northing": {strconv.FormatFloat(pt.Lat, 'f', -1, 64)},
		"format":   {"json"},
	}

	reqURL := endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return model.ProjectedPoint{}, eris.Wrap(err, "reframe: build request")
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return model.ProjectedPoint{}, eris.Wrap(err, "reframe: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return model.ProjectedPoint{}, eris.Errorf("reframe: endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.ProjectedPoint{}, eris.Wrap(err, "reframe: read body")
	}

	var out reframeResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return model.ProjectedPoint{}, eris.Wrap(err, "reframe: parse response")
	}

	return model.ProjectedPoint{
		Easting:  float64(out.Easting),
		Northing: float64(out.Northing),
	}, nil
}
