// Package identify queries the geo.admin.ch identify API for rooftop solar
// features at a point or within a polygon.
package identify

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/heliomap/solar-cli/internal/model"
	"github.com/heliomap/solar-cli/internal/resilience"
)

const (
	defaultBaseURL   = "https://api3.geo.admin.ch/rest/services/api/MapServer/identify"
	defaultLayer     = "ch.bfe.solarenergie-eignung-daecher"
	defaultTolerance = 5
	defaultBoxRadius = 100.0
	defaultRateRPS   = 20.0

	identifyImageDisplay = "100,100,96"
	identifySRID         = "2056"
)

// ErrLookupFailed means the feature service could not be queried or answered
// with a non-success status. An empty result set is not a failure.
var ErrLookupFailed = eris.New("identify: feature lookup failed")

// Client looks up rooftop features in the solar cadastre.
type Client interface {
	// AtPoint identifies features near one projected point. Geometry is
	// requested so candidate centroids can be ranked by distance.
	AtPoint(ctx context.Context, pt model.ProjectedPoint) ([]model.Candidate, error)

	// InPolygon identifies features intersecting a projected ring. Geometry
	// is not requested; this mode feeds listing, not distance ranking.
	InPolygon(ctx context.Context, ring []model.ProjectedPoint) ([]model.Candidate, error)
}

// Option configures the lookup client.
type Option func(*lookup)

// WithBaseURL overrides the identify endpoint.
func WithBaseURL(u string) Option {
	return func(l *lookup) {
		l.baseURL = u
	}
}

// WithLayer selects the cadastre layer to query.
func WithLayer(layer string) Option {
	return func(l *lookup) {
		l.layer = layer
	}
}

// WithTolerance sets the identify pixel tolerance.
func WithTolerance(px int) Option {
	return func(l *lookup) {
		l.tolerance = px
	}
}

// WithBoxRadius sets the half-width, in CRS units, of the extent sent with
// point queries.
func WithBoxRadius(r float64) Option {
	return func(l *lookup) {
		l.boxRadius = r
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(l *lookup) {
		l.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second limit toward the service.
func WithRateLimit(rps float64) Option {
	return func(l *lookup) {
		l.limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
	}
}

// WithRetry overrides the retry policy for transient request failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(l *lookup) {
		l.retry = cfg
	}
}

type lookup struct {
	baseURL    string
	layer      string
	tolerance  int
	boxRadius  float64
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
}

// NewClient creates a lookup Client with the given options.
func NewClient(opts ...Option) Client {
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("geo.admin.ch", "identify")

	l := &lookup{
		baseURL:    defaultBaseURL,
		layer:      defaultLayer,
		tolerance:  defaultTolerance,
		boxRadius:  defaultBoxRadius,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(defaultRateRPS), int(defaultRateRPS)),
		retry:      retry,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}
