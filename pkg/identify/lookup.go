package identify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/heliomap/solar-cli/internal/model"
	"github.com/heliomap/solar-cli/internal/resilience"
)

type identifyResponse struct {
	Results []identifyResult `json:"results"`
}

type identifyResult struct {
	FeatureID  any                 `json:"featureId"`
	ID         any                 `json:"id"`
	Label      string              `json:"label"`
	Attributes model.RawAttributes `json:"attributes"`
	Geometry   json.RawMessage     `json:"geometry"`
}

// AtPoint identifies features around pt within a ±boxRadius extent.
func (l *lookup) AtPoint(ctx context.Context, pt model.ProjectedPoint) ([]model.Candidate, error) {
	params := l.baseParams()
	params.Set("geometry", formatCoord(pt.Easting)+","+formatCoord(pt.Northing))
	params.Set("geometryType", "esriGeometryPoint")
	params.Set("mapExtent", fmt.Sprintf("%s,%s,%s,%s",
		formatCoord(pt.Easting-l.boxRadius), formatCoord(pt.Northing-l.boxRadius),
		formatCoord(pt.Easting+l.boxRadius), formatCoord(pt.Northing+l.boxRadius)))
	params.Set("returnGeometry", "true")

	return l.identify(ctx, params)
}

// InPolygon identifies features intersecting the projected ring.
func (l *lookup) InPolygon(ctx context.Context, ring []model.ProjectedPoint) ([]model.Candidate, error) {
	if len(ring) == 0 {
		return nil, eris.Wrap(ErrLookupFailed, "identify: empty polygon ring")
	}

	coords := make([][]float64, 0, len(ring))
	minE, minN := math.Inf(1), math.Inf(1)
	maxE, maxN := math.Inf(-1), math.Inf(-1)
	for _, p := range ring {
		coords = append(coords, []float64{p.Easting, p.Northing})
		minE = math.Min(minE, p.Easting)
		minN = math.Min(minN, p.Northing)
		maxE = math.Max(maxE, p.Easting)
		maxN = math.Max(maxN, p.Northing)
	}

	geomJSON, err := json.Marshal(map[string]any{"rings": [][][]float64{coords}})
	if err != nil {
		return nil, eris.Wrap(err, "identify: encode polygon geometry")
	}

	params := l.baseParams()
	params.Set("geometry", string(geomJSON))
	params.Set("geometryType", "esriGeometryPolygon")
	params.Set("mapExtent", fmt.Sprintf("%s,%s,%s,%s",
		formatCoord(minE), formatCoord(minN), formatCoord(maxE), formatCoord(maxN)))
	params.Set("returnGeometry", "false")

	return l.identify(ctx, params)
}

func (l *lookup) baseParams() url.Values {
	return url.Values{
		"imageDisplay": {identifyImageDisplay},
		"tolerance":    {strconv.Itoa(l.tolerance)},
		"layers":       {"all:" + l.layer},
		"sr":           {identifySRID},
	}
}

func (l *lookup) identify(ctx context.Context, params url.Values) ([]model.Candidate, error) {
	return resilience.DoVal(ctx, l.retry, func(ctx context.Context) ([]model.Candidate, error) {
		return l.exchange(ctx, params)
	})
}

// exchange performs one rate-limited round trip. Transport failures and
// retryable statuses come back as transient so the retry layer re-runs them;
// everything else fails the call outright.
func (l *lookup) exchange(ctx context.Context, params url.Values) ([]model.Candidate, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "identify: rate limit")
	}

	reqURL := l.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "identify: build request")
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrapf(ErrLookupFailed, "request: %v", err), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Wrapf(ErrLookupFailed, "status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(ErrLookupFailed, "read body: %v", err)
	}

	var out identifyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrapf(ErrLookupFailed, "parse response: %v", err)
	}

	cands := make([]model.Candidate, 0, len(out.Results))
	for _, r := range out.Results {
		cands = append(cands, r.toCandidate())
	}
	return cands, nil
}

// toCandidate merges result-level identifiers into the attribute map so the
// selector's dedup key chain sees them, and derives a centroid from geometry.
func (r identifyResult) toCandidate() model.Candidate {
	attrs := r.Attributes
	if attrs == nil {
		attrs = model.RawAttributes{}
	}
	if _, ok := attrs["featureId"]; !ok && r.FeatureID != nil {
		attrs["featureId"] = r.FeatureID
	}
	if _, ok := attrs["id"]; !ok && r.ID != nil {
		attrs["id"] = r.ID
	}
	if _, ok := attrs["label"]; !ok && r.Label != "" {
		attrs["label"] = r.Label
	}
	return model.Candidate{Attrs: attrs, Centroid: parseCentroid(r.Geometry)}
}

// geometryPayload covers both shapes the service returns: a point {x,y} or a
// polygon {rings}. Vertices with more than two ordinates lose the extras.
type geometryPayload struct {
	X     *float64       `json:"x"`
	Y     *float64       `json:"y"`
	Rings [][][2]float64 `json:"rings"`
}

func parseCentroid(raw json.RawMessage) *model.ProjectedPoint {
	if len(raw) == 0 {
		return nil
	}
	var g geometryPayload
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil
	}
	if g.X != nil && g.Y != nil {
		return &model.ProjectedPoint{Easting: *g.X, Northing: *g.Y}
	}
	if len(g.Rings) == 0 || len(g.Rings[0]) == 0 {
		return nil
	}

	// Centroid of the exterior ring as the plain vertex mean. A repeated
	// closing vertex would skew it, so an exact duplicate is dropped first.
	ring := g.Rings[0]
	if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
		ring = ring[:len(ring)-1]
	}
	var e, n float64
	for _, v := range ring {
		e += v[0]
		n += v[1]
	}
	cnt := float64(len(ring))
	return &model.ProjectedPoint{Easting: e / cnt, Northing: n / cnt}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
