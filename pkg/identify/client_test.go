package identify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heliomap/solar-cli/internal/model"
	"github.com/heliomap/solar-cli/internal/resilience"
)

// fastRetry keeps the default attempt count but drops the backoff so error
// paths do not stall the suite.
func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}
}

func TestAtPoint(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2538175,1152145", q.Get("geometry"))
		assert.Equal(t, "esriGeometryPoint", q.Get("geometryType"))
		assert.Equal(t, "2538075,1152045,2538275,1152245", q.Get("mapExtent"))
		assert.Equal(t, "100,100,96", q.Get("imageDisplay"))
		assert.Equal(t, "5", q.Get("tolerance"))
		assert.Equal(t, "all:ch.bfe.solarenergie-eignung-daecher", q.Get("layers"))
		assert.Equal(t, "true", q.Get("returnGeometry"))
		assert.Equal(t, "2056", q.Get("sr"))

		w.Write([]byte(`{
			"results": [
				{
					"featureId": 4242,
					"attributes": {"flaeche": 35.25, "stromertrag": 4862, "klasse_text": "gut"},
					"geometry": {"x": 2538180.5, "y": 1152150.5}
				},
				{
					"attributes": {"flaeche": 12.0},
					"geometry": {"rings": [[[0,0],[10,0],[10,10],[0,10],[0,0]]]}
				},
				{
					"label": "Roof C",
					"attributes": {"flaeche": 3.0}
				}
			]
		}`)) //nolint:errcheck
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	cands, err := client.AtPoint(context.Background(), model.ProjectedPoint{Easting: 2538175, Northing: 1152145})
	require.NoError(t, err)
	require.Len(t, cands, 3)

	first := cands[0]
	area, ok := first.Attrs.Area()
	require.True(t, ok)
	assert.InDelta(t, 35.25, area, 1e-9)
	assert.Equal(t, "id:4242", first.Attrs.IdentityKey())
	require.NotNil(t, first.Centroid)
	assert.InDelta(t, 2538180.5, first.Centroid.Easting, 1e-9)
	assert.InDelta(t, 1152150.5, first.Centroid.Northing, 1e-9)

	// Ring centroid: closing vertex dropped, mean of the remaining four.
	second := cands[1]
	require.NotNil(t, second.Centroid)
	assert.InDelta(t, 5.0, second.Centroid.Easting, 1e-9)
	assert.InDelta(t, 5.0, second.Centroid.Northing, 1e-9)

	third := cands[2]
	assert.Nil(t, third.Centroid)
	assert.Equal(t, "label:Roof C", third.Attrs.IdentityKey())
}

func TestAtPointEmptyResults(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": []}`)) //nolint:errcheck
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	cands, err := client.AtPoint(context.Background(), model.ProjectedPoint{Easting: 1, Northing: 1})
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestAtPointServerError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRetry(fastRetry()))

	_, err := client.AtPoint(context.Background(), model.ProjectedPoint{Easting: 1, Northing: 1})
	assert.ErrorIs(t, err, ErrLookupFailed)
	assert.EqualValues(t, 3, calls.Load())
}

func TestAtPointRetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"results": [{"attributes": {"flaeche": 20}}]}`)) //nolint:errcheck
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRetry(fastRetry()))

	cands, err := client.AtPoint(context.Background(), model.ProjectedPoint{Easting: 1, Northing: 1})
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.EqualValues(t, 2, calls.Load())
}

func TestAtPointNoRetryOnClientError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRetry(fastRetry()))

	_, err := client.AtPoint(context.Background(), model.ProjectedPoint{Easting: 1, Northing: 1})
	assert.ErrorIs(t, err, ErrLookupFailed)
	assert.EqualValues(t, 1, calls.Load())
}

func TestInPolygon(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "esriGeometryPolygon", q.Get("geometryType"))
		assert.Equal(t, "false", q.Get("returnGeometry"))
		assert.Equal(t, "0,0,10,20", q.Get("mapExtent"))

		var geom struct {
			Rings [][][]float64 `json:"rings"`
		}
		require.NoError(t, json.Unmarshal([]byte(q.Get("geometry")), &geom))
		require.Len(t, geom.Rings, 1)
		assert.Equal(t, [][]float64{{0, 0}, {10, 0}, {10, 20}, {0, 20}}, geom.Rings[0])

		w.Write([]byte(`{"results": [{"attributes": {"gwr_egid": 77, "flaeche": 50}}]}`)) //nolint:errcheck
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	ring := []model.ProjectedPoint{
		{Easting: 0, Northing: 0},
		{Easting: 10, Northing: 0},
		{Easting: 10, Northing: 20},
		{Easting: 0, Northing: 20},
	}
	cands, err := client.InPolygon(context.Background(), ring)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "bldg:77", cands[0].Attrs.IdentityKey())
	assert.Nil(t, cands[0].Centroid)
}

func TestInPolygonEmptyRing(t *testing.T) {
	t.Parallel()

	client := NewClient(WithBaseURL("http://unused.invalid"))
	_, err := client.InPolygon(context.Background(), nil)
	assert.ErrorIs(t, err, ErrLookupFailed)
}
