package reframe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heliomap/solar-cli/internal/model"
)

func TestProjectPrimary(t *testing.T) {
	t.Parallel()

	var fallbackCalls atomic.Int64

	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "6.631", r.URL.Query().Get("easting"))
		assert.Equal(t, "46.519", r.URL.Query().Get("northing"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		// The live service quotes its numbers.
		w.Write([]byte(`{"easting": "2538175.25", "northing": "1152145.5"}`)) //nolint:errcheck
	}))
	defer primary.Close()

	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fallbackCalls.Add(1)
		w.Write([]byte(`{"easting": 1, "northing": 1}`)) //nolint:errcheck
	}))
	defer fallback.Close()

	client := NewClient(WithEndpoints(primary.URL, fallback.URL))

	proj, err := client.Project(context.Background(), model.GeographicPoint{Lat: 46.519, Lng: 6.631})
	require.NoError(t, err)
	assert.InDelta(t, 2538175.25, proj.Easting, 1e-9)
	assert.InDelta(t, 1152145.5, proj.Northing, 1e-9)
	assert.Zero(t, fallbackCalls.Load(), "fallback must not be called when primary succeeds")
}

func TestProjectFallback(t *testing.T) {
	t.Parallel()

	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer primary.Close()

	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"easting": 2538175, "northing": 1152145}`)) //nolint:errcheck
	}))
	defer fallback.Close()

	client := NewClient(WithEndpoints(primary.URL, fallback.URL))

	proj, err := client.Project(context.Background(), model.GeographicPoint{Lat: 46.519, Lng: 6.631})
	require.NoError(t, err)
	assert.InDelta(t, 2538175.0, proj.Easting, 1e-9)
	assert.InDelta(t, 1152145.0, proj.Northing, 1e-9)
}

func TestProjectBothFail(t *testing.T) {
	t.Parallel()

	var primaryCalls, fallbackCalls atomic.Int64

	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		primaryCalls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer primary.Close()

	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fallbackCalls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer fallback.Close()

	client := NewClient(WithEndpoints(primary.URL, fallback.URL))

	_, err := client.Project(context.Background(), model.GeographicPoint{Lat: 46.519, Lng: 6.631})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConversionFailed)
	assert.EqualValues(t, 1, primaryCalls.Load(), "exactly one primary attempt")
	assert.EqualValues(t, 1, fallbackCalls.Load(), "exactly one fallback attempt")
}

func TestProjectMalformedResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"easting": "not a number"}`)) //nolint:errcheck
	}))
	defer server.Close()

	client := NewClient(WithEndpoints(server.URL, server.URL))

	_, err := client.Project(context.Background(), model.GeographicPoint{Lat: 46.519, Lng: 6.631})
	assert.ErrorIs(t, err, ErrConversionFailed)
}
