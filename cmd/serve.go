package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/heliomap/solar-cli/internal/cache"
	"github.com/heliomap/solar-cli/internal/model"
	"github.com/heliomap/solar-cli/internal/sampler"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP estimation API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		c, err := openCache(ctx)
		if err != nil {
			return eris.Wrap(err, "open cache")
		}
		defer c.Close() //nolint:errcheck

		s := newSampler(c, 0)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: buildRouter(s, c),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// buildRouter assembles the API routes. The cache may be nil, in which case
// the cache endpoint reports unavailable.
func buildRouter(s *sampler.Sampler, c *cache.Cache) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/v1/point", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Lat *float64 `json:"lat"`
			Lng *float64 `json:"lng"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if body.Lat == nil || body.Lng == nil {
			writeError(w, http.StatusBadRequest, "lat and lng are required")
			return
		}

		roof, err := s.SamplePoint(req.Context(), model.GeographicPoint{Lat: *body.Lat, Lng: *body.Lng})
		if err != nil {
			zap.L().Error("point lookup failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, "point lookup failed")
			return
		}

		writeJSON(w, http.StatusOK, pointOutput{
			Lat:   *body.Lat,
			Lng:   *body.Lng,
			Found: roof != nil,
			Roof:  roof,
		})
	})

	r.Post("/v1/sample", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Polygon [][2]float64 `json:"polygon"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		poly := make(model.Polygon, 0, len(body.Polygon))
		for _, v := range body.Polygon {
			poly = append(poly, model.GeographicPoint{Lat: v[0], Lng: v[1]})
		}

		result, err := s.Estimate(req.Context(), poly)
		if err != nil {
			if errors.Is(err, model.ErrInvalidPolygon) {
				writeError(w, http.StatusBadRequest, "polygon requires at least 3 vertices")
				return
			}
			zap.L().Error("polygon estimate failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, "polygon estimate failed")
			return
		}

		writeJSON(w, http.StatusOK, sampleOutput{Found: result != nil, Estimate: result})
	})

	r.Delete("/v1/cache", func(w http.ResponseWriter, req *http.Request) {
		if c == nil {
			writeError(w, http.StatusServiceUnavailable, "cache not configured")
			return
		}
		if err := c.Clear(req.Context()); err != nil {
			zap.L().Error("cache clear failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "cache clear failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
