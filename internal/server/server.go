// Package server wires the HTTP surface: station queries, threshold
// analysis, cache administration and operational endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/openfuelmap/fuelgrid/internal/config"
	"github.com/openfuelmap/fuelgrid/internal/health"
	"github.com/openfuelmap/fuelgrid/internal/invalidation"
	"github.com/openfuelmap/fuelgrid/internal/logger"
	imw "github.com/openfuelmap/fuelgrid/internal/middleware"
	"github.com/openfuelmap/fuelgrid/internal/model"
	"github.com/openfuelmap/fuelgrid/internal/pricing"
	"github.com/openfuelmap/fuelgrid/internal/query"
	"github.com/openfuelmap/fuelgrid/internal/remotecache"
	"github.com/openfuelmap/fuelgrid/internal/router"
	"github.com/openfuelmap/fuelgrid/internal/tilecache"
)

type Server struct {
	cfg         config.Config
	logger      zerolog.Logger
	tiles       *tilecache.Cache
	remote      *remotecache.Manager
	analyzer    *pricing.Analyzer
	invalidator *invalidation.Invalidator
	ready       func(ctx context.Context) error
}

func New(cfg config.Config, zl zerolog.Logger, tiles *tilecache.Cache, remote *remotecache.Manager,
	analyzer *pricing.Analyzer, invalidator *invalidation.Invalidator, ready func(ctx context.Context) error) *Server {
	return &Server{
		cfg:         cfg,
		logger:      zl,
		tiles:       tiles,
		remote:      remote,
		analyzer:    analyzer,
		invalidator: invalidator,
		ready:       ready,
	}
}

// Routes builds the full handler tree. Exposed separately from Run so
// tests can drive it with httptest.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(imw.Recover(s.logger))
	r.Use(imw.RequestID())
	r.Use(imw.Logging(s.logger))
	r.Use(imw.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(s.ready))
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/stations", s.handleStations)
	r.Get("/thresholds", s.handleThresholds)
	r.Get("/cache/stats", s.handleCacheStats)
	r.Post("/invalidate", s.handleInvalidate)
	r.Put("/dataset", s.handleDatasetUpload)

	return r
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("http listen")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

// handleStations serves the viewport query. Lookup order: tile cache,
// then the bbox-scoped remote entry, then the full remote dataset. The
// remote dataset is the source of truth published by the ingestion
// collaborator; without it and without cached tiles the request fails.
func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	zl := logger.FromContext(ctx, &s.logger)

	req, warn := router.ParseStationsRequest(r)
	if warn != "" {
		zl.Warn().Msg(warn)
	}

	var (
		stations []model.Station
		fresh    remotecache.Freshness
		source   string
	)

	switch {
	case req.Bounds != nil && s.tiles.HasValidData(*req.Bounds):
		stations = s.tiles.GetStations(*req.Bounds)
		source = "tile"
		fresh = remotecache.Freshness{
			Hit:    true,
			Age:    s.tiles.OldestAge(*req.Bounds),
			MaxAge: s.cfg.CacheExpiry,
		}

	case req.Bounds != nil:
		// a bbox-scoped remote payload holds only the viewport subset,
		// so it must never seed the tile cache: a partially covered
		// tile would be recorded as fresh while missing stations
		if payload, f, ok := s.remote.Get(ctx, remotecache.BBoxKey(*req.Bounds, "")); ok {
			if decoded, derr := decodeStations(payload); derr == nil {
				stations = decoded
				source = "remote-bbox"
				fresh = f
			} else {
				zl.Warn().Err(derr).Msg("remote bbox payload undecodable, falling back to dataset")
			}
		}
		if source == "" {
			ds, f, ok := s.loadDataset(ctx)
			if !ok {
				writeError(w, http.StatusServiceUnavailable, "station dataset unavailable")
				return
			}
			// the unfiltered set goes into the tile cache; StoreStations
			// buckets per tile, so every covered tile ends up holding
			// its full station population
			s.tiles.StoreStations(*req.Bounds, ds)
			stations = query.FilterByBounds(ds, *req.Bounds)
			source = "dataset"
			fresh = f
		}

	default:
		ds, f, ok := s.loadDataset(ctx)
		if !ok {
			writeError(w, http.StatusServiceUnavailable, "station dataset unavailable")
			return
		}
		stations = ds
		source = "dataset"
		fresh = f
	}

	stations = query.FilterAndOptimize(stations, req.Bounds, &req.Device, req.Center)
	if req.Fuel != "" {
		stations = filterByFuel(stations, req.Fuel)
	}

	w.Header().Set("X-Cache", fresh.XCache())
	w.Header().Set("X-Cache-Source", source)
	if fresh.Hit {
		w.Header().Set("Cache-Control", fresh.CacheControl())
	}
	writeJSON(w, http.StatusOK, model.ToFeatureCollection(stations))
}

// handleThresholds serves the current price analysis, optionally
// classifying one fuel+price pair against it.
func (s *Server) handleThresholds(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stations, _, ok := s.loadDataset(ctx)
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "station dataset unavailable")
		return
	}
	analysis := s.analyzer.Analyze(stations)

	fuel, price, classify, err := router.ParseClassifyRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := map[string]any{"thresholds": analysis}
	if classify {
		cat, known := pricing.ClassifyFuel(fuel)
		if !known {
			writeError(w, http.StatusBadRequest, "unrecognized fuel type")
			return
		}
		norm, plausible := pricing.NormalizePrice(price)
		if !plausible {
			writeError(w, http.StatusBadRequest, "price outside plausible range")
			return
		}
		resp["classification"] = map[string]any{
			"category": cat,
			"price":    norm,
			"level":    pricing.Classify(analysis, cat, norm),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	stats := s.tiles.Stats()
	entries, mem := s.tiles.Usage()
	writeJSON(w, http.StatusOK, map[string]any{
		"hits":         stats.Hits,
		"misses":       stats.Misses,
		"evictions":    stats.Evictions,
		"api_calls":    stats.APICalls,
		"entries":      entries,
		"memory_bytes": mem,
	})
}

// handleInvalidate runs one trigger against the backing store and
// mirrors it on the local tile cache.
func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	trigger, err := invalidation.ParseTrigger(r.URL.Query().Get("trigger"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	removed, err := s.invalidator.Run(r.Context(), trigger)
	if err != nil {
		writeError(w, http.StatusBadGateway, "invalidation failed: "+err.Error())
		return
	}

	local := 0
	switch trigger {
	case invalidation.TriggerCleanup:
		local = s.tiles.ClearExpired()
	default:
		entries, _ := s.tiles.Usage()
		s.tiles.Clear()
		local = entries
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"trigger":        trigger,
		"removed_remote": removed,
		"removed_local":  local,
	})
}

// handleDatasetUpload is the ingestion boundary: a full station
// FeatureCollection replaces the remote dataset, derived entries are
// purged and popular regions re-warmed.
func (s *Server) handleDatasetUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	zl := logger.FromContext(ctx, &s.logger)

	var fc model.FeatureCollection
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<20)).Decode(&fc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid feature collection: "+err.Error())
		return
	}
	stations := model.FromFeatureCollection(fc)
	if len(stations) == 0 {
		writeError(w, http.StatusBadRequest, "no valid stations in payload")
		return
	}

	if _, err := s.invalidator.Run(ctx, invalidation.TriggerScheduledUpdate); err != nil {
		zl.Warn().Err(err).Msg("pre-publish purge failed, continuing")
	}
	s.tiles.Clear()

	if err := s.remote.WarmDataset(ctx, stations); err != nil {
		writeError(w, http.StatusBadGateway, "dataset publish failed: "+err.Error())
		return
	}
	warmed := s.remote.WarmPopularRegions(ctx, stations)

	zl.Info().Int("stations", len(stations)).Int("regions_warmed", warmed).Msg("dataset published")
	writeJSON(w, http.StatusOK, map[string]any{
		"stations":       len(stations),
		"regions_warmed": warmed,
	})
}

// loadDataset pulls and decodes the full station dataset from the
// remote cache.
func (s *Server) loadDataset(ctx context.Context) ([]model.Station, remotecache.Freshness, bool) {
	payload, fresh, ok := s.remote.Get(ctx, remotecache.DatasetKey())
	if !ok {
		return nil, remotecache.Freshness{}, false
	}
	stations, err := decodeStations(payload)
	if err != nil {
		s.logger.Warn().Err(err).Msg("stored dataset undecodable")
		return nil, remotecache.Freshness{}, false
	}
	return stations, fresh, true
}

func decodeStations(payload []byte) ([]model.Station, error) {
	var fc model.FeatureCollection
	if err := json.Unmarshal(payload, &fc); err != nil {
		return nil, err
	}
	return model.FromFeatureCollection(fc), nil
}

// filterByFuel keeps stations quoting the requested fuel category.
func filterByFuel(stations []model.Station, fuel string) []model.Station {
	want, ok := pricing.ClassifyFuel(fuel)
	if !ok {
		return stations
	}
	out := make([]model.Station, 0, len(stations))
	for _, s := range stations {
		for code := range s.Prices {
			if cat, ok := pricing.ClassifyFuel(code); ok && cat == want {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
