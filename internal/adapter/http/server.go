// Package http serves a local single-user preview of the dashboard's
// filtered data. Every request builds its own state store from the request
// URL, so no filter state is shared between requests.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/couchcryptid/himark-dashboard/internal/adapter/history"
	"github.com/couchcryptid/himark-dashboard/internal/config"
	"github.com/couchcryptid/himark-dashboard/internal/domain"
	dashobs "github.com/couchcryptid/himark-dashboard/internal/observability"
	"github.com/couchcryptid/himark-dashboard/internal/state"
)

// RecordSource supplies the report records the API filters.
type RecordSource interface {
	observability.ReadinessChecker
	Records() []domain.Record
	Locations() []string
	Version() uint64
}

// Server exposes the preview API plus health, readiness, and metrics
// endpoints.
type Server struct {
	httpServer *http.Server
	source     RecordSource
	sync       config.SyncConfig
	cache      *lruCache[recordsResponse]
	logger     *slog.Logger
	metrics    *dashobs.Metrics
	tracer     trace.Tracer
}

// NewServer creates the preview server. cacheSize bounds the number of
// filtered results kept per dataset version.
func NewServer(addr string, source RecordSource, sync config.SyncConfig, cacheSize int, logger *slog.Logger, metrics *dashobs.Metrics) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      otelhttp.NewHandler(mux, "himark-dashboard"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		source:  source,
		sync:    sync,
		cache:   newLRUCache[recordsResponse](cacheSize),
		logger:  logger,
		metrics: metrics,
		tracer:  otel.Tracer("github.com/couchcryptid/himark-dashboard/internal/adapter/http"),
	}

	mux.HandleFunc("GET /healthz", observability.LivenessHandler())
	mux.HandleFunc("GET /readyz", observability.ReadinessHandler(source))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/records", s.handleRecords)
	mux.HandleFunc("GET /api/share", s.handleShare)
	mux.HandleFunc("GET /api/locations", s.handleLocations)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type filtersView struct {
	Location  string     `json:"location,omitempty"`
	Metric    string     `json:"metric,omitempty"`
	Threshold *float64   `json:"threshold,omitempty"`
	TimeStart *time.Time `json:"timeStart,omitempty"`
	TimeEnd   *time.Time `json:"timeEnd,omitempty"`
}

func viewOf(f domain.Filters) filtersView {
	v := filtersView{Location: f.Location, Metric: f.Metric, Threshold: f.Threshold}
	if f.TimeRange.Active() {
		start, end := f.TimeRange.Start.UTC(), f.TimeRange.End.UTC()
		v.TimeStart, v.TimeEnd = &start, &end
	}
	return v
}

type recordsResponse struct {
	Filters filtersView     `json:"filters"`
	Summary string          `json:"summary"`
	Count   int             `json:"count"`
	Records []domain.Record `json:"records"`
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "records.filter")
	defer span.End()

	if err := s.source.CheckReadiness(ctx); err != nil {
		observability.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}

	limit, err := parseLimit(r)
	if err != nil {
		observability.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	store, _, err := s.storeFor(r)
	if err != nil {
		observability.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	defer store.Close()

	filters := store.Filters()
	key := strconv.FormatUint(s.source.Version(), 10) + "|" + state.EncodeFilters(filters).Encode()

	resp, hit := s.cache.get(key)
	if hit {
		s.metrics.ResultCache.WithLabelValues("hit").Inc()
	} else {
		s.metrics.ResultCache.WithLabelValues("miss").Inc()
		records := store.ApplyFilters(s.source.Records(), domain.FilterConfig{})
		resp = recordsResponse{
			Filters: viewOf(filters),
			Summary: domain.SummarizeFilters(filters),
			Count:   len(records),
			Records: records,
		}
		s.cache.put(key, resp)
	}
	span.SetAttributes(
		attribute.Bool("cache.hit", hit),
		attribute.Int("records.count", resp.Count),
	)

	if limit > 0 && limit < len(resp.Records) {
		resp.Records = resp.Records[:limit]
	}
	observability.WriteJSON(w, http.StatusOK, resp)
}

type shareResponse struct {
	URL     string      `json:"url"`
	Filters filtersView `json:"filters"`
	Summary string      `json:"summary"`
}

// handleShare returns the canonical dashboard URL for the request's
// filters: recognized parameters only, in canonical form.
func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	_, span := s.tracer.Start(r.Context(), "records.share")
	defer span.End()

	store, hist, err := s.storeFor(r)
	if err != nil {
		observability.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	defer store.Close()

	if err := store.WriteURLFromState(); err != nil {
		observability.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	u, err := hist.URL()
	if err != nil {
		observability.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	filters := store.Filters()
	observability.WriteJSON(w, http.StatusOK, shareResponse{
		URL:     u.String(),
		Filters: viewOf(filters),
		Summary: domain.SummarizeFilters(filters),
	})
}

type locationView struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

func (s *Server) handleLocations(w http.ResponseWriter, _ *http.Request) {
	ids := s.source.Locations()
	out := make([]locationView, len(ids))
	for i, id := range ids {
		out[i] = locationView{ID: id, Name: domain.NeighborhoodName(id)}
	}
	observability.WriteJSON(w, http.StatusOK, out)
}

// storeFor builds a store whose location is the dashboard root carrying the
// request's query, and loads filters from it.
func (s *Server) storeFor(r *http.Request) (*state.Store, *history.Memory, error) {
	raw := "http://" + r.Host + "/"
	if r.URL.RawQuery != "" {
		raw += "?" + r.URL.RawQuery
	}
	hist, err := history.NewMemory(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("request url: %w", err)
	}

	store := state.New(
		state.WithSyncConfig(s.sync),
		state.WithURLSync(true),
		state.WithLocation(hist),
		state.WithLogger(s.logger),
		state.WithMetrics(s.metrics),
	)
	return store, hist, nil
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return n, nil
}
