package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mercantile/storesearch/internal/auth"
	"github.com/mercantile/storesearch/internal/catalog"
	"github.com/mercantile/storesearch/internal/config"
	"github.com/mercantile/storesearch/internal/metrics"
)

// SearchService is the service surface the HTTP layer consumes.
type SearchService interface {
	SearchProducts(ctx context.Context, query string, limit int) ([]catalog.Product, error)
}

// searchResponse is the typeahead endpoint's JSON payload.
type searchResponse struct {
	Query    string            `json:"query"`
	Count    int               `json:"count"`
	Products []catalog.Product `json:"products"`
}

// NewServer creates the HTTP server exposing the typeahead API, health
// check and metrics, wrapped in the configured auth middleware.
func NewServer(settings *config.Settings, svc SearchService) (*http.Server, error) {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/api/search", searchHandler(svc, settings.Search.MaxResults))

	authMiddleware, err := auth.NewMiddleware(settings.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth middleware: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", settings.Host, settings.Port)
	return &http.Server{
		Addr:    addr,
		Handler: authMiddleware(r),
	}, nil
}

// searchHandler serves GET /api/search?q=<query>&limit=<n>. An empty query
// returns the full catalog (browse-all); the limit is clamped to the
// configured maximum.
func searchHandler(svc SearchService, maxResults int) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		query := req.URL.Query().Get("q")

		limit := maxResults
		if raw := req.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			if n < limit {
				limit = n
			}
		}

		products, err := svc.SearchProducts(req.Context(), query, limit)
		if err != nil {
			slog.Error("Search request failed", "query", query, "error", err)
			http.Error(w, "search unavailable", http.StatusServiceUnavailable)
			return
		}
		if products == nil {
			products = []catalog.Product{}
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err := json.NewEncoder(w).Encode(searchResponse{
			Query:    query,
			Count:    len(products),
			Products: products,
		}); err != nil {
			slog.Error("Failed to encode search response", "error", err)
		}
	}
}
