package search

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mercantile/storesearch/internal/cache"
	"github.com/mercantile/storesearch/internal/catalog"
	"github.com/mercantile/storesearch/internal/index"
	"github.com/mercantile/storesearch/internal/metrics"
)

// DefaultLimit is the result cap applied when a caller does not specify one.
const DefaultLimit = 250

// IndexClient is the worker bridge surface the service depends on.
type IndexClient interface {
	BuildIndex(ctx context.Context, docs []catalog.SearchDoc) (index.Snapshot, error)
	LoadIndex(ctx context.Context, snap index.Snapshot) error
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// Service owns the lifecycle of the cached product list, the live worker
// index and the sync state. It is the only component other layers talk to.
//
// Initialization is single-flight: however many callers arrive
// concurrently, the cache is hydrated exactly once and everyone awaits the
// in-flight attempt. Queries issued before initialization completes wait
// on it rather than racing an uninitialized worker.
type Service struct {
	store  *cache.Store
	client IndexClient
	syncer Syncer
	logger *slog.Logger

	initGroup singleflight.Group
	ready     atomic.Bool

	mu       sync.RWMutex
	products []catalog.Product
	byID     map[string]catalog.Product
	version  string
}

// NewService creates the service. syncer may be nil, in which case the
// service runs purely off the cache and bundled fallback catalog.
func NewService(store *cache.Store, client IndexClient, syncer Syncer) *Service {
	return &Service{
		store:  store,
		client: client,
		syncer: syncer,
		logger: slog.Default().With("component", "search-service"),
	}
}

// Start hydrates the service and, when a syncer is configured, kicks off
// the background sync loop. Sync never blocks query availability.
func (s *Service) Start(ctx context.Context, syncInterval time.Duration) error {
	if err := s.ensureReady(ctx); err != nil {
		return err
	}
	if s.syncer != nil {
		go s.syncLoop(ctx, syncInterval)
	}
	return nil
}

// ensureReady initializes the service exactly once. A failed attempt
// leaves the service uninitialized so the next caller retries.
func (s *Service) ensureReady(ctx context.Context) error {
	if s.ready.Load() {
		return nil
	}

	_, err, _ := s.initGroup.Do("init", func() (any, error) {
		if s.ready.Load() {
			return nil, nil
		}
		if err := s.initialize(ctx); err != nil {
			return nil, err
		}
		s.ready.Store(true)
		return nil, nil
	})
	return err
}

// initialize hydrates state from the persistent cache. A cached snapshot
// is loaded as-is (no recompute); otherwise the index is built from cached
// products, or from the bundled fallback catalog on first run, and the
// result is written back.
func (s *Service) initialize(ctx context.Context) error {
	rec := s.store.Read()

	if len(rec.Index) > 0 {
		err := s.client.LoadIndex(ctx, rec.Index)
		if err == nil {
			s.setCatalog(rec.Products, rec.Version)
			s.logger.Info("Loaded index from cache", "version", rec.Version, "products", len(rec.Products))
			return nil
		}
		// A stale or incompatible snapshot is not fatal; rebuild below.
		s.logger.Warn("Cached index rejected by worker, rebuilding", "error", err)
	}

	products := rec.Products
	version := rec.Version
	if len(products) == 0 {
		products = catalog.Fallback()
		version = ""
	}

	snap, err := s.buildIndex(ctx, products)
	if err != nil {
		return err
	}

	s.setCatalog(products, version)
	s.store.Write(cache.Record{
		Version:  version,
		Products: products,
		Index:    snap,
		SyncedAt: time.Now(),
	})
	s.logger.Info("Built index", "version", version, "products", len(products))
	return nil
}

// SyncOnce performs one conditional sync round. The returned error exists
// for logging and tests; callers on the query path never see it.
func (s *Service) SyncOnce(ctx context.Context) error {
	if s.syncer == nil {
		return nil
	}

	resp, notModified, err := s.syncer.Fetch(ctx, s.Version())
	if err != nil {
		metrics.SyncTotal.WithLabelValues("error").Inc()
		s.logger.Warn("Catalog sync failed, serving cached index", "error", err)
		return err
	}
	if notModified {
		metrics.SyncTotal.WithLabelValues("not_modified").Inc()
		return nil
	}

	snap, err := s.buildIndex(ctx, resp.Products)
	if err != nil {
		metrics.SyncTotal.WithLabelValues("error").Inc()
		s.logger.Warn("Index rebuild after sync failed, serving cached index", "error", err)
		return err
	}

	s.setCatalog(resp.Products, resp.Version)
	s.store.Write(cache.Record{
		Version:  resp.Version,
		Products: resp.Products,
		Index:    snap,
		SyncedAt: time.Now(),
	})

	metrics.SyncTotal.WithLabelValues("updated").Inc()
	s.logger.Info("Catalog synced", "version", resp.Version, "products", len(resp.Products))
	return nil
}

// syncLoop runs one immediate sync and then re-syncs on the interval until
// the context is cancelled. Interval <= 0 disables periodic re-sync.
func (s *Service) syncLoop(ctx context.Context, interval time.Duration) {
	_ = s.SyncOnce(ctx)

	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.SyncOnce(ctx)
		}
	}
}

// SearchProducts resolves a query to products. An empty or whitespace-only
// query returns the full current product list (the browse-all behavior).
// Worker failures degrade to a substring fallback; this method never fails
// once initialization has succeeded.
func (s *Service) SearchProducts(ctx context.Context, query string, limit int) ([]catalog.Product, error) {
	if err := s.ensureReady(ctx); err != nil {
		return nil, err
	}

	if strings.TrimSpace(query) == "" {
		return s.Products(), nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	start := time.Now()
	defer func() {
		metrics.QueryDuration.Observe(time.Since(start).Seconds())
	}()

	ids, err := s.client.Search(ctx, query, limit)
	if err != nil {
		metrics.FallbackSearchesTotal.Inc()
		s.logger.Warn("Worker search failed, using substring fallback", "error", err)
		return s.fallbackSearch(query, limit), nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]catalog.Product, 0, len(ids))
	for _, id := range ids {
		// Ids from a stale index may not exist in a newer product list.
		if p, ok := s.byID[id]; ok {
			results = append(results, p)
		}
	}
	return results, nil
}

// fallbackSearch is the degraded path: a case-insensitive substring match
// against title, brand or collection of the in-memory product list. Each
// field is matched on its own, so a query spanning two fields is no hit.
func (s *Service) fallbackSearch(query string, limit int) []catalog.Product {
	needle := strings.ToLower(strings.TrimSpace(query))

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]catalog.Product, 0)
	for _, p := range s.products {
		if len(results) >= limit {
			break
		}
		if strings.Contains(strings.ToLower(p.Title), needle) ||
			strings.Contains(strings.ToLower(p.Brand), needle) ||
			strings.Contains(strings.ToLower(p.Collection), needle) {
			results = append(results, p)
		}
	}
	return results
}

// Products returns a copy of the current product list.
func (s *Service) Products() []catalog.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.Product, len(s.products))
	copy(out, s.products)
	return out
}

// Version returns the current catalog version tag.
func (s *Service) Version() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// buildIndex normalizes products and builds a fresh worker index.
func (s *Service) buildIndex(ctx context.Context, products []catalog.Product) (index.Snapshot, error) {
	start := time.Now()
	snap, err := s.client.BuildIndex(ctx, catalog.ToSearchDocs(products))
	if err != nil {
		return nil, err
	}
	metrics.IndexBuildDuration.Observe(time.Since(start).Seconds())
	return snap, nil
}

// setCatalog replaces the product list and rebuilds the id lookup map.
func (s *Service) setCatalog(products []catalog.Product, version string) {
	byID := make(map[string]catalog.Product, len(products))
	for _, p := range products {
		byID[p.Slug] = p
	}

	s.mu.Lock()
	s.products = products
	s.byID = byID
	s.version = version
	s.mu.Unlock()
}
