package search

import (
	"context"
	"sync"

	"github.com/mercantile/storesearch/internal/catalog"
)

// Status is the watcher's externally visible state.
type Status string

// Watcher states
const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// ProductSearcher is the service surface a watcher consumes.
type ProductSearcher interface {
	SearchProducts(ctx context.Context, query string, limit int) ([]catalog.Product, error)
}

// Watcher bridges the async service into a state cell safe to poll from a
// synchronous consumer (the typeahead). Each query change bumps a sequence
// number; a resolution carrying a stale sequence is discarded, so a slow
// result for an old query can never overwrite the state of a newer one.
// This is logical cancellation only: in-flight work is not aborted.
type Watcher struct {
	searcher ProductSearcher

	mu       sync.Mutex
	seq      uint64
	status   Status
	products []catalog.Product
}

// NewWatcher creates a watcher in the ready state with no results.
func NewWatcher(searcher ProductSearcher) *Watcher {
	return &Watcher{
		searcher: searcher,
		status:   StatusReady,
	}
}

// SetQuery transitions to loading and resolves the query asynchronously.
func (w *Watcher) SetQuery(ctx context.Context, query string) {
	w.mu.Lock()
	w.seq++
	seq := w.seq
	w.status = StatusLoading
	w.mu.Unlock()

	go w.resolve(ctx, seq, query)
}

func (w *Watcher) resolve(ctx context.Context, seq uint64, query string) {
	products, err := w.searcher.SearchProducts(ctx, query, 0)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.seq != seq {
		// Superseded by a newer query.
		return
	}
	if err != nil {
		w.status = StatusError
		w.products = nil
		return
	}
	w.status = StatusReady
	w.products = products
}

// State returns the current status and result set.
func (w *Watcher) State() (Status, []catalog.Product) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status, w.products
}
