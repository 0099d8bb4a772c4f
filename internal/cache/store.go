package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/mercantile/storesearch/internal/catalog"
	"github.com/mercantile/storesearch/internal/index"
	"github.com/mercantile/storesearch/internal/metrics"
)

// Filename is the cache database file under the data directory. A change
// to the snapshot's internal format must ship with a new filename, since
// the catalog version string is the only other freshness token.
const Filename = "search-cache-v1.db"

var (
	bucketName = []byte("search_cache")
	metaKey    = []byte("meta")
	indexKey   = []byte("index")
)

// Record is the durable (version, products, index) triple plus the time of
// the last successful sync. It is always replaced as a whole so the
// products and the index built from them can never drift apart. SyncedAt
// is informational only; staleness is decided by the version tag.
type Record struct {
	Version  string            `json:"version"`
	Products []catalog.Product `json:"products"`
	Index    index.Snapshot    `json:"-"`
	SyncedAt time.Time         `json:"syncedAt"`
}

// meta is the JSON-encoded portion of a record. The snapshot blob is
// stored under its own key to avoid base64 inflation of a binary payload;
// both keys are written in one transaction.
type meta struct {
	Version  string            `json:"version"`
	Products []catalog.Product `json:"products"`
	SyncedAt time.Time         `json:"syncedAt"`
}

// Store persists the cache record in a bbolt database. All methods follow
// the degrade-gracefully contract: reads of missing or corrupt state yield
// an empty record and writes that fail become logged no-ops. A nil store
// behaves like permanently empty storage.
type Store struct {
	db     *bolt.DB
	logger *slog.Logger
}

// Open opens or creates the cache database. Callers that cannot open the
// store may continue with a nil *Store.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		metrics.CacheErrorsTotal.WithLabelValues("open").Inc()
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "cache"),
	}, nil
}

// Read returns the cached record. It never fails: any storage error or
// corrupt content degrades to an empty record.
func (s *Store) Read() Record {
	if s == nil || s.db == nil {
		return Record{}
	}

	var rec Record
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return nil
		}

		if raw := b.Get(metaKey); raw != nil {
			var m meta
			if err := json.Unmarshal(raw, &m); err != nil {
				return fmt.Errorf("corrupt cache meta: %w", err)
			}
			rec.Version = m.Version
			rec.Products = m.Products
			rec.SyncedAt = m.SyncedAt
		}

		if raw := b.Get(indexKey); raw != nil {
			// bbolt values are only valid inside the transaction.
			rec.Index = append(index.Snapshot(nil), raw...)
		}
		return nil
	})
	if err != nil {
		metrics.CacheErrorsTotal.WithLabelValues("read").Inc()
		s.logger.Warn("Cache read failed, serving empty record", "error", err)
		return Record{}
	}
	return rec
}

// Write replaces the whole record in a single transaction. Failures are
// logged and counted but never surfaced; the caller's state is already
// correct in memory and the next successful sync rewrites the cache.
func (s *Store) Write(rec Record) {
	if s == nil || s.db == nil {
		return
	}

	m := meta{Version: rec.Version, Products: rec.Products, SyncedAt: rec.SyncedAt}
	raw, err := json.Marshal(m)
	if err != nil {
		metrics.CacheErrorsTotal.WithLabelValues("write").Inc()
		s.logger.Warn("Cache write failed to encode record", "error", err)
		return
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}
		if err := b.Put(metaKey, raw); err != nil {
			return err
		}
		if rec.Index == nil {
			return b.Delete(indexKey)
		}
		return b.Put(indexKey, rec.Index)
	})
	if err != nil {
		metrics.CacheErrorsTotal.WithLabelValues("write").Inc()
		s.logger.Warn("Cache write failed", "error", err)
	}
}

// Close releases the database file.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
