package index

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/google/uuid"
	"github.com/mercantile/storesearch/internal/catalog"
)

const (
	// IndexSuffix is the suffix for engine directories
	IndexSuffix = ".bleve"

	// MaxBatchSize is the maximum number of documents per indexing batch
	MaxBatchSize = 100

	// MaxFuzziness caps the edit-distance tolerance applied to query terms
	MaxFuzziness = 2
)

// Snapshot is an opaque serialized form of an engine's state. It is
// produced only by Build, consumed only by Load and treated as a byte blob
// everywhere else. Changing its internal layout requires invalidating the
// persistent cache (see the cache package).
type Snapshot []byte

// Field boosts applied at query time. Title outweighs brand, brand
// outweighs collection/taxonomy, description is light and sizes lightest.
var fieldBoosts = []struct {
	field string
	boost float64
}{
	{catalog.DocFieldTitle, 5.0},
	{catalog.DocFieldBrand, 4.0},
	{catalog.DocFieldCollection, 3.0},
	{catalog.DocFieldTaxonomy, 3.0},
	{catalog.DocFieldDescription, 1.5},
	{catalog.DocFieldSizes, 1.0},
}

// Engine wraps a live Bleve index materialized in a directory under the
// worker's base dir. It is owned exclusively by the worker goroutine.
type Engine struct {
	idx  bleve.Index
	path string
}

// createMapping creates the Bleve index mapping for search documents.
func createMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	for _, fb := range fieldBoosts {
		field := bleve.NewTextFieldMapping()
		field.Analyzer = standard.Name
		field.Store = false
		field.IncludeInAll = false
		docMapping.AddFieldMappingsAt(fb.field, field)
	}

	// ID is carried as the document key; keep the field itself out of the index.
	idField := bleve.NewTextFieldMapping()
	idField.Index = false
	idField.Store = false
	docMapping.AddFieldMappingsAt("id", idField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping
}

// enginePath returns a fresh directory name for an engine materialization.
func enginePath(baseDir string) string {
	return filepath.Join(baseDir, "idx-"+uuid.NewString()+IndexSuffix)
}

// Build constructs a fresh engine from the given document set and returns
// it together with its serialized snapshot. An empty document set produces
// an empty but valid engine.
func Build(baseDir string, docs []catalog.SearchDoc) (*Engine, Snapshot, error) {
	path := enginePath(baseDir)

	idx, err := bleve.New(path, createMapping())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create index: %w", err)
	}

	batch := idx.NewBatch()
	batchSize := 0
	for _, doc := range docs {
		if err := batch.Index(doc.ID, doc); err != nil {
			_ = idx.Close()
			return nil, nil, fmt.Errorf("failed to index document %s: %w", doc.ID, err)
		}
		batchSize++
		if batchSize >= MaxBatchSize {
			if err := idx.Batch(batch); err != nil {
				_ = idx.Close()
				return nil, nil, fmt.Errorf("batch index failed: %w", err)
			}
			batch = idx.NewBatch()
			batchSize = 0
		}
	}
	if batchSize > 0 {
		if err := idx.Batch(batch); err != nil {
			_ = idx.Close()
			return nil, nil, fmt.Errorf("final batch index failed: %w", err)
		}
	}

	// The snapshot is taken from the closed on-disk state so it captures a
	// consistent view, then the engine is reopened for serving.
	if err := idx.Close(); err != nil {
		return nil, nil, fmt.Errorf("failed to flush index: %w", err)
	}

	snap, err := archiveDir(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to serialize index: %w", err)
	}

	idx, err = bleve.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reopen index: %w", err)
	}

	return &Engine{idx: idx, path: path}, snap, nil
}

// Load materializes an engine from a serialized snapshot. Malformed or
// incompatible snapshots surface as errors, never panics. Loading the same
// snapshot repeatedly yields engines with equivalent query results.
func Load(baseDir string, snap Snapshot) (*Engine, error) {
	if len(snap) == 0 {
		return nil, fmt.Errorf("empty index snapshot")
	}

	path := enginePath(baseDir)
	if err := extractArchive(snap, path); err != nil {
		removeDir(path)
		return nil, fmt.Errorf("invalid index snapshot: %w", err)
	}

	idx, err := bleve.Open(path)
	if err != nil {
		removeDir(path)
		return nil, fmt.Errorf("failed to open index from snapshot: %w", err)
	}

	return &Engine{idx: idx, path: path}, nil
}

// Search runs a normalized prefix+fuzzy query and returns up to limit
// document ids ordered by descending relevance. Tie order between equal
// scores follows the engine's internal order and is not guaranteed stable
// across builds.
func (e *Engine) Search(queryStr string, limit int) ([]string, error) {
	terms := strings.Fields(strings.ToLower(catalog.Normalize(queryStr)))
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		return nil, nil
	}

	searchReq := bleve.NewSearchRequest(buildQuery(terms))
	searchReq.Size = limit

	results, err := e.idx.Search(searchReq)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	ids := make([]string, 0, len(results.Hits))
	for _, hit := range results.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// buildQuery constructs the disjunction of per-term field queries. Each
// term matches as a prefix and, for longer terms, fuzzily across all
// searchable fields with the configured boosts.
func buildQuery(terms []string) query.Query {
	termQueries := make([]query.Query, 0, len(terms))

	for _, term := range terms {
		fz := fuzziness(term)
		fieldQueries := make([]query.Query, 0, len(fieldBoosts)*2)

		for _, fb := range fieldBoosts {
			prefix := bleve.NewPrefixQuery(term)
			prefix.SetField(fb.field)
			prefix.SetBoost(fb.boost)
			fieldQueries = append(fieldQueries, prefix)

			if fz > 0 {
				fuzzy := bleve.NewFuzzyQuery(term)
				fuzzy.SetField(fb.field)
				fuzzy.SetFuzziness(fz)
				fuzzy.SetBoost(fb.boost)
				fieldQueries = append(fieldQueries, fuzzy)
			}
		}

		termQueries = append(termQueries, bleve.NewDisjunctionQuery(fieldQueries...))
	}

	return bleve.NewDisjunctionQuery(termQueries...)
}

// fuzziness returns the edit-distance tolerance for a term: one typo per
// five runes, capped at MaxFuzziness. The floor means terms shorter than
// five runes must match exactly, which keeps short prefixes precise.
func fuzziness(term string) int {
	f := len([]rune(term)) / 5
	if f > MaxFuzziness {
		f = MaxFuzziness
	}
	return f
}

// DocCount returns the number of documents in the engine.
func (e *Engine) DocCount() (uint64, error) {
	return e.idx.DocCount()
}

// Path returns the directory backing this engine.
func (e *Engine) Path() string {
	return e.path
}

// Close releases the engine. The backing directory is left for the owner
// to reclaim via Path.
func (e *Engine) Close() error {
	return e.idx.Close()
}
