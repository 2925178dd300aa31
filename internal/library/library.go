// Package library couples the vector index, the record store, and the name
// index into one consistent media library. All mutation goes through a single
// lock so their contents never diverge.
package library

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/miru/internal/keyword"
	"github.com/hyperjump/miru/internal/models"
	"github.com/hyperjump/miru/internal/storage"
	"github.com/hyperjump/miru/internal/vector"
)

// ErrNotFound is returned for operations on record ids that do not exist.
var ErrNotFound = storage.ErrNotFound

const (
	metaGeneration = "generation"
	metaCount      = "count"
	metaNextID     = "next_id"
)

// Library owns the three stores that describe the indexed media set.
// Ids are assigned monotonically and never reused within a process.
type Library struct {
	index     vector.Index
	store     storage.Storage
	names     *keyword.NameIndex
	indexPath string
	logger    *zap.Logger

	mu     sync.Mutex
	nextID int64
}

// Option configures a Library.
type Option func(*Library)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(lib *Library) { lib.logger = l }
}

// New creates a library over the given stores. indexPath is where the vector
// index is persisted; it may be empty for an in-memory library.
func New(index vector.Index, store storage.Storage, names *keyword.NameIndex, indexPath string, opts ...Option) *Library {
	lib := &Library{
		index:     index,
		store:     store,
		names:     names,
		indexPath: indexPath,
		logger:    zap.NewNop(),
		nextID:    1,
	}
	for _, opt := range opts {
		opt(lib)
	}
	return lib
}

// Load restores the vector index from disk and verifies it against the record
// store. The persisted generation marker is written to both stores by Persist;
// a mismatch, or a record count disagreement, means one store was written
// without the other and the library refuses to serve from it.
func (l *Library) Load(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.index.Load(l.indexPath); err != nil {
		return err
	}

	storedGen, err := l.store.GetMeta(ctx, metaGeneration)
	if err != nil {
		return fmt.Errorf("read stored generation: %w", err)
	}
	if storedGen != l.index.Generation() {
		return fmt.Errorf("%w: generation mismatch between index (%q) and store (%q)",
			vector.ErrCorrupt, l.index.Generation(), storedGen)
	}

	count, err := l.store.CountRecords(ctx)
	if err != nil {
		return fmt.Errorf("count records: %w", err)
	}
	if int(count) != l.index.Size() {
		return fmt.Errorf("%w: index has %d vectors, store has %d records",
			vector.ErrCorrupt, l.index.Size(), count)
	}

	maxID, err := l.store.MaxID(ctx)
	if err != nil {
		return fmt.Errorf("read max id: %w", err)
	}
	l.nextID = maxID + 1

	// The persisted high-water mark keeps ids of removed records retired
	// across restarts, not just within a process.
	if stored, err := l.store.GetMeta(ctx, metaNextID); err != nil {
		return fmt.Errorf("read next id: %w", err)
	} else if stored != "" {
		if n, err := strconv.ParseInt(stored, 10, 64); err == nil && n > l.nextID {
			l.nextID = n
		}
	}

	l.logger.Debug("library loaded",
		zap.Int("vectors", l.index.Size()),
		zap.Int64("next_id", l.nextID))
	return nil
}

// Add stores a vector and its record under a fresh id. The two writes are
// treated as one unit: if the record insert fails the vector is rolled back.
// The same source path may be added more than once; each call appends a new
// record.
func (l *Library) Add(ctx context.Context, vec []float32, rec *models.MediaRecord) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	if err := l.index.Add(ctx, []int64{id}, [][]float32{vec}); err != nil {
		return 0, err
	}

	rec.ID = id
	if err := l.store.CreateRecord(ctx, rec); err != nil {
		if rbErr := l.index.Remove(ctx, []int64{id}); rbErr != nil {
			l.logger.Error("rollback of vector add failed", zap.Int64("id", id), zap.Error(rbErr))
		}
		return 0, fmt.Errorf("store record: %w", err)
	}

	if l.names != nil {
		if err := l.names.Index(ctx, id, rec.SourcePath); err != nil {
			// Name search degrades for this record; vectors and metadata are intact.
			l.logger.Warn("name index update failed", zap.Int64("id", id), zap.Error(err))
		}
	}

	l.nextID++
	return id, nil
}

// Search runs a vector similarity query and joins the hits with their records.
func (l *Library) Search(ctx context.Context, query []float32, k int) ([]*models.SearchResult, error) {
	hits, err := l.index.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	return l.resolve(ctx, hits)
}

// SearchByName runs a keyword query over file names and joins with records.
func (l *Library) SearchByName(ctx context.Context, query string, k int) ([]*models.SearchResult, error) {
	if l.names == nil {
		return []*models.SearchResult{}, nil
	}
	nameHits, err := l.names.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	hits := make([]*vector.Result, len(nameHits))
	for i, h := range nameHits {
		hits[i] = &vector.Result{ID: h.ID, Score: h.Score}
	}
	return l.resolve(ctx, hits)
}

func (l *Library) resolve(ctx context.Context, hits []*vector.Result) ([]*models.SearchResult, error) {
	results := make([]*models.SearchResult, 0, len(hits))
	for _, hit := range hits {
		rec, err := l.store.GetRecord(ctx, hit.ID)
		if err != nil {
			// A hit without a record means the stores diverged mid-flight;
			// skip it rather than fail the whole query.
			l.logger.Warn("search hit has no record", zap.Int64("id", hit.ID), zap.Error(err))
			continue
		}
		results = append(results, &models.SearchResult{
			Record: rec,
			Score:  hit.Score,
			Rank:   len(results) + 1,
		})
	}
	return results, nil
}

// Get returns the record with the given id, or ErrNotFound.
func (l *Library) Get(ctx context.Context, id int64) (*models.MediaRecord, error) {
	return l.store.GetRecord(ctx, id)
}

// List returns records ordered by id.
func (l *Library) List(ctx context.Context, offset, limit int) ([]*models.MediaRecord, error) {
	return l.store.ListRecords(ctx, offset, limit)
}

// Remove deletes the record and its vector. Returns ErrNotFound for unknown
// ids. The freed id is not reused.
func (l *Library) Remove(ctx context.Context, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.DeleteRecord(ctx, id); err != nil {
		return err
	}
	if err := l.index.Remove(ctx, []int64{id}); err != nil {
		return fmt.Errorf("remove vector: %w", err)
	}
	if l.names != nil {
		if err := l.names.Delete(ctx, id); err != nil {
			l.logger.Warn("name index delete failed", zap.Int64("id", id), zap.Error(err))
		}
	}
	return nil
}

// RemoveByPath deletes every record registered under sourcePath and returns
// the removed ids. An unknown path removes nothing and returns no error.
func (l *Library) RemoveByPath(ctx context.Context, sourcePath string) ([]int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids, err := l.store.DeleteByPath(ctx, sourcePath)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if err := l.index.Remove(ctx, ids); err != nil {
		return nil, fmt.Errorf("remove vectors: %w", err)
	}
	if l.names != nil {
		for _, id := range ids {
			if err := l.names.Delete(ctx, id); err != nil {
				l.logger.Warn("name index delete failed", zap.Int64("id", id), zap.Error(err))
			}
		}
	}
	return ids, nil
}

// Clear removes every record and vector. Idempotent; already-assigned ids
// stay burned.
func (l *Library) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := l.index.IDs()
	if err := l.store.Clear(ctx); err != nil {
		return err
	}
	l.index.Clear()
	if l.names != nil {
		for _, id := range ids {
			if err := l.names.Delete(ctx, id); err != nil {
				l.logger.Warn("name index delete failed", zap.Int64("id", id), zap.Error(err))
			}
		}
	}
	return nil
}

// Persist writes the vector index to disk and stamps both it and the record
// store with a fresh generation marker, so Load can detect a torn write.
func (l *Library) Persist(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	gen := uuid.New().String()
	l.index.SetGeneration(gen)
	if err := l.index.Save(l.indexPath); err != nil {
		return fmt.Errorf("save vector index: %w", err)
	}
	if err := l.store.SetMeta(ctx, map[string]string{
		metaGeneration: gen,
		metaCount:      strconv.Itoa(l.index.Size()),
		metaNextID:     strconv.FormatInt(l.nextID, 10),
	}); err != nil {
		return fmt.Errorf("store index metadata: %w", err)
	}
	l.logger.Debug("library persisted", zap.String("generation", gen), zap.Int("vectors", l.index.Size()))
	return nil
}

// Count returns the number of indexed records.
func (l *Library) Count() int {
	return l.index.Size()
}

// CountByType returns the number of records with the given media type.
func (l *Library) CountByType(ctx context.Context, mediaType models.MediaType) (int64, error) {
	return l.store.CountByType(ctx, mediaType)
}

// Close closes the underlying stores. It does not persist; call Persist first
// if the contents changed.
func (l *Library) Close() error {
	var firstErr error
	if err := l.index.Close(); err != nil {
		firstErr = err
	}
	if l.names != nil {
		if err := l.names.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := l.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
