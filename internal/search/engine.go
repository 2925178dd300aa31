// Package search provides the media search engine: registration of images
// and videos, and similarity queries against the library.
package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/miru/internal/config"
	"github.com/hyperjump/miru/internal/embedding"
	"github.com/hyperjump/miru/internal/library"
	"github.com/hyperjump/miru/internal/media"
	"github.com/hyperjump/miru/internal/models"
	"github.com/hyperjump/miru/internal/scan"
	"github.com/hyperjump/miru/internal/storage"
	"github.com/hyperjump/miru/internal/video"
	"github.com/hyperjump/miru/pkg/utils"
)

// Engine registers media files and serves search queries.
type Engine struct {
	library    *library.Library
	embedder   *embedding.Embedder
	aggregator *video.Aggregator
	sampler    *media.Sampler
	config     *config.Config
	logger     *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(
	lib *library.Library,
	embedder *embedding.Embedder,
	aggregator *video.Aggregator,
	sampler *media.Sampler,
	cfg *config.Config,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		library:    lib,
		embedder:   embedder,
		aggregator: aggregator,
		sampler:    sampler,
		config:     cfg,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register embeds the media file at path and adds it to the library,
// returning the new record id. The type is detected from the extension;
// unsupported extensions fail. Registering the same path again appends a
// second record rather than replacing the first.
func (e *Engine) Register(ctx context.Context, path string) (int64, error) {
	id, err := e.register(ctx, path)
	if err != nil {
		return 0, err
	}
	if err := e.library.Persist(ctx); err != nil {
		// The record committed but the index file did not. Back it out so
		// the store stays consistent with what is on disk.
		if rmErr := e.library.Remove(ctx, id); rmErr != nil {
			e.logger.Warn("rollback after failed persist", zap.Int64("id", id), zap.Error(rmErr))
		}
		return 0, err
	}
	return id, nil
}

func (e *Engine) register(ctx context.Context, path string) (int64, error) {
	kind := media.DetectKind(path)
	switch kind {
	case media.KindImage:
		return e.registerImage(ctx, path)
	case media.KindVideo:
		return e.registerVideo(ctx, path)
	default:
		return 0, fmt.Errorf("%w: unsupported media type: %s", media.ErrMedia, path)
	}
}

func (e *Engine) registerImage(ctx context.Context, path string) (int64, error) {
	img, err := media.LoadImage(path)
	if err != nil {
		return 0, err
	}
	vec, err := e.embedder.EmbedImage(ctx, img)
	if err != nil {
		return 0, err
	}
	id, err := e.library.Add(ctx, vec, &models.MediaRecord{
		MediaType:  models.MediaTypeImage,
		SourcePath: path,
		FrameCount: 1,
	})
	if err != nil {
		return 0, err
	}
	e.logger.Debug("image registered", zap.Int64("id", id), zap.String("path", path))
	return id, nil
}

func (e *Engine) registerVideo(ctx context.Context, path string) (int64, error) {
	vec, frames, err := e.aggregator.Aggregate(ctx, path, e.config.Video.FrameIntervalSec)
	if err != nil {
		return 0, err
	}
	id, err := e.library.Add(ctx, vec, &models.MediaRecord{
		MediaType:  models.MediaTypeVideo,
		SourcePath: path,
		FrameCount: frames,
	})
	if err != nil {
		return 0, err
	}
	e.logger.Debug("video registered",
		zap.Int64("id", id), zap.String("path", path), zap.Int("frames", frames))
	return id, nil
}

// RegisterBatch walks dir for media files and registers each one. A file that
// fails to decode or embed is reported in the result and does not abort the
// rest. progress, when non-nil, is called once per attempted file. The
// library is persisted once at the end.
func (e *Engine) RegisterBatch(ctx context.Context, dir string, progress func()) (*models.BatchResult, error) {
	walker := scan.NewWalker(e.config.Scan.Includes, e.config.Scan.Excludes)
	files, err := walker.Walk(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	result := &models.BatchResult{IDs: make([]int64, 0, len(files))}
	var cancelErr error
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			cancelErr = err
			break
		}
		id, err := e.register(ctx, f.Path)
		if err != nil {
			e.logger.Warn("batch registration failed for file",
				zap.String("path", f.Path), zap.Error(err))
			result.Failures = append(result.Failures, models.BatchFailure{
				Path: f.Path, Error: err.Error(),
			})
		} else {
			result.IDs = append(result.IDs, id)
		}
		if progress != nil {
			progress()
		}
	}

	// Persist runs even when the batch was cut short: records committed so
	// far would otherwise be unreachable on the next load. A cancelled
	// context must not skip durability, so persist detaches from it.
	persistCtx := ctx
	if cancelErr != nil {
		persistCtx = context.Background()
	}
	if err := e.library.Persist(persistCtx); err != nil {
		return nil, err
	}
	if cancelErr != nil {
		e.logger.Info("batch registration interrupted",
			zap.Int("registered", len(result.IDs)), zap.Int("failed", len(result.Failures)))
		return nil, cancelErr
	}
	e.logger.Info("batch registration finished",
		zap.Int("registered", len(result.IDs)), zap.Int("failed", len(result.Failures)))
	return result, nil
}

// Reindex replaces all records registered under path with one fresh record.
// Used when a watched file changes on disk.
func (e *Engine) Reindex(ctx context.Context, path string) (int64, error) {
	removed, err := e.library.RemoveByPath(ctx, path)
	if err != nil {
		return 0, err
	}
	if len(removed) > 0 {
		e.logger.Debug("reindex removed stale records",
			zap.String("path", path), zap.Int64s("ids", removed))
	}
	return e.Register(ctx, path)
}

// RemoveByPath deletes every record registered under path and persists.
func (e *Engine) RemoveByPath(ctx context.Context, path string) ([]int64, error) {
	ids, err := e.library.RemoveByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return ids, e.library.Persist(ctx)
}

// Search validates the query, embeds it according to its type, and returns
// the nearest records. Name queries go to the keyword index instead of the
// vector index.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()

	if query.Limit <= 0 {
		query.Limit = e.config.Search.DefaultLimit
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if max := e.config.Search.MaxLimit; max > 0 && query.Limit > max {
		query.Limit = max
	}

	var (
		results []*models.SearchResult
		err     error
	)
	switch query.Type {
	case models.QueryTypeName:
		results, err = e.library.SearchByName(ctx, query.Query, query.Limit)
	default:
		var vec []float32
		vec, err = e.embedQuery(ctx, query)
		if err == nil {
			results, err = e.library.Search(ctx, vec, query.Limit)
		}
	}
	if err != nil {
		return nil, err
	}

	e.logger.Debug("search finished",
		zap.String("query", utils.Truncate(query.Query, 80)),
		zap.String("type", string(query.Type)),
		zap.Int("results", len(results)))

	return &models.SearchResponse{
		Results:   results,
		Total:     len(results),
		QueryTime: time.Since(startTime).Milliseconds(),
		Query:     query.Query,
		Type:      query.Type,
	}, nil
}

func (e *Engine) embedQuery(ctx context.Context, query *models.SearchQuery) ([]float32, error) {
	switch query.Type {
	case models.QueryTypeText:
		return e.embedder.EmbedText(ctx, query.Query)
	case models.QueryTypeImage:
		img, err := media.LoadImage(query.Query)
		if err != nil {
			return nil, err
		}
		return e.embedder.EmbedImage(ctx, img)
	case models.QueryTypeVideo:
		vec, _, err := e.aggregator.Aggregate(ctx, query.Query, e.config.Video.FrameIntervalSec)
		return vec, err
	default:
		return nil, fmt.Errorf("unknown query type: %s", query.Type)
	}
}

// Get returns the record with the given id.
func (e *Engine) Get(ctx context.Context, id int64) (*models.MediaRecord, error) {
	return e.library.Get(ctx, id)
}

// List returns registered records ordered by id.
func (e *Engine) List(ctx context.Context, offset, limit int) ([]*models.MediaRecord, error) {
	return e.library.List(ctx, offset, limit)
}

// Remove deletes the record with the given id and persists.
func (e *Engine) Remove(ctx context.Context, id int64) error {
	if err := e.library.Remove(ctx, id); err != nil {
		return err
	}
	return e.library.Persist(ctx)
}

// Clear removes every record and persists the empty library.
func (e *Engine) Clear(ctx context.Context) error {
	if err := e.library.Clear(ctx); err != nil {
		return err
	}
	return e.library.Persist(ctx)
}

// Info reports library counts, dimensions, and on-disk footprint.
func (e *Engine) Info(ctx context.Context) (*models.Info, error) {
	images, err := e.library.CountByType(ctx, models.MediaTypeImage)
	if err != nil {
		return nil, err
	}
	videos, err := e.library.CountByType(ctx, models.MediaTypeVideo)
	if err != nil {
		return nil, err
	}
	usage, err := storage.DiskUsageBytes(
		e.config.Storage.DatabasePath,
		e.config.Storage.VectorIndexPath,
		e.config.Storage.NameIndexPath,
	)
	if err != nil {
		return nil, err
	}
	return &models.Info{
		RecordCount:    int64(e.library.Count()),
		ImageCount:     images,
		VideoCount:     videos,
		Dimensions:     e.embedder.Dimensions(),
		DiskUsageBytes: usage,
		DatabasePath:   e.config.Storage.DatabasePath,
		IndexPath:      e.config.Storage.VectorIndexPath,
	}, nil
}

// VideoInfo probes the video at path without registering it.
func (e *Engine) VideoInfo(path string) (media.Info, error) {
	return e.sampler.Info(path)
}

// Close closes the embedder and the library.
func (e *Engine) Close() error {
	embErr := e.embedder.Close()
	if err := e.library.Close(); err != nil {
		return err
	}
	return embErr
}
