package embedding

import (
	"context"
	"fmt"
	"image"

	"github.com/hyperjump/miru/pkg/utils"
)

// Embedder wraps an Encoder and guarantees every returned vector has exactly
// the declared dimension and unit L2 norm. It is stateless apart from its
// text-query caches; a failed call is surfaced, never silently skipped.
type Embedder struct {
	encoder   Encoder
	dims      int
	cache     *EmbeddingCache // in-process LRU for text queries
	diskCache *DiskCache      // optional persistent bbolt cache
}

// EmbedderOption configures an Embedder.
type EmbedderOption func(*Embedder)

// WithTextCache enables an in-process LRU cache for text embeddings.
func WithTextCache(capacity int) EmbedderOption {
	return func(e *Embedder) { e.cache = NewEmbeddingCache(capacity) }
}

// WithDiskCache layers a persistent bbolt cache under the LRU for text embeddings.
func WithDiskCache(dc *DiskCache) EmbedderOption {
	return func(e *Embedder) { e.diskCache = dc }
}

// NewEmbedder creates an Embedder over the given encoder.
func NewEmbedder(encoder Encoder, opts ...EmbedderOption) *Embedder {
	e := &Embedder{
		encoder: encoder,
		dims:    encoder.Dimensions(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dimensions returns the embedding dimension D.
func (e *Embedder) Dimensions() int {
	return e.dims
}

// EmbedImage returns the unit-norm embedding for one image.
func (e *Embedder) EmbedImage(ctx context.Context, img image.Image) ([]float32, error) {
	vec, err := e.encoder.EncodeImage(ctx, img)
	if err != nil {
		return nil, wrapModel(err)
	}
	return e.finalize(vec)
}

// EmbedImageBatch returns unit-norm embeddings for a batch of images, in order.
func (e *Embedder) EmbedImageBatch(ctx context.Context, imgs []image.Image) ([][]float32, error) {
	if len(imgs) == 0 {
		return nil, nil
	}
	vecs, err := e.encoder.EncodeImageBatch(ctx, imgs)
	if err != nil {
		return nil, wrapModel(err)
	}
	if len(vecs) != len(imgs) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d images", ErrModel, len(vecs), len(imgs))
	}
	out := make([][]float32, len(vecs))
	for i, vec := range vecs {
		out[i], err = e.finalize(vec)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// EmbedText returns the unit-norm embedding for a text query, using the caches
// when available.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(text); ok {
			return cached, nil
		}
	}
	if e.diskCache != nil {
		if cached, ok := e.diskCache.Get(text); ok && len(cached) == e.dims {
			if e.cache != nil {
				e.cache.Set(text, cached)
			}
			return cached, nil
		}
	}
	vec, err := e.encoder.EncodeText(ctx, text)
	if err != nil {
		return nil, wrapModel(err)
	}
	out, err := e.finalize(vec)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(text, out)
	}
	if e.diskCache != nil {
		_ = e.diskCache.Set(text, out)
	}
	return out, nil
}

// Close releases the underlying encoder and cache resources.
func (e *Embedder) Close() error {
	if e.diskCache != nil {
		_ = e.diskCache.Close()
	}
	return e.encoder.Close()
}

// finalize copies, checks dimension, and normalizes a raw encoder vector.
// A zero vector cannot be normalized and is reported as a model failure.
func (e *Embedder) finalize(vec []float32) ([]float32, error) {
	if len(vec) != e.dims {
		return nil, fmt.Errorf("%w: encoder returned %d dimensions, expected %d", ErrModel, len(vec), e.dims)
	}
	out := make([]float32, e.dims)
	copy(out, vec)
	if utils.L2Norm(out) == 0 {
		return nil, fmt.Errorf("%w: encoder returned a zero vector", ErrModel)
	}
	utils.NormalizeL2(out)
	return out, nil
}

func wrapModel(err error) error {
	return fmt.Errorf("%w: %v", ErrModel, err)
}
