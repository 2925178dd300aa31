// Package video folds sampled video frames into a single comparable embedding.
package video

import (
	"context"
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/hyperjump/miru/internal/embedding"
	"github.com/hyperjump/miru/internal/media"
	"github.com/hyperjump/miru/pkg/utils"
)

const defaultEmbedBatchSize = 16

// Aggregator embeds each sampled frame of a video and returns the renormalized
// component-wise mean. Averaging raw unit-norm embeddings and renormalizing
// keeps the result in the same metric space as single-image embeddings, so
// images and videos are directly comparable by inner product.
type Aggregator struct {
	embedder  *embedding.Embedder
	sampler   *media.Sampler
	batchSize int
	logger    *zap.Logger // optional; when set, logs per-video sampling stats
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithBatchSize bounds how many frames are embedded per encoder call.
func WithBatchSize(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n > 0 {
			a.batchSize = n
		}
	}
}

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) AggregatorOption {
	return func(a *Aggregator) { a.logger = l }
}

// NewAggregator creates an aggregator over the given embedder and sampler.
func NewAggregator(embedder *embedding.Embedder, sampler *media.Sampler, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		embedder:  embedder,
		sampler:   sampler,
		batchSize: defaultEmbedBatchSize,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate samples the video at path every intervalSec seconds, embeds each
// frame, and returns the unit-norm mean vector together with the frame count.
// A video that yields zero frames fails with a media error; a frame that fails
// to embed fails the whole operation (a silently dropped frame would corrupt
// the mean).
func (a *Aggregator) Aggregate(ctx context.Context, path string, intervalSec float64) ([]float32, int, error) {
	frames, err := a.sampler.Sample(path, intervalSec)
	if err != nil {
		return nil, 0, err
	}
	defer frames.Close()

	var (
		vectors [][]float32
		batch   []image.Image
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		embedded, err := a.embedder.EmbedImageBatch(ctx, batch)
		if err != nil {
			return err
		}
		vectors = append(vectors, embedded...)
		batch = batch[:0]
		return nil
	}

	for {
		frame, err := frames.Next()
		if err != nil {
			return nil, 0, err
		}
		if frame == nil {
			break
		}
		batch = append(batch, frame.Image)
		if len(batch) >= a.batchSize {
			if err := flush(); err != nil {
				return nil, 0, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, 0, err
	}

	if len(vectors) == 0 {
		return nil, 0, fmt.Errorf("%w: no frames sampled from %s", media.ErrMedia, path)
	}
	if a.logger != nil {
		a.logger.Debug("video aggregated",
			zap.String("path", path),
			zap.Int("frames", len(vectors)),
			zap.Float64("interval_sec", intervalSec),
		)
	}

	mean := utils.MeanVector(vectors)
	if utils.L2Norm(mean) == 0 {
		return nil, 0, fmt.Errorf("%w: degenerate frame aggregate for %s", media.ErrMedia, path)
	}
	utils.NormalizeL2(mean)
	return mean, len(vectors), nil
}
