// Package embedding provides image and text embedding via a CLIP encoder, with caching.
package embedding

import (
	"context"
	"errors"
	"image"
)

// ErrModel indicates the external encoder could not run (missing weights,
// device unavailable, corrupt input). Callers test with errors.Is.
var ErrModel = errors.New("encoder model failure")

// Encoder produces raw embedding vectors from a multimodal (text/image) model.
// Implementations declare their output dimension; vectors may or may not be
// pre-normalized (the Embedder normalizes after every call).
type Encoder interface {
	EncodeImage(ctx context.Context, img image.Image) ([]float32, error)
	EncodeImageBatch(ctx context.Context, imgs []image.Image) ([][]float32, error)
	EncodeText(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Close() error
}
