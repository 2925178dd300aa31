// Package vector provides the similarity-search structure over unit-norm
// embedding vectors.
package vector

import (
	"context"
	"errors"
)

// ErrDimension indicates a vector whose length does not match the index dimension.
var ErrDimension = errors.New("vector dimension mismatch")

// ErrNorm indicates a vector that is not unit-norm within tolerance.
var ErrNorm = errors.New("vector is not unit-norm")

// ErrCorrupt indicates a persisted index that fails its integrity checks on load.
var ErrCorrupt = errors.New("corrupt vector index")

// Index defines vector storage and exact inner-product search. All stored
// vectors are unit-norm, so inner product equals cosine similarity.
type Index interface {
	Add(ctx context.Context, ids []int64, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*Result, error)
	Remove(ctx context.Context, ids []int64) error
	Clear()
	IDs() []int64
	Generation() string
	SetGeneration(g string)
	Save(path string) error
	Load(path string) error
	Size() int
	Close() error
}

// Result is a single vector search hit (ID is the media record ID).
type Result struct {
	ID    int64
	Score float64 // inner product of unit-norm vectors, in [-1, 1]
}
