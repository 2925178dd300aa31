package embedding

import (
	"context"
	"image"
	"math"
)

// MockEncoder is a deterministic encoder for tests. Text embeddings derive from
// the text hash and image embeddings from sampled pixel values, so the same
// input always gets the same embedding and pixel-identical images agree.
type MockEncoder struct {
	dimensions int
}

// NewMockEncoder returns an encoder producing deterministic embeddings of the given dimensions.
func NewMockEncoder(dimensions int) *MockEncoder {
	if dimensions <= 0 {
		dimensions = 256
	}
	return &MockEncoder{dimensions: dimensions}
}

// EncodeText returns a deterministic embedding based on the text hash.
func (e *MockEncoder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	return e.fromSeed(HashString(text)), nil
}

// EncodeImage returns a deterministic embedding based on sampled pixels.
func (e *MockEncoder) EncodeImage(ctx context.Context, img image.Image) ([]float32, error) {
	return e.fromSeed(imageSeed(img)), nil
}

// EncodeImageBatch calls EncodeImage for each image.
func (e *MockEncoder) EncodeImageBatch(ctx context.Context, imgs []image.Image) ([][]float32, error) {
	out := make([][]float32, len(imgs))
	for i, img := range imgs {
		vec, err := e.EncodeImage(ctx, img)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEncoder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEncoder.
func (e *MockEncoder) Close() error {
	return nil
}

func (e *MockEncoder) fromSeed(seed int) []float32 {
	emb := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		emb[i] = float32(math.Sin(float64(seed*(i+1)))*0.1 + 0.01)
	}
	// Normalize to unit length for cosine similarity
	var sum float64
	for _, v := range emb {
		sum += float64(v * v)
	}
	if sum > 0 {
		norm := 1.0 / math.Sqrt(sum)
		for i := range emb {
			emb[i] *= float32(norm)
		}
	}
	return emb
}

// imageSeed samples a coarse pixel grid so pixel-identical images share a seed.
func imageSeed(img image.Image) int {
	b := img.Bounds()
	h := 0
	if b.Dx() == 0 || b.Dy() == 0 {
		return 1
	}
	stepX := b.Dx()/8 + 1
	stepY := b.Dy()/8 + 1
	for y := b.Min.Y; y < b.Max.Y; y += stepY {
		for x := b.Min.X; x < b.Max.X; x += stepX {
			r, g, bl, _ := img.At(x, y).RGBA()
			h = 31*h + int(r>>8) + int(g>>8)*7 + int(bl>>8)*13
		}
	}
	if h < 0 {
		h = -h
	}
	if h == 0 {
		h = 1
	}
	return h
}
