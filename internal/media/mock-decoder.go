package media

import (
	"fmt"
	"image"
)

// MockDecoder is a deterministic decoder for tests. It serves synthetic clips
// keyed by path, with configurable duration and a frame generator function.
type MockDecoder struct {
	clips map[string]*MockClip
}

// MockClip is a synthetic video for tests.
type MockClip struct {
	DurationSec float64
	FPS         float64
	// FrameFunc renders the frame at timestamp t. When nil, a solid 8x8 image
	// whose shade depends on t is produced.
	FrameFunc func(t float64) image.Image
	// FailAt makes FrameAt fail for timestamps >= FailAt when positive.
	FailAt float64
	closed bool
}

// NewMockDecoder creates an empty mock decoder; add clips with AddClip.
func NewMockDecoder() *MockDecoder {
	return &MockDecoder{clips: make(map[string]*MockClip)}
}

// AddClip registers a synthetic clip under path.
func (d *MockDecoder) AddClip(path string, clip *MockClip) {
	d.clips[path] = clip
}

// Open returns the clip registered under path, or ErrMedia.
func (d *MockDecoder) Open(path string) (Clip, error) {
	clip, ok := d.clips[path]
	if !ok {
		return nil, fmt.Errorf("%w: open %s: no such clip", ErrMedia, path)
	}
	// Fresh pass per open.
	c := *clip
	c.closed = false
	return &c, nil
}

// Info returns the synthetic stream description.
func (c *MockClip) Info() Info {
	fps := c.FPS
	if fps == 0 {
		fps = 30
	}
	return Info{
		FPS:         fps,
		TotalFrames: int64(c.DurationSec * fps),
		DurationSec: c.DurationSec,
		Width:       8,
		Height:      8,
	}
}

// FrameAt renders the frame at t, or fails when configured to.
func (c *MockClip) FrameAt(t float64) (image.Image, error) {
	if c.closed {
		return nil, fmt.Errorf("%w: clip closed", ErrMedia)
	}
	if c.FailAt > 0 && t >= c.FailAt {
		return nil, fmt.Errorf("%w: decode failed at %.2fs", ErrMedia, t)
	}
	if c.FrameFunc != nil {
		return c.FrameFunc(t), nil
	}
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	shade := uint8(int(t*10) % 256)
	for i := range img.Pix {
		img.Pix[i] = shade
	}
	return img, nil
}

// Close marks the clip consumed.
func (c *MockClip) Close() error {
	c.closed = true
	return nil
}
