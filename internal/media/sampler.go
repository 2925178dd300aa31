package media

import (
	"fmt"
	"image"

	"go.uber.org/zap"
)

// Frame is one sampled video frame with its timestamp in seconds.
type Frame struct {
	Timestamp float64
	Image     image.Image
}

// Sampler draws frames from videos at a fixed time interval using seek-based
// access, so decode cost is bounded by duration/interval rather than total
// frame count.
type Sampler struct {
	decoder Decoder
	logger  *zap.Logger // optional; when set, logs skipped frames
}

// SamplerOption configures a Sampler.
type SamplerOption func(*Sampler)

// WithLogger sets a logger for debug output (skipped frames, clip info).
func WithLogger(l *zap.Logger) SamplerOption {
	return func(s *Sampler) { s.logger = l }
}

// NewSampler creates a sampler over the given decoder.
func NewSampler(decoder Decoder, opts ...SamplerOption) *Sampler {
	s := &Sampler{decoder: decoder}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sample opens the video at path and returns a finite frame sequence at
// intervalSec spacing. The sequence is consumed once; call Sample again for a
// second pass. A video shorter than one interval produces exactly one frame;
// a zero-duration or corrupt video produces none.
func (s *Sampler) Sample(path string, intervalSec float64) (*Frames, error) {
	if intervalSec <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %f", intervalSec)
	}
	clip, err := s.decoder.Open(path)
	if err != nil {
		return nil, err
	}
	info := clip.Info()
	if s.logger != nil {
		s.logger.Debug("sampling video",
			zap.String("path", path),
			zap.Float64("duration_sec", info.DurationSec),
			zap.Float64("interval_sec", intervalSec),
		)
	}
	return &Frames{
		clip:     clip,
		path:     path,
		interval: intervalSec,
		duration: info.DurationSec,
		logger:   s.logger,
	}, nil
}

// Info probes the video at path without sampling frames.
func (s *Sampler) Info(path string) (Info, error) {
	clip, err := s.decoder.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer clip.Close()
	return clip.Info(), nil
}

// Frames is a lazy, finite frame sequence. It is not restartable once
// exhausted.
type Frames struct {
	clip     Clip
	path     string
	interval float64
	duration float64
	next     float64
	done     bool
	logger   *zap.Logger
}

// Next decodes and returns the next sampled frame, or nil when the sequence is
// exhausted. Frames that fail to decode are skipped; only failures that leave
// the whole sequence empty surface through the caller's zero-frame handling.
func (f *Frames) Next() (*Frame, error) {
	for !f.done {
		t := f.next
		if f.duration <= 0 || t > f.duration {
			f.done = true
			break
		}
		f.next += f.interval

		img, err := f.clip.FrameAt(t)
		if err != nil {
			if f.logger != nil {
				f.logger.Debug("frame decode skipped",
					zap.String("path", f.path),
					zap.Float64("timestamp", t),
					zap.Error(err),
				)
			}
			continue
		}
		return &Frame{Timestamp: t, Image: img}, nil
	}
	return nil, nil
}

// Close releases the underlying clip.
func (f *Frames) Close() error {
	f.done = true
	return f.clip.Close()
}
