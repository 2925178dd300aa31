package media

import "image"

// Info describes a video stream.
type Info struct {
	FPS         float64 `json:"fps"`
	TotalFrames int64   `json:"total_frames"`
	DurationSec float64 `json:"duration_sec"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
}

// Decoder opens video containers. Failure modes (unreadable container,
// unsupported codec, no video stream) are surfaced as ErrMedia.
type Decoder interface {
	Open(path string) (Clip, error)
}

// Clip is an open video with seek-to-timestamp frame access. A Clip is consumed
// by exactly one sampling pass; reopen the source for a second pass.
type Clip interface {
	Info() Info
	// FrameAt seeks to the nearest decodable point at or before t seconds and
	// decodes forward to the exact target frame.
	FrameAt(t float64) (image.Image, error)
	Close() error
}
