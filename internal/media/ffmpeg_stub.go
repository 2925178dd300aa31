//go:build !cgo
// +build !cgo

package media

import "fmt"

// FFmpegDecoder stub type when built without CGO (see ffmpeg.go for real implementation).
type FFmpegDecoder struct{}

// NewFFmpegDecoder returns a stub decoder; Open always fails without CGO.
func NewFFmpegDecoder() *FFmpegDecoder {
	return &FFmpegDecoder{}
}

// Open is not implemented without CGO.
func (d *FFmpegDecoder) Open(path string) (Clip, error) {
	return nil, fmt.Errorf("%w: ffmpeg decoder requires CGO; build with CGO_ENABLED=1 and libav", ErrMedia)
}
