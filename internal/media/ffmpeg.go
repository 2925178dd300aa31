//go:build cgo
// +build cgo

// Package media provides FFmpeg-based video decoding (requires CGO and libav libraries).
package media

import (
	"fmt"
	"image"

	"github.com/asticode/go-astiav"
)

// FFmpegDecoder opens video containers with libav via go-astiav.
type FFmpegDecoder struct{}

// NewFFmpegDecoder returns a Decoder backed by FFmpeg.
func NewFFmpegDecoder() *FFmpegDecoder {
	return &FFmpegDecoder{}
}

// Open opens the container at path and prepares its first video stream for decoding.
func (d *FFmpegDecoder) Open(path string) (Clip, error) {
	fc := astiav.AllocFormatContext()
	if fc == nil {
		return nil, fmt.Errorf("%w: alloc format context", ErrMedia)
	}
	if err := fc.OpenInput(path, nil, nil); err != nil {
		fc.Free()
		return nil, fmt.Errorf("%w: open %s: %v", ErrMedia, path, err)
	}
	if err := fc.FindStreamInfo(nil); err != nil {
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("%w: stream info %s: %v", ErrMedia, path, err)
	}

	var stream *astiav.Stream
	for _, s := range fc.Streams() {
		if s.CodecParameters().MediaType() == astiav.MediaTypeVideo {
			stream = s
			break
		}
	}
	if stream == nil {
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("%w: no video stream in %s", ErrMedia, path)
	}

	codec := astiav.FindDecoder(stream.CodecParameters().CodecID())
	if codec == nil {
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("%w: unsupported codec in %s", ErrMedia, path)
	}
	cc := astiav.AllocCodecContext(codec)
	if cc == nil {
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("%w: alloc codec context", ErrMedia)
	}
	if err := stream.CodecParameters().ToCodecContext(cc); err != nil {
		cc.Free()
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("%w: codec parameters %s: %v", ErrMedia, path, err)
	}
	if err := cc.Open(codec, nil); err != nil {
		cc.Free()
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("%w: open codec %s: %v", ErrMedia, path, err)
	}

	return &ffmpegClip{
		fc:     fc,
		cc:     cc,
		stream: stream,
		pkt:    astiav.AllocPacket(),
		frame:  astiav.AllocFrame(),
	}, nil
}

type ffmpegClip struct {
	fc     *astiav.FormatContext
	cc     *astiav.CodecContext
	stream *astiav.Stream
	pkt    *astiav.Packet
	frame  *astiav.Frame
}

// Info returns fps, frame count, duration, and dimensions for the video stream.
func (c *ffmpegClip) Info() Info {
	info := Info{
		TotalFrames: c.stream.NbFrames(),
		Width:       c.cc.Width(),
		Height:      c.cc.Height(),
	}
	if r := c.stream.AvgFrameRate(); r.Den() != 0 {
		info.FPS = r.Float64()
	}
	info.DurationSec = c.durationSec()
	return info
}

// durationSec derives the stream duration, falling back to the container
// duration and then to frame count over fps.
func (c *ffmpegClip) durationSec() float64 {
	tb := c.stream.TimeBase()
	if d := c.stream.Duration(); d > 0 && tb.Den() != 0 {
		return float64(d) * tb.Float64()
	}
	if d := c.fc.Duration(); d > 0 {
		return float64(d) / float64(astiav.TimeBase)
	}
	if n := c.stream.NbFrames(); n > 0 && c.stream.AvgFrameRate().Den() != 0 {
		if fps := c.stream.AvgFrameRate().Float64(); fps > 0 {
			return float64(n) / fps
		}
	}
	return 0
}

// FrameAt seeks backward to the keyframe at or before t and decodes forward to
// the first frame with pts >= t.
func (c *ffmpegClip) FrameAt(t float64) (image.Image, error) {
	tb := c.stream.TimeBase()
	var target int64
	if tb.Den() != 0 && tb.Float64() > 0 {
		target = int64(t / tb.Float64())
	}
	if err := c.fc.SeekFrame(c.stream.Index(), target, astiav.NewSeekFlags(astiav.SeekFlagBackward)); err != nil {
		return nil, fmt.Errorf("%w: seek to %.2fs: %v", ErrMedia, t, err)
	}
	c.cc.FlushBuffers()

	for {
		c.pkt.Unref()
		if err := c.fc.ReadFrame(c.pkt); err != nil {
			return nil, fmt.Errorf("%w: read frame at %.2fs: %v", ErrMedia, t, err)
		}
		if c.pkt.StreamIndex() != c.stream.Index() {
			continue
		}
		if err := c.cc.SendPacket(c.pkt); err != nil {
			return nil, fmt.Errorf("%w: decode at %.2fs: %v", ErrMedia, t, err)
		}
		for {
			c.frame.Unref()
			if err := c.cc.ReceiveFrame(c.frame); err != nil {
				break
			}
			if c.frame.Pts() >= target {
				return c.frameImage()
			}
		}
	}
}

func (c *ffmpegClip) frameImage() (image.Image, error) {
	img, err := c.frame.Data().GuessImageFormat()
	if err != nil {
		return nil, fmt.Errorf("%w: frame format: %v", ErrMedia, err)
	}
	if err := c.frame.Data().ToImage(img); err != nil {
		return nil, fmt.Errorf("%w: frame convert: %v", ErrMedia, err)
	}
	return img, nil
}

// Close releases all decoder resources.
func (c *ffmpegClip) Close() error {
	c.frame.Free()
	c.pkt.Free()
	c.cc.Free()
	c.fc.CloseInput()
	c.fc.Free()
	return nil
}
