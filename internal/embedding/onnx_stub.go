//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
	"image"
)

var errNoCGO = errors.New("ONNX encoder requires CGO; build with CGO_ENABLED=1 and onnxruntime")

// ONNXEncoder stub type when built without CGO (see onnx.go for real implementation).
type ONNXEncoder struct{}

// NewONNXEncoder returns an error when built without CGO (ONNX not available).
func NewONNXEncoder(_, _ string, _, _, _ int) (*ONNXEncoder, error) {
	return nil, errNoCGO
}

// EncodeImage is not implemented without CGO.
func (e *ONNXEncoder) EncodeImage(ctx context.Context, img image.Image) ([]float32, error) {
	return nil, errNoCGO
}

// EncodeImageBatch is not implemented without CGO.
func (e *ONNXEncoder) EncodeImageBatch(ctx context.Context, imgs []image.Image) ([][]float32, error) {
	return nil, errNoCGO
}

// EncodeText is not implemented without CGO.
func (e *ONNXEncoder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	return nil, errNoCGO
}

// Dimensions returns 0 without CGO.
func (e *ONNXEncoder) Dimensions() int {
	return 0
}

// Close is a no-op without CGO.
func (e *ONNXEncoder) Close() error {
	return nil
}
