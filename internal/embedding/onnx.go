//go:build cgo
// +build cgo

// Package embedding provides ONNX-based CLIP encoding (requires CGO and onnxruntime library).
package embedding

import (
	"context"
	"fmt"
	"image"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/image/draw"
)

// CLIP image normalization constants (per channel mean and std).
var (
	clipMean = [3]float32{0.48145466, 0.4578275, 0.40821073}
	clipStd  = [3]float32{0.26862954, 0.26130258, 0.27577711}
)

// ONNXEncoder runs CLIP visual and text ONNX models. It requires CGO and the
// onnxruntime shared library.
type ONNXEncoder struct {
	dimensions int
	imageSize  int
	maxTokens  int
	tokenizer  Tokenizer

	visualSession *ort.AdvancedSession
	textSession   *ort.AdvancedSession
	// Pre-allocated tensors for Run(); we update input data and read output.
	pixelTensor         *ort.Tensor[float32]
	imageOutTensor      *ort.Tensor[float32]
	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	textOutTensor       *ort.Tensor[float32]
	mu                  sync.Mutex
}

// NewONNXEncoder creates a CLIP encoder from exported visual and text ONNX models.
// InitializeEnvironment is called if not already done.
func NewONNXEncoder(visualModelPath, textModelPath string, dimensions, imageSize, maxTokens int) (*ONNXEncoder, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}

	e := &ONNXEncoder{
		dimensions: dimensions,
		imageSize:  imageSize,
		maxTokens:  maxTokens,
		tokenizer:  &SimpleTokenizer{},
	}
	if err := e.initVisual(visualModelPath); err != nil {
		return nil, err
	}
	if err := e.initText(textModelPath); err != nil {
		e.destroyVisual()
		return nil, err
	}
	return e, nil
}

func (e *ONNXEncoder) initVisual(modelPath string) error {
	pixelData := make([]float32, 3*e.imageSize*e.imageSize)
	pixelTensor, err := ort.NewTensor(ort.NewShape(1, 3, int64(e.imageSize), int64(e.imageSize)), pixelData)
	if err != nil {
		return fmt.Errorf("failed to create pixel_values tensor: %w", err)
	}
	outData := make([]float32, e.dimensions)
	outTensor, err := ort.NewTensor(ort.NewShape(1, int64(e.dimensions)), outData)
	if err != nil {
		pixelTensor.Destroy()
		return fmt.Errorf("failed to create image output tensor: %w", err)
	}
	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"pixel_values"},
		[]string{"image_embeds"},
		[]ort.ArbitraryTensor{pixelTensor},
		[]ort.ArbitraryTensor{outTensor},
		nil,
	)
	if err != nil {
		pixelTensor.Destroy()
		outTensor.Destroy()
		return fmt.Errorf("failed to create visual ONNX session: %w", err)
	}
	e.visualSession = session
	e.pixelTensor = pixelTensor
	e.imageOutTensor = outTensor
	return nil
}

func (e *ONNXEncoder) initText(modelPath string) error {
	inputIDs, attentionMask := e.tokenizer.Tokenize("", e.maxTokens)
	inputIDsTensor, err := ort.NewTensor(ort.NewShape(1, int64(e.maxTokens)), inputIDs)
	if err != nil {
		return fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	attentionMaskTensor, err := ort.NewTensor(ort.NewShape(1, int64(e.maxTokens)), attentionMask)
	if err != nil {
		inputIDsTensor.Destroy()
		return fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	outData := make([]float32, e.dimensions)
	outTensor, err := ort.NewTensor(ort.NewShape(1, int64(e.dimensions)), outData)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		return fmt.Errorf("failed to create text output tensor: %w", err)
	}
	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"text_embeds"},
		[]ort.ArbitraryTensor{inputIDsTensor, attentionMaskTensor},
		[]ort.ArbitraryTensor{outTensor},
		nil,
	)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		outTensor.Destroy()
		return fmt.Errorf("failed to create text ONNX session: %w", err)
	}
	e.textSession = session
	e.inputIDsTensor = inputIDsTensor
	e.attentionMaskTensor = attentionMaskTensor
	e.textOutTensor = outTensor
	return nil
}

// EncodeImage runs the visual model on one image.
func (e *ONNXEncoder) EncodeImage(ctx context.Context, img image.Image) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.encodeImageLocked(img)
}

// EncodeImageBatch runs the visual model on each image in order.
func (e *ONNXEncoder) EncodeImageBatch(ctx context.Context, imgs []image.Image) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]float32, len(imgs))
	for i, img := range imgs {
		vec, err := e.encodeImageLocked(img)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (e *ONNXEncoder) encodeImageLocked(img image.Image) ([]float32, error) {
	e.preprocess(img, e.pixelTensor.GetData())
	if err := e.visualSession.Run(); err != nil {
		return nil, fmt.Errorf("visual inference failed: %w", err)
	}
	embedding := make([]float32, e.dimensions)
	copy(embedding, e.imageOutTensor.GetData()[:e.dimensions])
	return embedding, nil
}

// EncodeText runs the text model on one string.
func (e *ONNXEncoder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	inputIDs, attentionMask := e.tokenizer.Tokenize(text, e.maxTokens)
	copy(e.inputIDsTensor.GetData(), inputIDs)
	copy(e.attentionMaskTensor.GetData(), attentionMask)

	if err := e.textSession.Run(); err != nil {
		return nil, fmt.Errorf("text inference failed: %w", err)
	}
	embedding := make([]float32, e.dimensions)
	copy(embedding, e.textOutTensor.GetData()[:e.dimensions])
	return embedding, nil
}

// Dimensions returns the embedding dimension.
func (e *ONNXEncoder) Dimensions() int {
	return e.dimensions
}

// preprocess scales img to the model input size and fills dst with CHW
// channel-normalized float values.
func (e *ONNXEncoder) preprocess(img image.Image, dst []float32) {
	scaled := image.NewRGBA(image.Rect(0, 0, e.imageSize, e.imageSize))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Over, nil)

	plane := e.imageSize * e.imageSize
	for y := 0; y < e.imageSize; y++ {
		for x := 0; x < e.imageSize; x++ {
			i := scaled.PixOffset(x, y)
			r := float32(scaled.Pix[i]) / 255.0
			g := float32(scaled.Pix[i+1]) / 255.0
			b := float32(scaled.Pix[i+2]) / 255.0
			pos := y*e.imageSize + x
			dst[pos] = (r - clipMean[0]) / clipStd[0]
			dst[plane+pos] = (g - clipMean[1]) / clipStd[1]
			dst[2*plane+pos] = (b - clipMean[2]) / clipStd[2]
		}
	}
}

func (e *ONNXEncoder) destroyVisual() {
	if e.visualSession != nil {
		_ = e.visualSession.Destroy()
		e.visualSession = nil
	}
	if e.pixelTensor != nil {
		_ = e.pixelTensor.Destroy()
		e.pixelTensor = nil
	}
	if e.imageOutTensor != nil {
		_ = e.imageOutTensor.Destroy()
		e.imageOutTensor = nil
	}
}

// Close destroys the sessions and tensors.
func (e *ONNXEncoder) Close() error {
	var err error
	if e.textSession != nil {
		err = e.textSession.Destroy()
		e.textSession = nil
	}
	if e.inputIDsTensor != nil {
		_ = e.inputIDsTensor.Destroy()
		e.inputIDsTensor = nil
	}
	if e.attentionMaskTensor != nil {
		_ = e.attentionMaskTensor.Destroy()
		e.attentionMaskTensor = nil
	}
	if e.textOutTensor != nil {
		_ = e.textOutTensor.Destroy()
		e.textOutTensor = nil
	}
	e.destroyVisual()
	return err
}
