package search

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/miru/internal/config"
	"github.com/hyperjump/miru/internal/embedding"
	"github.com/hyperjump/miru/internal/keyword"
	"github.com/hyperjump/miru/internal/library"
	"github.com/hyperjump/miru/internal/media"
	"github.com/hyperjump/miru/internal/models"
	"github.com/hyperjump/miru/internal/storage"
	"github.com/hyperjump/miru/internal/vector"
	"github.com/hyperjump/miru/internal/video"
)

const testDims = 32

type testHarness struct {
	engine  *Engine
	decoder *media.MockDecoder
	dir     string
}

func newTestEngine(t *testing.T) *testHarness {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.DatabasePath = filepath.Join(dir, "media.db")
	cfg.Storage.VectorIndexPath = filepath.Join(dir, "vectors.bin")
	cfg.Encoder.Dimensions = testDims

	encoder := embedding.NewMockEncoder(testDims)
	embedder := embedding.NewEmbedder(encoder)

	decoder := media.NewMockDecoder()
	sampler := media.NewSampler(decoder)
	aggregator := video.NewAggregator(embedder, sampler)

	idx, err := vector.NewFlat(testDims)
	if err != nil {
		t.Fatalf("NewFlat failed: %v", err)
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatalf("NewSQLiteStorage failed: %v", err)
	}
	names, err := keyword.NewNameIndex("")
	if err != nil {
		t.Fatalf("NewNameIndex failed: %v", err)
	}
	lib := library.New(idx, store, names, cfg.Storage.VectorIndexPath)

	engine := NewEngine(lib, embedder, aggregator, sampler, cfg)
	t.Cleanup(func() { engine.Close() })
	return &testHarness{engine: engine, decoder: decoder, dir: dir}
}

func writePNG(t *testing.T, path string, shade uint8) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: shade, G: shade / 2, B: 255 - shade, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

func TestRegisterImageAndQueryByImage(t *testing.T) {
	h := newTestEngine(t)
	ctx := context.Background()

	pathA := filepath.Join(h.dir, "red.png")
	pathB := filepath.Join(h.dir, "blue.png")
	writePNG(t, pathA, 250)
	writePNG(t, pathB, 10)

	idA, err := h.engine.Register(ctx, pathA)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := h.engine.Register(ctx, pathB); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// A pixel-identical copy embeds to the same vector, so the original must
	// come back first with a perfect score.
	queryPath := filepath.Join(h.dir, "query.png")
	writePNG(t, queryPath, 250)

	resp, err := h.engine.Search(ctx, &models.SearchQuery{Query: queryPath, Type: models.QueryTypeImage})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if resp.Total < 1 {
		t.Fatal("expected at least one result")
	}
	top := resp.Results[0]
	if top.Record.ID != idA {
		t.Errorf("expected record %d first, got %d", idA, top.Record.ID)
	}
	if top.Score < 0.999 {
		t.Errorf("expected near-perfect score for identical image, got %f", top.Score)
	}
	if top.Rank != 1 {
		t.Errorf("expected rank 1, got %d", top.Rank)
	}
	if top.Record.MediaType != models.MediaTypeImage {
		t.Errorf("expected image record, got %s", top.Record.MediaType)
	}
	if top.Record.FrameCount != 1 {
		t.Errorf("expected frame count 1 for image, got %d", top.Record.FrameCount)
	}
}

func TestRegisterUnsupportedExtension(t *testing.T) {
	h := newTestEngine(t)
	if _, err := h.engine.Register(context.Background(), "/tmp/notes.txt"); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestRegisterVideo(t *testing.T) {
	h := newTestEngine(t)
	ctx := context.Background()

	h.decoder.AddClip("/v/clip.mp4", &media.MockClip{DurationSec: 25})

	id, err := h.engine.Register(ctx, "/v/clip.mp4")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	rec, err := h.engine.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec.MediaType != models.MediaTypeVideo {
		t.Errorf("expected video record, got %s", rec.MediaType)
	}
	// 25s at the default 10s interval samples t=0,10,20.
	if rec.FrameCount != 3 {
		t.Errorf("expected 3 sampled frames, got %d", rec.FrameCount)
	}
}

func TestRegisterVideoUnopenable(t *testing.T) {
	h := newTestEngine(t)
	_, err := h.engine.Register(context.Background(), "/v/missing.mp4")
	if !errors.Is(err, media.ErrMedia) {
		t.Errorf("expected ErrMedia, got %v", err)
	}
}

func TestSearchValidation(t *testing.T) {
	h := newTestEngine(t)
	ctx := context.Background()

	if _, err := h.engine.Search(ctx, &models.SearchQuery{Query: ""}); err == nil {
		t.Error("expected error for empty query")
	}
	if _, err := h.engine.Search(ctx, &models.SearchQuery{Query: "x", Type: "audio"}); err == nil {
		t.Error("expected error for unknown query type")
	}
}

func TestSearchTextOnEmptyLibrary(t *testing.T) {
	h := newTestEngine(t)
	resp, err := h.engine.Search(context.Background(), &models.SearchQuery{Query: "sunset"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if resp.Total != 0 || len(resp.Results) != 0 {
		t.Errorf("expected empty response, got %+v", resp)
	}
	if resp.Type != models.QueryTypeText {
		t.Errorf("expected default type text, got %s", resp.Type)
	}
}

func TestSearchLimitClamped(t *testing.T) {
	h := newTestEngine(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		path := filepath.Join(h.dir, string(rune('a'+i))+".png")
		writePNG(t, path, uint8(i*60))
		if _, err := h.engine.Register(ctx, path); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}

	resp, err := h.engine.Search(ctx, &models.SearchQuery{Query: "anything", Limit: 2})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Errorf("expected 2 results with limit 2, got %d", len(resp.Results))
	}

	h.engine.config.Search.MaxLimit = 3
	resp, err = h.engine.Search(ctx, &models.SearchQuery{Query: "anything", Limit: 50})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(resp.Results) != 3 {
		t.Errorf("expected max limit 3 applied, got %d", len(resp.Results))
	}
}

func TestSearchByName(t *testing.T) {
	h := newTestEngine(t)
	ctx := context.Background()

	path := filepath.Join(h.dir, "beach_sunset.png")
	writePNG(t, path, 100)
	id, err := h.engine.Register(ctx, path)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	resp, err := h.engine.Search(ctx, &models.SearchQuery{Query: "sunset", Type: models.QueryTypeName})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if resp.Total != 1 || resp.Results[0].Record.ID != id {
		t.Fatalf("expected name hit for id %d, got %+v", id, resp)
	}
}

func TestRegisterBatch(t *testing.T) {
	h := newTestEngine(t)
	ctx := context.Background()

	batchDir := filepath.Join(h.dir, "batch")
	if err := os.MkdirAll(batchDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writePNG(t, filepath.Join(batchDir, "a.png"), 40)
	writePNG(t, filepath.Join(batchDir, "b.png"), 200)
	if err := os.WriteFile(filepath.Join(batchDir, "broken.png"), []byte("not a png"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var attempted int
	result, err := h.engine.RegisterBatch(ctx, batchDir, func() { attempted++ })
	if err != nil {
		t.Fatalf("RegisterBatch failed: %v", err)
	}
	if len(result.IDs) != 2 {
		t.Errorf("expected 2 registered files, got %v", result.IDs)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %v", result.Failures)
	}
	if filepath.Base(result.Failures[0].Path) != "broken.png" {
		t.Errorf("expected broken.png to fail, got %s", result.Failures[0].Path)
	}
	if attempted != 3 {
		t.Errorf("expected 3 progress calls, got %d", attempted)
	}
}

func TestReindexReplacesPath(t *testing.T) {
	h := newTestEngine(t)
	ctx := context.Background()

	path := filepath.Join(h.dir, "pic.png")
	writePNG(t, path, 70)

	id1, _ := h.engine.Register(ctx, path)
	id2, _ := h.engine.Register(ctx, path)
	if id1 == id2 {
		t.Fatal("repeated registration should append")
	}

	id3, err := h.engine.Reindex(ctx, path)
	if err != nil {
		t.Fatalf("Reindex failed: %v", err)
	}
	if id3 <= id2 {
		t.Errorf("reindex should assign a fresh id, got %d after %d", id3, id2)
	}

	info, err := h.engine.Info(ctx)
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if info.RecordCount != 1 {
		t.Errorf("expected exactly one record after reindex, got %d", info.RecordCount)
	}
}

func TestRemoveAndClear(t *testing.T) {
	h := newTestEngine(t)
	ctx := context.Background()

	path := filepath.Join(h.dir, "pic.png")
	writePNG(t, path, 70)
	id, _ := h.engine.Register(ctx, path)

	if err := h.engine.Remove(ctx, id); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := h.engine.Remove(ctx, id); !errors.Is(err, library.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second remove, got %v", err)
	}

	h.engine.Register(ctx, path)
	if err := h.engine.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if err := h.engine.Clear(ctx); err != nil {
		t.Fatalf("Clear should be idempotent: %v", err)
	}

	info, _ := h.engine.Info(ctx)
	if info.RecordCount != 0 {
		t.Errorf("expected empty library, got %d records", info.RecordCount)
	}
}

func TestInfoCountsByType(t *testing.T) {
	h := newTestEngine(t)
	ctx := context.Background()

	path := filepath.Join(h.dir, "pic.png")
	writePNG(t, path, 70)
	h.engine.Register(ctx, path)
	h.decoder.AddClip("/v/clip.mp4", &media.MockClip{DurationSec: 5})
	h.engine.Register(ctx, "/v/clip.mp4")

	info, err := h.engine.Info(ctx)
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if info.RecordCount != 2 || info.ImageCount != 1 || info.VideoCount != 1 {
		t.Errorf("unexpected counts: %+v", info)
	}
	if info.Dimensions != testDims {
		t.Errorf("expected %d dimensions, got %d", testDims, info.Dimensions)
	}
	if info.DiskUsageBytes <= 0 {
		t.Errorf("expected positive disk usage, got %d", info.DiskUsageBytes)
	}
}

func TestVideoInfo(t *testing.T) {
	h := newTestEngine(t)
	h.decoder.AddClip("/v/clip.mp4", &media.MockClip{DurationSec: 12, FPS: 24})

	info, err := h.engine.VideoInfo("/v/clip.mp4")
	if err != nil {
		t.Fatalf("VideoInfo failed: %v", err)
	}
	if info.DurationSec != 12 || info.FPS != 24 {
		t.Errorf("unexpected info: %+v", info)
	}

	if _, err := h.engine.VideoInfo("/v/other.mp4"); !errors.Is(err, media.ErrMedia) {
		t.Errorf("expected ErrMedia for unknown clip, got %v", err)
	}
}
