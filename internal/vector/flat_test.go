package vector

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func axisVector(dims, axis int) []float32 {
	v := make([]float32, dims)
	v[axis] = 1
	return v
}

func TestFlatAddAndSearch(t *testing.T) {
	idx, err := NewFlat(4)
	if err != nil {
		t.Fatalf("NewFlat failed: %v", err)
	}
	defer idx.Close()

	ctx := context.Background()
	vectors := [][]float32{
		axisVector(4, 0),
		axisVector(4, 1),
		{0.7071, 0.7071, 0, 0},
	}
	if err := idx.Add(ctx, []int64{1, 2, 3}, vectors); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if idx.Size() != 3 {
		t.Errorf("expected size 3, got %d", idx.Size())
	}

	results, err := idx.Search(ctx, axisVector(4, 0), 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != 1 {
		t.Errorf("expected id 1 first, got %d", results[0].ID)
	}
	if math.Abs(results[0].Score-1) > 1e-4 {
		t.Errorf("expected score ~1 for exact match, got %f", results[0].Score)
	}
	if results[1].ID != 3 {
		t.Errorf("expected id 3 second, got %d", results[1].ID)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("results not in descending score order: %f <= %f", results[0].Score, results[1].Score)
	}
}

func TestFlatSearchScoreRange(t *testing.T) {
	idx, _ := NewFlat(4)
	defer idx.Close()
	ctx := context.Background()

	same := axisVector(4, 0)
	opposite := []float32{-1, 0, 0, 0}
	orthogonal := axisVector(4, 1)
	if err := idx.Add(ctx, []int64{1, 2, 3}, [][]float32{same, opposite, orthogonal}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	results, err := idx.Search(ctx, axisVector(4, 0), 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	want := []struct {
		id    int64
		score float64
	}{{1, 1}, {3, 0}, {2, -1}}
	for i, w := range want {
		if results[i].ID != w.id {
			t.Errorf("result %d id = %d, want %d", i, results[i].ID, w.id)
		}
		if math.Abs(results[i].Score-w.score) > 1e-4 {
			t.Errorf("result %d score = %f, want %f", i, results[i].Score, w.score)
		}
	}
}

func TestFlatSearchTieBreaksOnLowerID(t *testing.T) {
	idx, _ := NewFlat(4)
	ctx := context.Background()

	same := axisVector(4, 2)
	if err := idx.Add(ctx, []int64{7, 3, 5}, [][]float32{same, same, same}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	results, err := idx.Search(ctx, same, 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	want := []int64{3, 5, 7}
	for i, id := range want {
		if results[i].ID != id {
			t.Errorf("position %d: expected id %d, got %d", i, id, results[i].ID)
		}
	}
}

func TestFlatSearchEmptyIndex(t *testing.T) {
	idx, _ := NewFlat(4)
	results, err := idx.Search(context.Background(), axisVector(4, 0), 5)
	if err != nil {
		t.Fatalf("Search on empty index failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty results, got %d", len(results))
	}
}

func TestFlatSearchClampsK(t *testing.T) {
	idx, _ := NewFlat(4)
	ctx := context.Background()
	idx.Add(ctx, []int64{1}, [][]float32{axisVector(4, 0)})

	results, err := idx.Search(ctx, axisVector(4, 0), 100)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result, got %d", len(results))
	}
}

func TestFlatAddValidation(t *testing.T) {
	idx, _ := NewFlat(4)
	ctx := context.Background()

	err := idx.Add(ctx, []int64{1}, [][]float32{{1, 0}})
	if !errors.Is(err, ErrDimension) {
		t.Errorf("expected ErrDimension for wrong length, got %v", err)
	}

	err = idx.Add(ctx, []int64{1}, [][]float32{{3, 4, 0, 0}})
	if !errors.Is(err, ErrNorm) {
		t.Errorf("expected ErrNorm for non-unit vector, got %v", err)
	}

	err = idx.Add(ctx, []int64{1}, [][]float32{{0, 0, 0, 0}})
	if !errors.Is(err, ErrNorm) {
		t.Errorf("expected ErrNorm for zero vector, got %v", err)
	}

	if idx.Size() != 0 {
		t.Errorf("rejected vectors should not be stored, size=%d", idx.Size())
	}
}

func TestFlatSearchDimensionMismatch(t *testing.T) {
	idx, _ := NewFlat(4)
	_, err := idx.Search(context.Background(), []float32{1, 0}, 5)
	if !errors.Is(err, ErrDimension) {
		t.Errorf("expected ErrDimension, got %v", err)
	}
}

func TestFlatRemove(t *testing.T) {
	idx, _ := NewFlat(4)
	ctx := context.Background()
	idx.Add(ctx, []int64{1, 2, 3}, [][]float32{
		axisVector(4, 0), axisVector(4, 1), axisVector(4, 2),
	})

	if err := idx.Remove(ctx, []int64{2, 99}); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if idx.Size() != 2 {
		t.Errorf("expected size 2 after remove, got %d", idx.Size())
	}

	results, _ := idx.Search(ctx, axisVector(4, 1), 3)
	for _, r := range results {
		if r.ID == 2 {
			t.Error("removed id 2 still returned by search")
		}
	}
}

func TestFlatClear(t *testing.T) {
	idx, _ := NewFlat(4)
	ctx := context.Background()
	idx.Add(ctx, []int64{1, 2}, [][]float32{axisVector(4, 0), axisVector(4, 1)})

	idx.Clear()
	idx.Clear()
	if idx.Size() != 0 {
		t.Errorf("expected empty index after clear, got %d", idx.Size())
	}
}

func TestFlatSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.bin")
	ctx := context.Background()

	idx, _ := NewFlat(4)
	idx.Add(ctx, []int64{10, 20}, [][]float32{axisVector(4, 0), axisVector(4, 3)})
	idx.SetGeneration("gen-1")
	if err := idx.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, _ := NewFlat(4)
	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Size() != 2 {
		t.Fatalf("expected 2 vectors after load, got %d", loaded.Size())
	}
	if loaded.Generation() != "gen-1" {
		t.Errorf("expected generation gen-1, got %q", loaded.Generation())
	}

	results, err := loaded.Search(ctx, axisVector(4, 3), 1)
	if err != nil {
		t.Fatalf("Search after load failed: %v", err)
	}
	if results[0].ID != 20 {
		t.Errorf("expected id 20, got %d", results[0].ID)
	}
	if math.Abs(results[0].Score-1) > 1e-4 {
		t.Errorf("expected score ~1 after round trip, got %f", results[0].Score)
	}
}

func TestFlatLoadMissingFile(t *testing.T) {
	idx, _ := NewFlat(4)
	idx.Add(context.Background(), []int64{1}, [][]float32{axisVector(4, 0)})

	if err := idx.Load(filepath.Join(t.TempDir(), "nope.bin")); err != nil {
		t.Fatalf("Load of missing file should be a no-op, got %v", err)
	}
	if idx.Size() != 1 {
		t.Errorf("missing file load should leave contents intact, size=%d", idx.Size())
	}
}

func TestFlatLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.bin")
	ctx := context.Background()

	idx, _ := NewFlat(4)
	idx.Add(ctx, []int64{1, 2}, [][]float32{axisVector(4, 0), axisVector(4, 1)})
	if err := idx.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}

	tests := []struct {
		name   string
		mangle func([]byte) []byte
	}{
		{"flipped byte", func(b []byte) []byte {
			out := append([]byte(nil), b...)
			out[len(out)/2] ^= 0xFF
			return out
		}},
		{"truncated", func(b []byte) []byte {
			return b[:len(b)-8]
		}},
		{"too short", func(b []byte) []byte {
			return b[:5]
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := filepath.Join(dir, "bad.bin")
			if err := os.WriteFile(bad, tt.mangle(data), 0644); err != nil {
				t.Fatalf("write mangled file: %v", err)
			}
			fresh, _ := NewFlat(4)
			if err := fresh.Load(bad); !errors.Is(err, ErrCorrupt) {
				t.Errorf("expected ErrCorrupt, got %v", err)
			}
		})
	}
}

func TestFlatLoadDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.bin")

	idx, _ := NewFlat(4)
	idx.Add(context.Background(), []int64{1}, [][]float32{axisVector(4, 0)})
	if err := idx.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	other, _ := NewFlat(8)
	if err := other.Load(path); !errors.Is(err, ErrDimension) {
		t.Errorf("expected ErrDimension, got %v", err)
	}
}

func TestNewIndex(t *testing.T) {
	idx, err := NewIndex("flat", 16)
	if err != nil {
		t.Fatalf("NewIndex(flat) failed: %v", err)
	}
	idx.Close()

	if _, err := NewIndex("hnsw", 16); err == nil {
		t.Error("expected error for unsupported index type")
	}
	if _, err := NewIndex("flat", 0); err == nil {
		t.Error("expected error for non-positive dimensions")
	}
}
