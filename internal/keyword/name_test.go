package keyword

import (
	"context"
	"testing"
)

func newTestIndex(t *testing.T) *NameIndex {
	t.Helper()
	idx, err := NewNameIndex("")
	if err != nil {
		t.Fatalf("NewNameIndex failed: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestNameIndexSearch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	files := map[int64]string{
		1: "/media/beach_sunset.mp4",
		2: "/media/city-night.jpg",
		3: "/media/sunset.over.water.png",
	}
	for id, path := range files {
		if err := idx.Index(ctx, id, path); err != nil {
			t.Fatalf("Index failed for %s: %v", path, err)
		}
	}

	results, err := idx.Search(ctx, "sunset", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 hits for sunset, got %d", len(results))
	}
	found := map[int64]bool{}
	for _, r := range results {
		found[r.ID] = true
		if r.Score <= 0 {
			t.Errorf("expected positive score for id %d, got %f", r.ID, r.Score)
		}
	}
	if !found[1] || !found[3] {
		t.Errorf("expected ids 1 and 3, got %v", found)
	}

	results, err = idx.Search(ctx, "mountain", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no hits for mountain, got %d", len(results))
	}
}

func TestNameIndexDelete(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.Index(ctx, 1, "/media/forest_trail.jpg"); err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	if err := idx.Delete(ctx, 1); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	results, err := idx.Search(ctx, "forest", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no hits after delete, got %d", len(results))
	}

	count, _ := idx.DocCount()
	if count != 0 {
		t.Errorf("expected doc count 0, got %d", count)
	}
}

func TestNameIndexPersistent(t *testing.T) {
	path := t.TempDir() + "/names.bleve"
	ctx := context.Background()

	idx, err := NewNameIndex(path)
	if err != nil {
		t.Fatalf("NewNameIndex failed: %v", err)
	}
	if err := idx.Index(ctx, 5, "/media/harbor.png"); err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewNameIndex(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	results, err := reopened.Search(ctx, "harbor", 10)
	if err != nil {
		t.Fatalf("Search after reopen failed: %v", err)
	}
	if len(results) != 1 || results[0].ID != 5 {
		t.Errorf("expected id 5 after reopen, got %v", results)
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/a/beach_sunset.mp4", "beach sunset"},
		{"/a/city-night.jpg", "city night"},
		{"/a/plain.png", "plain"},
		{"clip.v2.final.mkv", "clip v2 final"},
	}
	for _, tt := range tests {
		if got := normalizeName(tt.path); got != tt.want {
			t.Errorf("normalizeName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
