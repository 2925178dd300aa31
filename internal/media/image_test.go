package media

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writeTestPNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < 4; i++ {
		img.Set(i, i, color.RGBA{255, 0, 0, 255})
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestLoadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.png")
	writeTestPNG(t, path)

	img, err := LoadImage(path)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 4 {
		t.Errorf("width = %d", img.Bounds().Dx())
	}
}

func TestLoadImage_Missing(t *testing.T) {
	if _, err := LoadImage(filepath.Join(t.TempDir(), "nope.png")); !errors.Is(err, ErrMedia) {
		t.Errorf("error = %v, want ErrMedia", err)
	}
}

func TestLoadImage_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.png")
	if err := os.WriteFile(path, []byte("not an image"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadImage(path); !errors.Is(err, ErrMedia) {
		t.Errorf("error = %v, want ErrMedia", err)
	}
}
