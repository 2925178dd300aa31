package media

import (
	"fmt"
	"image"
	"os"

	// Image decoders registered for LoadImage.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// LoadImage opens and decodes an image file. Unreadable or undecodable files
// are reported as ErrMedia.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrMedia, path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrMedia, path, err)
	}
	return img, nil
}
