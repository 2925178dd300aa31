// Package scan finds media files under a directory tree using glob patterns.
package scan

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/hyperjump/miru/internal/media"
)

// Walker walks a directory tree and collects files that look like media.
// Include and exclude patterns use doublestar glob syntax and are matched
// against paths relative to the walk root.
type Walker struct {
	includes []string
	excludes []string
}

// NewWalker creates a walker. With no includes, every file is a candidate;
// the media extension check still applies.
func NewWalker(includes, excludes []string) *Walker {
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	return &Walker{
		includes: includes,
		excludes: excludes,
	}
}

// File is a media file found during a walk.
type File struct {
	Path string
	Kind media.Kind
	Size int64
}

// Walk returns the media files under root, in walk order. Directories
// matching an exclude pattern are skipped entirely.
func (w *Walker) Walk(root string) ([]File, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var files []File
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		if info.IsDir() {
			if w.shouldExclude(relPath + "/") {
				return filepath.SkipDir
			}
			return nil
		}

		kind := media.DetectKind(path)
		if kind == media.KindUnknown {
			return nil
		}
		if w.shouldInclude(relPath) && !w.shouldExclude(relPath) {
			files = append(files, File{
				Path: path,
				Kind: kind,
				Size: info.Size(),
			})
		}
		return nil
	})
	return files, err
}

func (w *Walker) shouldInclude(path string) bool {
	for _, pattern := range w.includes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func (w *Walker) shouldExclude(path string) bool {
	for _, pattern := range w.excludes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}
