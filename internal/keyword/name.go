// Package keyword provides a Bleve index over media file names, backing the
// "name" query type.
package keyword

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
)

// Result is a single name index hit.
type Result struct {
	ID    int64
	Score float64
}

type nameDoc struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// NameIndex implements file name search using Bleve.
type NameIndex struct {
	index bleve.Index
}

// NewNameIndex creates or opens a Bleve index at path. An empty path creates
// an in-memory index.
func NewNameIndex(path string) (*NameIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so a query term
	// matches the exact word it names.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("name", textFieldMapping)
	docMapping.AddFieldMappingsAt("path", textFieldMapping)
	im.DefaultMapping = docMapping

	if path == "" {
		index, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("failed to create name index: %w", err)
		}
		return &NameIndex{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open name index: %w", openErr)
		}
		return &NameIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create name index: %w", err)
	}
	return &NameIndex{index: index}, nil
}

// Index records the file name of a media record.
func (n *NameIndex) Index(ctx context.Context, id int64, sourcePath string) error {
	doc := nameDoc{
		Name: normalizeName(sourcePath),
		Path: sourcePath,
	}
	return n.index.Index(strconv.FormatInt(id, 10), doc)
}

// Search runs a match query over indexed names and returns up to limit results.
func (n *NameIndex) Search(ctx context.Context, query string, limit int) ([]*Result, error) {
	q := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	results, err := n.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("name search failed: %w", err)
	}

	out := make([]*Result, 0, len(results.Hits))
	for _, hit := range results.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, &Result{ID: id, Score: hit.Score})
	}
	return out, nil
}

// Delete removes a record from the index. Unknown ids are a no-op.
func (n *NameIndex) Delete(ctx context.Context, id int64) error {
	return n.index.Delete(strconv.FormatInt(id, 10))
}

// DocCount returns the number of indexed names.
func (n *NameIndex) DocCount() (uint64, error) {
	return n.index.DocCount()
}

// Close closes the underlying index.
func (n *NameIndex) Close() error {
	return n.index.Close()
}

// normalizeName turns a source path into searchable words: the base name
// without extension, with separator punctuation replaced by spaces.
func normalizeName(sourcePath string) string {
	base := filepath.Base(sourcePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', '.':
			return ' '
		}
		return r
	}, base)
}
