package vector

import "fmt"

// NewIndex creates a vector index of the given type.
// Only the exact "flat" index is supported.
func NewIndex(indexType string, dims int) (Index, error) {
	switch indexType {
	case "flat", "":
		return NewFlat(dims)
	default:
		return nil, fmt.Errorf("unsupported index type: %s", indexType)
	}
}
