package models

import "fmt"

// QueryType selects the embedding path (or keyword index) for a search query.
type QueryType string

const (
	// QueryTypeText embeds the query string with the text encoder.
	QueryTypeText QueryType = "text"
	// QueryTypeImage embeds the file at Query with the image encoder.
	QueryTypeImage QueryType = "image"
	// QueryTypeVideo aggregates the video at Query into a single vector.
	QueryTypeVideo QueryType = "video"
	// QueryTypeName runs keyword search over registered file names.
	QueryTypeName QueryType = "name"
)

// SearchQuery represents a search request. Query is the text, or a file path for
// image and video queries.
type SearchQuery struct {
	Query string    `json:"query"`
	Type  QueryType `json:"type,omitempty"`
	Limit int       `json:"limit,omitempty"`
}

// Validate ensures the search query has valid fields and sets defaults.
// An empty Type defaults to text; the limit is normalized into [1, 100].
func (q *SearchQuery) Validate() error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	switch q.Type {
	case "":
		q.Type = QueryTypeText
	case QueryTypeText, QueryTypeImage, QueryTypeVideo, QueryTypeName:
	default:
		return fmt.Errorf("unknown query type: %s", q.Type)
	}
	if q.Limit <= 0 {
		q.Limit = 5
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}
