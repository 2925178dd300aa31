package models

// SearchResult represents a single search hit with its record and similarity score.
type SearchResult struct {
	Record *MediaRecord `json:"record"`
	// Score is the inner product of the query and stored vectors. Both are
	// unit-norm, so this equals cosine similarity in [-1, 1]. For name queries
	// it is the keyword score instead.
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
	Query     string          `json:"query"`
	Type      QueryType       `json:"type"`
}

// Info describes the state of the library for status reporting.
type Info struct {
	RecordCount    int64  `json:"record_count"`
	ImageCount     int64  `json:"image_count"`
	VideoCount     int64  `json:"video_count"`
	Dimensions     int    `json:"dimensions"`
	DiskUsageBytes int64  `json:"disk_usage_bytes,omitempty"`
	DatabasePath   string `json:"database_path,omitempty"`
	IndexPath      string `json:"index_path,omitempty"`
}

// BatchFailure reports one failed file during batch registration.
type BatchFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// BatchResult is the outcome of a batch registration: committed ids plus
// per-file failures. A failed file never aborts the batch.
type BatchResult struct {
	IDs      []int64        `json:"ids"`
	Failures []BatchFailure `json:"failures,omitempty"`
}
