// Package models defines core data structures for media records, queries, and search results.
package models

import "time"

// MediaType classifies a registered file.
type MediaType string

const (
	// MediaTypeImage is a still image.
	MediaTypeImage MediaType = "image"
	// MediaTypeVideo is a video, stored as the normalized mean of its sampled frame embeddings.
	MediaTypeVideo MediaType = "video"
)

// MediaRecord represents one registered image or video. Records are created by
// registration, never mutated in place, and destroyed only by remove or clear.
type MediaRecord struct {
	// ID is assigned monotonically at insertion and never reused in the same session.
	ID         int64                  `json:"id" db:"id"`
	MediaType  MediaType              `json:"media_type" db:"media_type"`
	SourcePath string                 `json:"source_path" db:"source_path"`
	// FrameCount is the number of sampled frames for videos; 1 for images.
	FrameCount int                    `json:"frame_count,omitempty" db:"frame_count"`
	Metadata   map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	CreatedAt  time.Time              `json:"created_at" db:"created_at"`
}
