// Package storage defines the persistence interface for media records.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/miru/internal/models"
)

// ErrNotFound is returned when a record with the requested id does not exist.
var ErrNotFound = errors.New("record not found")

// Storage defines media record persistence operations. Record ids are
// assigned by the caller before insert.
type Storage interface {
	// Record operations
	CreateRecord(ctx context.Context, rec *models.MediaRecord) error
	GetRecord(ctx context.Context, id int64) (*models.MediaRecord, error)
	ListRecords(ctx context.Context, offset, limit int) ([]*models.MediaRecord, error)
	DeleteRecord(ctx context.Context, id int64) error
	DeleteByPath(ctx context.Context, sourcePath string) ([]int64, error)
	Clear(ctx context.Context) error

	// Stats
	CountRecords(ctx context.Context) (int64, error)
	CountByType(ctx context.Context, mediaType models.MediaType) (int64, error)
	MaxID(ctx context.Context) (int64, error)

	// Index metadata (persistence generation, counts) kept alongside the
	// records so both can be checked against the vector index file.
	GetMeta(ctx context.Context, key string) (string, error)
	SetMeta(ctx context.Context, entries map[string]string) error

	Close() error
}
