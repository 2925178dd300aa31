// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/miru/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS media_records (
		id INTEGER PRIMARY KEY,
		media_type TEXT NOT NULL,
		source_path TEXT NOT NULL,
		frame_count INTEGER NOT NULL DEFAULT 0,
		metadata TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_records_source_path ON media_records(source_path);
	CREATE INDEX IF NOT EXISTS idx_records_media_type ON media_records(media_type);

	CREATE TABLE IF NOT EXISTS index_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateRecord inserts a record with its preassigned id.
func (s *SQLiteStorage) CreateRecord(ctx context.Context, rec *models.MediaRecord) error {
	metadataJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO media_records (id, media_type, source_path, frame_count, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.MediaType), rec.SourcePath, rec.FrameCount, string(metadataJSON), rec.CreatedAt,
	)
	return err
}

// GetRecord returns a record by id, or ErrNotFound.
func (s *SQLiteStorage) GetRecord(ctx context.Context, id int64) (*models.MediaRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, media_type, source_path, frame_count, metadata, created_at
		 FROM media_records WHERE id = ?`, id,
	)
	rec, err := scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return rec, err
}

// ListRecords returns records ordered by id with offset and limit.
func (s *SQLiteStorage) ListRecords(ctx context.Context, offset, limit int) ([]*models.MediaRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, media_type, source_path, frame_count, metadata, created_at
		 FROM media_records ORDER BY id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.MediaRecord
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRecord(scan func(dest ...any) error) (*models.MediaRecord, error) {
	var rec models.MediaRecord
	var mediaType string
	var metadataJSON sql.NullString
	if err := scan(&rec.ID, &mediaType, &rec.SourcePath, &rec.FrameCount, &metadataJSON, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.MediaType = models.MediaType(mediaType)
	if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &rec, nil
}

// DeleteRecord removes a record by id, returning ErrNotFound if absent.
func (s *SQLiteStorage) DeleteRecord(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM media_records WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return nil
}

// DeleteByPath removes all records for a source path and returns their ids.
// Deleting a path with no records is not an error.
func (s *SQLiteStorage) DeleteByPath(ctx context.Context, sourcePath string) ([]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM media_records WHERE source_path = ?`, sourcePath)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM media_records WHERE source_path = ?`, sourcePath); err != nil {
		return nil, err
	}
	return ids, tx.Commit()
}

// Clear removes all records.
func (s *SQLiteStorage) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM media_records`)
	return err
}

// CountRecords returns the total number of records.
func (s *SQLiteStorage) CountRecords(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM media_records`).Scan(&count)
	return count, err
}

// CountByType returns the number of records with the given media type.
func (s *SQLiteStorage) CountByType(ctx context.Context, mediaType models.MediaType) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM media_records WHERE media_type = ?`, string(mediaType),
	).Scan(&count)
	return count, err
}

// MaxID returns the highest record id ever assigned, 0 for an empty table.
func (s *SQLiteStorage) MaxID(ctx context.Context) (int64, error) {
	var max sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(id) FROM media_records`).Scan(&max)
	if err != nil {
		return 0, err
	}
	return max.Int64, nil
}

// GetMeta returns the index metadata value for key, empty string if unset.
func (s *SQLiteStorage) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM index_meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetMeta upserts the given index metadata entries in one transaction.
func (s *SQLiteStorage) SetMeta(ctx context.Context, entries map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for key, value := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO index_meta (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, value,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
