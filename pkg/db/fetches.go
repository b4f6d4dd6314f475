package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// FetchRecord represents one outbound fetch attempt.
type FetchRecord struct {
	FetchID    int64     `json:"fetch_id" yaml:"fetch_id"`
	URL        string    `json:"url" yaml:"url"`
	FetchedAt  time.Time `json:"fetched_at" yaml:"fetched_at"`
	StatusCode int       `json:"status_code" yaml:"status_code"`
	ErrorType  string    `json:"error_type,omitempty" yaml:"error_type,omitempty"`
	Success    bool      `json:"success" yaml:"success"`
}

// RecordFetch records a fetch attempt.
func (db *DB) RecordFetch(ctx context.Context, rawURL string, statusCode int, errorType string, success bool) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO fetches (url, status_code, error_type, success)
		VALUES (?, ?, ?, ?)
	`, rawURL, statusCode, errorType, success)
	if err != nil {
		return fmt.Errorf("failed to record fetch: %w", err)
	}
	return nil
}

// LastFetch returns the most recent fetch of rawURL, or nil if it was never
// fetched.
func (db *DB) LastFetch(ctx context.Context, rawURL string) (*FetchRecord, error) {
	var record FetchRecord
	err := db.QueryRowContext(ctx, `
		SELECT fetch_id, url, fetched_at, status_code, error_type, success
		FROM fetches
		WHERE url = ?
		ORDER BY fetch_id DESC
		LIMIT 1
	`, rawURL).Scan(&record.FetchID, &record.URL, &record.FetchedAt, &record.StatusCode, &record.ErrorType, &record.Success)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last fetch: %w", err)
	}
	return &record, nil
}
