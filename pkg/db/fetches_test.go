package db

import (
	"context"
	"testing"
)

func TestRecordFetch(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	if err := db.RecordFetch(ctx, "https://example.com/a", 200, "", true); err != nil {
		t.Fatalf("RecordFetch() failed: %v", err)
	}

	var statusCode int
	var success bool
	err := db.QueryRow("SELECT status_code, success FROM fetches WHERE url = ?", "https://example.com/a").Scan(&statusCode, &success)
	if err != nil {
		t.Fatalf("failed to query fetch: %v", err)
	}
	if statusCode != 200 {
		t.Errorf("status_code = %d, want 200", statusCode)
	}
	if !success {
		t.Error("success = false, want true")
	}
}

func TestLastFetch(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	db.RecordFetch(ctx, "https://example.com/a", 200, "", true)
	db.RecordFetch(ctx, "https://example.com/a", 0, "timeout", false)

	record, err := db.LastFetch(ctx, "https://example.com/a")
	if err != nil {
		t.Fatalf("LastFetch() failed: %v", err)
	}
	if record == nil {
		t.Fatal("LastFetch() returned nil")
	}
	if record.Success || record.ErrorType != "timeout" {
		t.Errorf("LastFetch() = %+v, want failed timeout", record)
	}
}

func TestLastFetch_NeverFetched(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	record, err := db.LastFetch(context.Background(), "https://example.com/none")
	if err != nil {
		t.Fatalf("LastFetch() failed: %v", err)
	}
	if record != nil {
		t.Errorf("LastFetch() = %+v, want nil", record)
	}
}
