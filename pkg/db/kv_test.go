package db

import (
	"context"
	"errors"
	"testing"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	// Use in-memory database for tests
	database, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	return database
}

func TestSetGet(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	if err := db.Set(ctx, NamespaceSync, "extensionSettings", `{"a":true}`); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	got, err := db.Get(ctx, NamespaceSync, "extensionSettings")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got != `{"a":true}` {
		t.Errorf("Get() = %q, want %q", got, `{"a":true}`)
	}
}

func TestSet_ReplacesWholesale(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	db.Set(ctx, NamespaceLocal, "k", "first")
	db.Set(ctx, NamespaceLocal, "k", "second")

	got, _ := db.Get(ctx, NamespaceLocal, "k")
	if got != "second" {
		t.Errorf("Get() = %q, want %q", got, "second")
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM kv_store WHERE key = 'k'").Scan(&count)
	if count != 1 {
		t.Errorf("row count = %d, want 1", count)
	}
}

func TestGet_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_, err := db.Get(context.Background(), NamespaceSync, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestNamespacesAreIndependent(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	db.Set(ctx, NamespaceSync, "k", "sync")
	db.Set(ctx, NamespaceLocal, "k", "local")

	tests := []struct {
		namespace string
		want      string
	}{
		{NamespaceSync, "sync"},
		{NamespaceLocal, "local"},
	}
	for _, tt := range tests {
		got, err := db.Get(ctx, tt.namespace, "k")
		if err != nil {
			t.Fatalf("Get(%s) failed: %v", tt.namespace, err)
		}
		if got != tt.want {
			t.Errorf("Get(%s) = %q, want %q", tt.namespace, got, tt.want)
		}
	}
}

func TestDeleteAndClear(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	db.Set(ctx, NamespaceLocal, "calendar:https://a", "[]")
	db.Set(ctx, NamespaceLocal, "calendar:https://b", "[]")
	db.Set(ctx, NamespaceSync, "extensionSettings", "{}")

	if err := db.Delete(ctx, NamespaceLocal, "calendar:https://a"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if err := db.Delete(ctx, NamespaceLocal, "never-set"); err != nil {
		t.Errorf("Delete() of missing key failed: %v", err)
	}

	n, err := db.Clear(ctx, NamespaceLocal)
	if err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Clear() removed %d, want 1", n)
	}

	if _, err := db.Get(ctx, NamespaceSync, "extensionSettings"); err != nil {
		t.Errorf("Clear() touched another namespace: %v", err)
	}
}

func TestKeys(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	db.Set(ctx, NamespaceLocal, "image:https://x/2.png", "b")
	db.Set(ctx, NamespaceLocal, "image:https://x/1.png", "a")
	db.Set(ctx, NamespaceLocal, "calendar:https://x", "c")

	keys, err := db.Keys(ctx, NamespaceLocal, "image:")
	if err != nil {
		t.Fatalf("Keys() failed: %v", err)
	}
	want := []string{"image:https://x/1.png", "image:https://x/2.png"}
	if len(keys) != len(want) {
		t.Fatalf("Keys() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestJSONRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	in := map[string]bool{"biasDetection": false, "summaries": true}
	if err := db.SetJSON(ctx, NamespaceSync, "extensionSettings", in); err != nil {
		t.Fatalf("SetJSON() failed: %v", err)
	}

	var out map[string]bool
	if err := db.GetJSON(ctx, NamespaceSync, "extensionSettings", &out); err != nil {
		t.Fatalf("GetJSON() failed: %v", err)
	}
	if out["biasDetection"] || !out["summaries"] {
		t.Errorf("GetJSON() = %v, want %v", out, in)
	}
}

func TestGetJSON_Corrupt(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	db.Set(ctx, NamespaceSync, "extensionSettings", "{not json")

	var out map[string]bool
	err := db.GetJSON(ctx, NamespaceSync, "extensionSettings", &out)
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("GetJSON() error = %v, want decode error", err)
	}
}
