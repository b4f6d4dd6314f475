package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Storage namespaces.
const (
	NamespaceSync  = "sync"
	NamespaceLocal = "local"
)

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("key not found")

// Get returns the raw value stored under namespace/key.
func (db *DB) Get(ctx context.Context, namespace, key string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx,
		"SELECT value FROM kv_store WHERE namespace = ? AND key = ?",
		namespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s/%s: %w", namespace, key, err)
	}
	return value, nil
}

// Set stores value under namespace/key, replacing any previous value
// wholesale.
func (db *DB) Set(ctx context.Context, namespace, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO kv_store (namespace, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, namespace, key, value)
	if err != nil {
		return fmt.Errorf("failed to set %s/%s: %w", namespace, key, err)
	}
	return nil
}

// Delete removes namespace/key. Deleting a missing key is not an error.
func (db *DB) Delete(ctx context.Context, namespace, key string) error {
	_, err := db.ExecContext(ctx, "DELETE FROM kv_store WHERE namespace = ? AND key = ?", namespace, key)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", namespace, key, err)
	}
	return nil
}

// Clear removes every key in namespace and returns how many were removed.
func (db *DB) Clear(ctx context.Context, namespace string) (int64, error) {
	res, err := db.ExecContext(ctx, "DELETE FROM kv_store WHERE namespace = ?", namespace)
	if err != nil {
		return 0, fmt.Errorf("failed to clear %s: %w", namespace, err)
	}
	return res.RowsAffected()
}

// Keys lists keys in namespace with the given prefix, sorted.
func (db *DB) Keys(ctx context.Context, namespace, prefix string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT key FROM kv_store
		WHERE namespace = ? AND substr(key, 1, length(?)) = ?
		ORDER BY key
	`, namespace, prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s keys: %w", namespace, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// GetJSON decodes the value under namespace/key into v.
func (db *DB) GetJSON(ctx context.Context, namespace, key string, v any) error {
	raw, err := db.Get(ctx, namespace, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to decode %s/%s: %w", namespace, key, err)
	}
	return nil
}

// SetJSON encodes v and stores it under namespace/key.
func (db *DB) SetJSON(ctx context.Context, namespace, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", namespace, key, err)
	}
	return db.Set(ctx, namespace, key, string(raw))
}
