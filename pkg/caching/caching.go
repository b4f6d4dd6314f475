// Package caching is a file-based TTL cache for fetched pages and images.
package caching

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Cache stores one file per (kind, url) under dir.
type Cache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewCache creates a new Cache instance.
// The cache directory will be created if it doesn't exist.
func NewCache(dir string, ttl time.Duration) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{dir: dir, ttl: ttl, now: time.Now}, nil
}

// key hashes kind and url into a file name. kind keeps pages and images of
// the same URL apart.
func (c *Cache) key(kind, url string) string {
	hash := sha256.Sum256([]byte(kind + "\x00" + url))
	return kind + "-" + hex.EncodeToString(hash[:])
}

// Get returns the cached bytes and true on a fresh hit.
func (c *Cache) Get(kind, url string) ([]byte, bool) {
	filePath := filepath.Join(c.dir, c.key(kind, url))

	info, err := os.Stat(filePath)
	if err != nil {
		return nil, false
	}
	if c.expired(info) {
		return nil, false
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set stores data. The file is written beside its final name and renamed
// so readers never see a partial entry.
func (c *Cache) Set(kind, url string, data []byte) error {
	final := filepath.Join(c.dir, c.key(kind, url))
	tmp, err := os.CreateTemp(c.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	return nil
}

// Prune removes expired entries and returns how many were removed.
func (c *Cache) Prune() (int, error) {
	removed := 0
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		info, err := d.Info()
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if c.expired(info) {
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("failed to prune cache: %w", err)
	}
	return removed, nil
}

func (c *Cache) expired(info fs.FileInfo) bool {
	return c.now().Sub(info.ModTime()) > c.ttl
}
