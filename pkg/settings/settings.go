// Package settings owns the persisted feature flags. Reads return whole
// snapshots; writes go through one Service and are announced on a Hub as
// SETTINGS_CHANGED.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dtnitsch/news-insight/models"
	"github.com/dtnitsch/news-insight/pkg/db"
)

// StorageKey is the key settings live under in the sync namespace.
const StorageKey = "extensionSettings"

// ErrUnknownFlag is returned when updating a flag that does not exist.
var ErrUnknownFlag = errors.New("unknown settings flag")

// Store is the subset of the key-value store settings need.
type Store interface {
	GetJSON(ctx context.Context, namespace, key string, v any) error
	SetJSON(ctx context.Context, namespace, key string, v any) error
	Delete(ctx context.Context, namespace, key string) error
}

type Service struct {
	store  Store
	hub    *Hub
	logger *slog.Logger

	// serializes read-modify-write updates
	mu sync.Mutex
}

// NewService returns a settings service. hub may be nil when nobody listens
// for changes.
func NewService(store Store, hub *Hub, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, hub: hub, logger: logger}
}

// Snapshot returns the current settings. Flags never written default to
// enabled. A corrupt stored value is logged and treated as defaults.
func (s *Service) Snapshot(ctx context.Context) (models.Settings, error) {
	out := models.DefaultSettings()

	var stored map[string]bool
	err := s.store.GetJSON(ctx, db.NamespaceSync, StorageKey, &stored)
	switch {
	case errors.Is(err, db.ErrNotFound):
		return out, nil
	case err != nil && ctx.Err() != nil:
		return nil, ctx.Err()
	case err != nil:
		s.logger.Warn("Ignoring unreadable settings", "error", err)
		return out, nil
	}

	for k, v := range stored {
		if models.IsKnownFlag(k) {
			out[k] = v
		}
	}
	return out, nil
}

// Set updates one flag and broadcasts the change.
func (s *Service) Set(ctx context.Context, flag string, enabled bool) (models.Settings, error) {
	if !models.IsKnownFlag(flag) {
		return nil, fmt.Errorf("%q: %w", flag, ErrUnknownFlag)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	current[flag] = enabled
	if err := s.store.SetJSON(ctx, db.NamespaceSync, StorageKey, current); err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}

	s.logger.Info("Setting updated", "flag", flag, "enabled", enabled)
	s.announce()
	return current.Clone(), nil
}

// Reset restores defaults and broadcasts the change.
func (s *Service) Reset(ctx context.Context) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(ctx, db.NamespaceSync, StorageKey); err != nil {
		return nil, fmt.Errorf("failed to reset settings: %w", err)
	}
	s.logger.Info("Settings reset to defaults")
	s.announce()
	return models.DefaultSettings(), nil
}

func (s *Service) announce() {
	if s.hub == nil {
		return
	}
	msg, err := models.NewMessage(models.MsgSettingsChanged, nil)
	if err != nil {
		s.logger.Error("Failed to build settings notification", "error", err)
		return
	}
	n := s.hub.Broadcast(msg)
	s.logger.Debug("Broadcast settings change", "subscribers", n)
}
