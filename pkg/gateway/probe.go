package gateway

import (
	"context"
	"log/slog"
)

// Probe selects the backend the process will use. Candidates are checked in
// order and the first with any usable or downloadable capability wins. When
// none qualifies every operation yields placeholders. Probe runs once at
// startup; nothing downstream repeats discovery.
func Probe(ctx context.Context, logger *slog.Logger, candidates ...*Backend) *Backend {
	for _, b := range candidates {
		if b == nil {
			continue
		}
		status := b.Status(ctx)
		for _, name := range AllCapabilities() {
			if status[name] != Unavailable {
				logger.Info("Selected model backend", "backend", b.Name, "status", status)
				return b
			}
		}
		logger.Debug("Model backend has no capabilities", "backend", b.Name)
	}
	logger.Warn("No model backend available, results will be placeholders")
	return NoBackend()
}
