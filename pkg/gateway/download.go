package gateway

import (
	"context"
	"fmt"
)

// DownloadProgress is one event of a capability download. Loaded is the
// completed fraction in [0,1]. The final event has Done set and carries the
// download error, if any.
type DownloadProgress struct {
	Capability CapabilityName `json:"capability"`
	Status     string         `json:"status,omitempty"`
	Loaded     float64        `json:"loaded"`
	Done       bool           `json:"done,omitempty"`
	Err        error          `json:"-"`
}

// Report sends p unless ctx is done. It returns false when the receiver
// has gone away.
func Report(ctx context.Context, progress chan<- DownloadProgress, p DownloadProgress) bool {
	select {
	case progress <- p:
		return true
	case <-ctx.Done():
		return false
	}
}

// Subscription streams download progress. The caller owns it and must call
// Close once it stops reading.
type Subscription struct {
	events <-chan DownloadProgress
	cancel context.CancelFunc
}

// Events returns the progress stream. It is closed after the final event.
func (s *Subscription) Events() <-chan DownloadProgress {
	return s.events
}

// Close stops the download if it is still running and releases the
// subscription.
func (s *Subscription) Close() {
	s.cancel()
	for range s.events {
	}
}

// Wait drains the stream and returns the final event's error.
func (s *Subscription) Wait() error {
	var err error
	for p := range s.events {
		if p.Done {
			err = p.Err
		}
	}
	return err
}

// Download starts downloading a capability's model. Nothing is downloaded
// unless a caller asks for it. A capability that is already available
// yields a subscription with a single completed event.
func (g *Gateway) Download(ctx context.Context, name CapabilityName) (*Subscription, error) {
	c := g.backend.capability(name)
	if c == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrModelUnavailable)
	}

	a, err := c.Availability(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check %s availability: %w", name, err)
	}
	if a == Unavailable {
		return nil, fmt.Errorf("%s: %w", name, ErrModelUnavailable)
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan DownloadProgress, 16)
	sub := &Subscription{events: out, cancel: cancel}

	if a == Available {
		out <- DownloadProgress{Capability: name, Status: "ready", Loaded: 1, Done: true}
		close(out)
		return sub, nil
	}

	g.logger.Info("Starting model download", "backend", g.backend.Name, "capability", name)
	go func() {
		defer close(out)

		raw := make(chan DownloadProgress)
		errc := make(chan error, 1)
		go func() {
			errc <- c.Download(ctx, raw)
			close(raw)
		}()

		last := 0.0
		for p := range raw {
			p.Capability = name
			p.Done = false
			last = p.Loaded
			if !Report(ctx, out, p) {
				for range raw {
				}
				break
			}
		}

		err := <-errc
		if err != nil {
			g.logger.Warn("Model download failed", "capability", name, "error", err)
		} else {
			last = 1
			g.logger.Info("Model download finished", "capability", name)
		}
		// The final event is delivered even after cancellation; out has room
		// unless the reader stalled, in which case it is dropped.
		select {
		case out <- DownloadProgress{Capability: name, Status: "done", Loaded: last, Done: true, Err: err}:
		default:
		}
	}()
	return sub, nil
}
