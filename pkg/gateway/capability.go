// Package gateway is the only component that talks to the language model.
// It presents capability-oriented operations (summarize, prompt, rewrite,
// proofread, multimodal prompt) over a backend whose capabilities may be
// missing, downloadable or ready, and degrades to placeholders instead of
// failing.
package gateway

import (
	"context"
	"errors"

	"github.com/dtnitsch/news-insight/models"
)

// ErrModelUnavailable means a capability is absent. Operations never return
// it; it only surfaces from an explicit Download request.
var ErrModelUnavailable = errors.New("model capability unavailable")

// Availability is the readiness of a capability.
type Availability string

const (
	Unavailable  Availability = "unavailable"
	Downloadable Availability = "downloadable"
	Downloading  Availability = "downloading"
	Available    Availability = "available"
)

// CapabilityName identifies one capability of a backend.
type CapabilityName string

const (
	CapSummarizer    CapabilityName = "summarizer"
	CapLanguageModel CapabilityName = "languageModel"
	CapRewriter      CapabilityName = "rewriter"
	CapProofreader   CapabilityName = "proofreader"
)

// AllCapabilities lists capability names in probe order.
func AllCapabilities() []CapabilityName {
	return []CapabilityName{CapSummarizer, CapLanguageModel, CapRewriter, CapProofreader}
}

// Session is a short-lived handle to a capability. It must be destroyed
// after use.
type Session interface {
	Destroy()
}

type SummarizerSession interface {
	Session
	Summarize(ctx context.Context, text string, opts SummarizeOptions) (string, error)
}

type LanguageModelSession interface {
	Session
	Prompt(ctx context.Context, req PromptRequest) (string, error)
}

type RewriterSession interface {
	Session
	Rewrite(ctx context.Context, text string, opts RewriteOptions) (string, error)
}

type ProofreaderSession interface {
	Session
	Proofread(ctx context.Context, text string) ([]models.Correction, error)
}

// Capability is an external, possibly unavailable model function.
type Capability[S Session] interface {
	Availability(ctx context.Context) (Availability, error)
	Create(ctx context.Context) (S, error)
	// Download fetches the capability's model, reporting progress until it
	// returns. Sends on progress must give up when ctx is done.
	Download(ctx context.Context, progress chan<- DownloadProgress) error
}

// CapabilityFuncs adapts plain functions to Capability. A nil DownloadFunc
// reports completion immediately.
type CapabilityFuncs[S Session] struct {
	AvailabilityFunc func(ctx context.Context) (Availability, error)
	CreateFunc       func(ctx context.Context) (S, error)
	DownloadFunc     func(ctx context.Context, progress chan<- DownloadProgress) error
}

func (c CapabilityFuncs[S]) Availability(ctx context.Context) (Availability, error) {
	if c.AvailabilityFunc == nil {
		return Unavailable, nil
	}
	return c.AvailabilityFunc(ctx)
}

func (c CapabilityFuncs[S]) Create(ctx context.Context) (S, error) {
	if c.CreateFunc == nil {
		var zero S
		return zero, ErrModelUnavailable
	}
	return c.CreateFunc(ctx)
}

func (c CapabilityFuncs[S]) Download(ctx context.Context, progress chan<- DownloadProgress) error {
	if c.DownloadFunc == nil {
		Report(ctx, progress, DownloadProgress{Loaded: 1, Status: "ready"})
		return nil
	}
	return c.DownloadFunc(ctx, progress)
}

// Backend groups the capabilities one model provider offers. Nil fields are
// unavailable capabilities.
type Backend struct {
	Name          string
	Summarizer    Capability[SummarizerSession]
	LanguageModel Capability[LanguageModelSession]
	Rewriter      Capability[RewriterSession]
	Proofreader   Capability[ProofreaderSession]
}

// NoBackend returns a backend with no capabilities; every operation yields
// a placeholder.
func NoBackend() *Backend {
	return &Backend{Name: "none"}
}

// availabilityChecker is the non-generic part of Capability.
type availabilityChecker interface {
	Availability(ctx context.Context) (Availability, error)
	Download(ctx context.Context, progress chan<- DownloadProgress) error
}

func (b *Backend) capability(name CapabilityName) availabilityChecker {
	switch name {
	case CapSummarizer:
		if b.Summarizer != nil {
			return b.Summarizer
		}
	case CapLanguageModel:
		if b.LanguageModel != nil {
			return b.LanguageModel
		}
	case CapRewriter:
		if b.Rewriter != nil {
			return b.Rewriter
		}
	case CapProofreader:
		if b.Proofreader != nil {
			return b.Proofreader
		}
	}
	return nil
}

// Status reports the availability of every capability.
func (b *Backend) Status(ctx context.Context) map[CapabilityName]Availability {
	out := make(map[CapabilityName]Availability, 4)
	for _, name := range AllCapabilities() {
		out[name] = Unavailable
		c := b.capability(name)
		if c == nil {
			continue
		}
		if a, err := c.Availability(ctx); err == nil {
			out[name] = a
		}
	}
	return out
}

// usable reports whether a capability can be used right now. Capabilities
// that still need a download are not usable until the caller downloads
// them explicitly.
func usable[S Session](ctx context.Context, c Capability[S]) (bool, string) {
	if c == nil {
		return false, string(Unavailable)
	}
	a, err := c.Availability(ctx)
	if err != nil {
		return false, "availability_error"
	}
	return a == Available, string(a)
}

// withSession creates a session, runs fn and destroys the session on every
// exit path, panics included.
func withSession[S Session, T any](ctx context.Context, c Capability[S], fn func(S) (T, error)) (T, error) {
	var zero T
	s, err := c.Create(ctx)
	if err != nil {
		return zero, err
	}
	defer s.Destroy()
	return fn(s)
}
