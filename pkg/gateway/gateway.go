package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dtnitsch/news-insight/models"
	"github.com/dtnitsch/news-insight/pkg/metrics"
	"github.com/dtnitsch/news-insight/pkg/response"
)

// SummarizeOptions configures a summary. FallbackPrompt is the prompt sent
// to the language model when no summarizer is usable.
type SummarizeOptions struct {
	Context        string
	OutputLanguage string
	FallbackPrompt string
}

// RewriteOptions configures a rewrite. FallbackPrompt works as in
// SummarizeOptions.
type RewriteOptions struct {
	Context        string
	FallbackPrompt string
}

// Image is inline image data for multimodal prompts.
type Image struct {
	Data     []byte
	MIMEType string
}

// PromptRequest is one language-model prompt. A non-nil Schema asks for
// structured output; callers still parse the reply defensively.
type PromptRequest struct {
	Text        string
	System      string
	Images      []Image
	Schema      *Schema
	Temperature *float32
	TopK        *float32
}

// Structured reports whether the request expects JSON output.
func (r PromptRequest) Structured() bool {
	return r.Schema != nil
}

// Gateway dispatches model operations to the selected backend. It holds no
// mutable state; each call opens its own session.
type Gateway struct {
	backend *Backend
	logger  *slog.Logger
}

// New returns a Gateway over backend. A nil backend behaves like NoBackend.
func New(backend *Backend, logger *slog.Logger) *Gateway {
	if backend == nil {
		backend = NoBackend()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{backend: backend, logger: logger}
}

// Backend returns the backend name.
func (g *Gateway) Backend() string {
	return g.backend.Name
}

// Status reports availability of every capability.
func (g *Gateway) Status(ctx context.Context) map[CapabilityName]Availability {
	return g.backend.Status(ctx)
}

func (g *Gateway) fallback(op, reason string, err error) {
	metrics.RecordFallback(op, reason)
	if err != nil {
		g.logger.Warn("Model call failed, falling back", "operation", op, "backend", g.backend.Name, "error", err)
		return
	}
	g.logger.Debug("Capability not usable, falling back", "operation", op, "backend", g.backend.Name, "reason", reason)
}

// Summarize summarizes text with the summarizer capability, falling back to
// a generic prompt and finally to a placeholder.
func (g *Gateway) Summarize(ctx context.Context, text string, opts SummarizeOptions) (string, error) {
	if ok, reason := usable(ctx, g.backend.Summarizer); ok {
		out, err := withSession(ctx, g.backend.Summarizer, func(s SummarizerSession) (string, error) {
			return s.Summarize(ctx, text, opts)
		})
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		g.fallback("summarize", "error", err)
	} else {
		g.fallback("summarize", reason, nil)
	}

	prompt := opts.FallbackPrompt
	if prompt == "" {
		prompt = "SUMMARIZE:\n" + text
	}
	return g.Prompt(ctx, PromptRequest{Text: prompt})
}

// Prompt sends a prompt to the language model. When the model is unusable
// or fails, a labelled placeholder is returned; structured requests get a
// placeholder that still parses as an item list.
func (g *Gateway) Prompt(ctx context.Context, req PromptRequest) (string, error) {
	out, err := g.prompt(ctx, "prompt", req)
	if err != nil {
		return "", err
	}
	if out != nil {
		return *out, nil
	}
	return Placeholder(req.Text, req.Structured()), nil
}

// prompt returns nil when the language model could not answer.
func (g *Gateway) prompt(ctx context.Context, op string, req PromptRequest) (*string, error) {
	ok, reason := usable(ctx, g.backend.LanguageModel)
	if !ok {
		g.fallback(op, reason, nil)
		return nil, nil
	}
	out, err := withSession(ctx, g.backend.LanguageModel, func(s LanguageModelSession) (string, error) {
		return s.Prompt(ctx, req)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.fallback(op, "error", err)
		return nil, nil
	}
	return &out, nil
}

// PromptMultimodal prompts with images attached. If the model rejects the
// images the prompt is retried once as text only, then a placeholder is
// returned.
func (g *Gateway) PromptMultimodal(ctx context.Context, req PromptRequest) (string, error) {
	out, err := g.prompt(ctx, "multimodal", req)
	if err != nil {
		return "", err
	}
	if out != nil {
		return *out, nil
	}
	if len(req.Images) > 0 {
		textOnly := req
		textOnly.Images = nil
		textOnly.Text = req.Text + "\n\n(The image could not be attached. Answer from the text alone.)"
		out, err = g.prompt(ctx, "multimodal_text", textOnly)
		if err != nil {
			return "", err
		}
		if out != nil {
			return *out, nil
		}
	}
	return Placeholder(req.Text, req.Structured()), nil
}

// Rewrite rewrites text with the rewriter capability, falling back to a
// language-model prompt and then to a placeholder.
func (g *Gateway) Rewrite(ctx context.Context, text string, opts RewriteOptions) (string, error) {
	if ok, reason := usable(ctx, g.backend.Rewriter); ok {
		out, err := withSession(ctx, g.backend.Rewriter, func(s RewriterSession) (string, error) {
			return s.Rewrite(ctx, text, opts)
		})
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		g.fallback("rewrite", "error", err)
	} else {
		g.fallback("rewrite", reason, nil)
	}

	prompt := opts.FallbackPrompt
	if prompt == "" {
		prompt = "Rewrite the following text in neutral, precise language. Return only the rewritten text.\n\n" + text
	}
	return g.Prompt(ctx, PromptRequest{Text: prompt})
}

// Proofread returns corrections for text. Without a proofreader the
// language model is asked for corrections as JSON; otherwise no corrections
// are reported.
func (g *Gateway) Proofread(ctx context.Context, text string) ([]models.Correction, error) {
	if ok, reason := usable(ctx, g.backend.Proofreader); ok {
		out, err := withSession(ctx, g.backend.Proofreader, func(s ProofreaderSession) ([]models.Correction, error) {
			return s.Proofread(ctx, text)
		})
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.fallback("proofread", "error", err)
	} else {
		g.fallback("proofread", reason, nil)
	}

	raw, err := g.prompt(ctx, "proofread_prompt", PromptRequest{
		Text:   ProofreadPrompt(text),
		Schema: CorrectionsSchema(),
	})
	if err != nil || raw == nil {
		return nil, err
	}
	return response.Corrections(*raw).Items, nil
}

// ProofreadPrompt asks a general language model for corrections with rune
// offsets into text.
func ProofreadPrompt(text string) string {
	return fmt.Sprintf(`Proofread the text below. Report spelling, grammar and punctuation errors only.
Return a JSON object {"corrections":[{"offset":0,"length":0,"correction":"","explanation":""}]}
where offset and length count characters of the original text. Return {"corrections":[]} if there is nothing to fix.

TEXT:
%s`, text)
}

// summarySystem is the system instruction for prompt-driven summarizers.
func summarySystem(opts SummarizeOptions) string {
	system := "Summarize the article as three to five short key points, one per line, each starting with \"- \"."
	if opts.OutputLanguage != "" {
		system += " Write the summary in the language with ISO code " + opts.OutputLanguage + "."
	}
	if opts.Context != "" {
		system += " Context: " + opts.Context
	}
	return system
}

func rewriteSystem(opts RewriteOptions) string {
	system := "Rewrite the user's text in neutral, precise language without loaded terms. Keep the meaning and length. Return only the rewritten text."
	if opts.Context != "" {
		system += " Context: " + opts.Context
	}
	return system
}

const placeholderExcerpt = 240

// PlaceholderLabel prefixes every placeholder result.
const PlaceholderLabel = "Placeholder"

// Placeholder is the labelled substitute returned when no model could
// answer. Structured placeholders parse as a one-item list.
func Placeholder(prompt string, structured bool) string {
	if structured {
		return `{"items":[{"label":"Placeholder: language model unavailable","short_claim":"Placeholder: language model unavailable","detail":"Enable a model backend to get real results.","score":0,"confidence":0}]}`
	}
	excerpt := []rune(strings.TrimSpace(prompt))
	if len(excerpt) > placeholderExcerpt {
		excerpt = append(excerpt[:placeholderExcerpt], '…')
	}
	return PlaceholderLabel + " analysis: the language model is unavailable. Input excerpt: " + string(excerpt)
}

// IsPlaceholder reports whether s was produced by Placeholder.
func IsPlaceholder(s string) bool {
	return strings.HasPrefix(s, PlaceholderLabel+" analysis:") ||
		strings.Contains(s, `"label":"Placeholder: language model unavailable"`)
}
