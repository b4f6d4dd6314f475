package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"google.golang.org/genai"

	"github.com/dtnitsch/news-insight/models"
	"github.com/dtnitsch/news-insight/pkg/response"
)

// DefaultGenAIModel is used when no model name is configured.
const DefaultGenAIModel = "gemini-2.5-flash"

// genaiModel talks to the Gemini API. Hosted models need no download, so
// availability is either unavailable or available.
type genaiModel struct {
	client *genai.Client
	model  string
	logger *slog.Logger

	// lookup checks that the model exists. Concurrent checks run
	// independently until one succeeds.
	lookup    func(ctx context.Context) error
	available atomic.Bool
}

// NewGenAI returns a backend over the Gemini API. All four capabilities are
// served by one hosted model.
func NewGenAI(ctx context.Context, cfg models.ModelConfig, logger *slog.Logger) (*Backend, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("GenAI API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	name := cfg.Name
	if name == "" {
		name = DefaultGenAIModel
	}
	m := &genaiModel{client: client, model: name, logger: logger}
	m.lookup = func(ctx context.Context) error {
		_, err := client.Models.Get(ctx, name, nil)
		return err
	}

	return &Backend{
		Name: "genai:" + name,
		Summarizer: CapabilityFuncs[SummarizerSession]{
			AvailabilityFunc: m.availability,
			CreateFunc:       func(context.Context) (SummarizerSession, error) { return m.session(), nil },
		},
		LanguageModel: CapabilityFuncs[LanguageModelSession]{
			AvailabilityFunc: m.availability,
			CreateFunc:       func(context.Context) (LanguageModelSession, error) { return m.session(), nil },
		},
		Rewriter: CapabilityFuncs[RewriterSession]{
			AvailabilityFunc: m.availability,
			CreateFunc:       func(context.Context) (RewriterSession, error) { return m.session(), nil },
		},
		Proofreader: CapabilityFuncs[ProofreaderSession]{
			AvailabilityFunc: m.availability,
			CreateFunc:       func(context.Context) (ProofreaderSession, error) { return m.session(), nil },
		},
	}, nil
}

// availability looks the model up once; failures are retried on the next
// check.
func (m *genaiModel) availability(ctx context.Context) (Availability, error) {
	if m.available.Load() {
		return Available, nil
	}
	if err := m.lookup(ctx); err != nil {
		m.logger.Debug("GenAI model lookup failed", "model", m.model, "error", err)
		return Unavailable, nil
	}
	m.available.Store(true)
	return Available, nil
}

func (m *genaiModel) session() *genaiSession {
	return &genaiSession{m: m}
}

// genaiSession is stateless on the server side; Destroy only marks it
// closed.
type genaiSession struct {
	m      *genaiModel
	closed bool
}

func (s *genaiSession) Destroy() {
	s.closed = true
}

func (s *genaiSession) Prompt(ctx context.Context, req PromptRequest) (string, error) {
	if s.closed {
		return "", errors.New("session destroyed")
	}

	parts := []*genai.Part{genai.NewPartFromText(req.Text)}
	for _, img := range req.Images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	cfg := &genai.GenerateContentConfig{
		Temperature: req.Temperature,
		TopK:        req.TopK,
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = toGenAISchema(req.Schema)
	}

	resp, err := s.m.client.Models.GenerateContent(ctx, s.m.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("GenAI returned an empty response")
	}
	return text, nil
}

func (s *genaiSession) Summarize(ctx context.Context, text string, opts SummarizeOptions) (string, error) {
	return s.Prompt(ctx, PromptRequest{Text: text, System: summarySystem(opts)})
}

func (s *genaiSession) Rewrite(ctx context.Context, text string, opts RewriteOptions) (string, error) {
	return s.Prompt(ctx, PromptRequest{Text: text, System: rewriteSystem(opts)})
}

func (s *genaiSession) Proofread(ctx context.Context, text string) ([]models.Correction, error) {
	raw, err := s.Prompt(ctx, PromptRequest{Text: ProofreadPrompt(text), Schema: CorrectionsSchema()})
	if err != nil {
		return nil, err
	}
	return response.Corrections(raw).Items, nil
}

func toGenAISchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:     genaiType(s.Type),
		Required: s.Required,
		Enum:     s.Enum,
		Items:    toGenAISchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, p := range s.Properties {
			out.Properties[name] = toGenAISchema(p)
		}
	}
	return out
}

func genaiType(t string) genai.Type {
	switch t {
	case TypeObject:
		return genai.TypeObject
	case TypeArray:
		return genai.TypeArray
	case TypeNumber:
		return genai.TypeNumber
	case TypeInteger:
		return genai.TypeInteger
	case TypeBoolean:
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}
