package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/dtnitsch/news-insight/models"
	"github.com/dtnitsch/news-insight/pkg/response"
)

const (
	DefaultOllamaURL   = "http://localhost:11434"
	DefaultOllamaModel = "gemma3:4b"
)

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Images  []string       `json:"images,omitempty"`
	Format  any            `json:"format,omitempty"`
	Options *ollamaOptions `json:"options,omitempty"`
	Stream  bool           `json:"stream"`
}

type ollamaOptions struct {
	Temperature *float32 `json:"temperature,omitempty"`
	TopK        *float32 `json:"top_k,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

type ollamaPullEvent struct {
	Status    string `json:"status"`
	Total     int64  `json:"total"`
	Completed int64  `json:"completed"`
	Error     string `json:"error,omitempty"`
}

// ollamaModel serves capabilities from a local Ollama server. A model that
// the server knows how to pull but has not stored is downloadable.
type ollamaModel struct {
	baseURL string
	model   string
	client  *http.Client
	logger  *slog.Logger

	pulling atomic.Bool
}

// NewOllama returns a backend over a local Ollama server. The summarizer,
// rewriter and proofreader are prompt-driven sessions on the same model.
// client may be nil.
func NewOllama(cfg models.ModelConfig, client *http.Client, logger *slog.Logger) *Backend {
	if client == nil {
		client = &http.Client{}
	}
	base := strings.TrimRight(cfg.OllamaURL, "/")
	if base == "" {
		base = DefaultOllamaURL
	}
	name := cfg.Name
	if name == "" {
		name = DefaultOllamaModel
	}
	m := &ollamaModel{baseURL: base, model: name, client: client, logger: logger}

	return &Backend{
		Name: "ollama:" + name,
		Summarizer: CapabilityFuncs[SummarizerSession]{
			AvailabilityFunc: m.availability,
			CreateFunc:       func(context.Context) (SummarizerSession, error) { return m.session(), nil },
			DownloadFunc:     m.pull,
		},
		LanguageModel: CapabilityFuncs[LanguageModelSession]{
			AvailabilityFunc: m.availability,
			CreateFunc:       func(context.Context) (LanguageModelSession, error) { return m.session(), nil },
			DownloadFunc:     m.pull,
		},
		Rewriter: CapabilityFuncs[RewriterSession]{
			AvailabilityFunc: m.availability,
			CreateFunc:       func(context.Context) (RewriterSession, error) { return m.session(), nil },
			DownloadFunc:     m.pull,
		},
		Proofreader: CapabilityFuncs[ProofreaderSession]{
			AvailabilityFunc: m.availability,
			CreateFunc:       func(context.Context) (ProofreaderSession, error) { return m.session(), nil },
			DownloadFunc:     m.pull,
		},
	}
}

func (m *ollamaModel) availability(ctx context.Context) (Availability, error) {
	if m.pulling.Load() {
		return Downloading, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/api/tags", nil)
	if err != nil {
		return Unavailable, err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		// Server not running.
		return Unavailable, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Unavailable, nil
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return Unavailable, fmt.Errorf("failed to decode ollama tags: %w", err)
	}
	for _, t := range tags.Models {
		if sameModel(t.Name, m.model) || sameModel(t.Model, m.model) {
			return Available, nil
		}
	}
	return Downloadable, nil
}

// sameModel treats "name" and "name:latest" as equal.
func sameModel(have, want string) bool {
	if have == want {
		return true
	}
	return strings.TrimSuffix(have, ":latest") == strings.TrimSuffix(want, ":latest")
}

// pull streams /api/pull progress. Only one pull runs at a time; a second
// caller reports the pull as already in progress.
func (m *ollamaModel) pull(ctx context.Context, progress chan<- DownloadProgress) error {
	if !m.pulling.CompareAndSwap(false, true) {
		return errors.New("model download already in progress")
	}
	defer m.pulling.Store(false)

	body, err := json.Marshal(map[string]any{"model": m.model, "stream": true})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to start ollama pull: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ollama pull returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev ollamaPullEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			m.logger.Debug("Skipping malformed pull event", "error", err)
			continue
		}
		if ev.Error != "" {
			return fmt.Errorf("ollama pull failed: %s", ev.Error)
		}
		p := DownloadProgress{Status: ev.Status}
		if ev.Total > 0 {
			p.Loaded = float64(ev.Completed) / float64(ev.Total)
		}
		if ev.Status == "success" {
			p.Loaded = 1
		}
		if !Report(ctx, progress, p) {
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read ollama pull stream: %w", err)
	}
	return nil
}

func (m *ollamaModel) session() *ollamaSession {
	return &ollamaSession{m: m}
}

type ollamaSession struct {
	m      *ollamaModel
	closed bool
}

func (s *ollamaSession) Destroy() {
	s.closed = true
}

func (s *ollamaSession) Prompt(ctx context.Context, req PromptRequest) (string, error) {
	if s.closed {
		return "", errors.New("session destroyed")
	}

	payload := ollamaGenerateRequest{
		Model:  s.m.model,
		Prompt: req.Text,
		System: req.System,
		Stream: false,
	}
	if req.Temperature != nil || req.TopK != nil {
		payload.Options = &ollamaOptions{Temperature: req.Temperature, TopK: req.TopK}
	}
	if req.Schema != nil {
		payload.Format = req.Schema
	}
	for _, img := range req.Images {
		payload.Images = append(payload.Images, base64.StdEncoding.EncodeToString(img.Data))
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal ollama request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.m.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.m.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to call ollama: %w", err)
	}
	defer resp.Body.Close()

	var out ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode ollama response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || out.Error != "" {
		return "", fmt.Errorf("ollama returned %d: %s", resp.StatusCode, out.Error)
	}
	if !out.Done {
		return "", errors.New("ollama response not completed")
	}
	return out.Response, nil
}

func (s *ollamaSession) Summarize(ctx context.Context, text string, opts SummarizeOptions) (string, error) {
	return s.Prompt(ctx, PromptRequest{Text: text, System: summarySystem(opts)})
}

func (s *ollamaSession) Rewrite(ctx context.Context, text string, opts RewriteOptions) (string, error) {
	return s.Prompt(ctx, PromptRequest{Text: text, System: rewriteSystem(opts)})
}

func (s *ollamaSession) Proofread(ctx context.Context, text string) ([]models.Correction, error) {
	raw, err := s.Prompt(ctx, PromptRequest{Text: ProofreadPrompt(text), Schema: CorrectionsSchema()})
	if err != nil {
		return nil, err
	}
	return response.Corrections(raw).Items, nil
}
