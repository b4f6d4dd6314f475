// Package coordinator owns the latest page content and runs every analysis
// against the model gateway. Requests are independent: each one reads a
// fresh settings snapshot and its own copy of the page.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/dtnitsch/news-insight/models"
	"github.com/dtnitsch/news-insight/pkg/db"
	"github.com/dtnitsch/news-insight/pkg/fetcher"
	"github.com/dtnitsch/news-insight/pkg/gateway"
	"github.com/dtnitsch/news-insight/pkg/language"
	"github.com/dtnitsch/news-insight/pkg/parser"
	"github.com/dtnitsch/news-insight/pkg/response"
	"github.com/dtnitsch/news-insight/pkg/splicer"
)

// SummaryDisabled is returned in place of a summary when summaryGeneration
// is off.
const SummaryDisabled = "Summary generation is disabled in settings."

const (
	// paragraphWorkers bounds concurrent highlight prompts in a document pass.
	paragraphWorkers = 4

	webpageTemperature = float32(2.0)
	webpageTopK        = float32(3)
)

var (
	// ErrFeatureDisabled is wrapped with the name of the disabled flag.
	ErrFeatureDisabled = errors.New("feature is disabled in settings")
	ErrEmptyText       = errors.New("no text provided")
	ErrEmptyQuestion   = errors.New("no question provided")
	ErrNoImage         = errors.New("no image URL provided")
	ErrUnknownKind     = errors.New("unknown analysis kind")
)

// Model is the subset of the gateway the coordinator needs.
type Model interface {
	Summarize(ctx context.Context, text string, opts gateway.SummarizeOptions) (string, error)
	Prompt(ctx context.Context, req gateway.PromptRequest) (string, error)
	PromptMultimodal(ctx context.Context, req gateway.PromptRequest) (string, error)
	Rewrite(ctx context.Context, text string, opts gateway.RewriteOptions) (string, error)
	Proofread(ctx context.Context, text string) ([]models.Correction, error)
}

// SettingsSource returns the current feature flags.
type SettingsSource interface {
	Snapshot(ctx context.Context) (models.Settings, error)
}

// Cache persists per-URL results.
type Cache interface {
	GetJSON(ctx context.Context, namespace, key string, v any) error
	SetJSON(ctx context.Context, namespace, key string, v any) error
}

// ImageFetcher downloads image bytes.
type ImageFetcher interface {
	GetImage(ctx context.Context, url string) (*fetcher.Image, error)
}

// LanguageDetector picks the summary output language.
type LanguageDetector interface {
	Detect(text string) string
}

// Deps are the coordinator's collaborators. Cache, Images and Language are
// optional.
type Deps struct {
	Model    Model
	Settings SettingsSource
	Cache    Cache
	Images   ImageFetcher
	Language LanguageDetector
	Logger   *slog.Logger
}

type Coordinator struct {
	model    Model
	settings SettingsSource
	cache    Cache
	images   ImageFetcher
	language LanguageDetector
	parser   *parser.Parser
	logger   *slog.Logger

	content ContentCell
}

func New(d Deps) *Coordinator {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		model:    d.Model,
		settings: d.Settings,
		cache:    d.Cache,
		images:   d.Images,
		language: d.Language,
		parser:   parser.New(),
		logger:   logger,
	}
}

// StorePageContent records page as the latest content. Warm-up and empty
// pages are ignored and reported as false.
func (c *Coordinator) StorePageContent(page *models.PageContent) bool {
	if !c.content.Replace(page) {
		c.logger.Debug("Ignoring unusable page content")
		return false
	}
	c.logger.Info("Stored page content", "url", page.URL, "chars", len(page.Text))
	return true
}

// LatestContent returns the latest stored page, or nil.
func (c *Coordinator) LatestContent() *models.PageContent {
	return c.content.Load()
}

// resolve prefers a usable payload over the stored page.
func (c *Coordinator) resolve(payload *models.PageContent) (*models.PageContent, error) {
	if payload != nil && parser.Usable(payload) {
		return payload, nil
	}
	if latest := c.content.Load(); latest != nil {
		return latest, nil
	}
	return nil, models.ErrNoContent
}

func (c *Coordinator) snapshot(ctx context.Context) (models.Settings, error) {
	s, err := c.settings.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	return s, nil
}

func (c *Coordinator) require(ctx context.Context, flag string) (models.Settings, error) {
	s, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if !s.Enabled(flag) {
		return nil, fmt.Errorf("%s: %w", flag, ErrFeatureDisabled)
	}
	return s, nil
}

// guard turns a panic in one analysis branch into an error for that
// request only.
func guard(name string, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s panicked: %v", name, r)
			}
		}()
		return fn()
	}
}

// RunAnalysis produces a summary, bias report and claim list for payload,
// or for the latest page when payload is nil or unusable. The three run
// concurrently; the request fails if any of them fails.
func (c *Coordinator) RunAnalysis(ctx context.Context, payload *models.PageContent) (*models.AnalysisResult, error) {
	page, err := c.resolve(payload)
	if err != nil {
		return nil, err
	}
	settings, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Running analysis", "url", page.URL)

	var result models.AnalysisResult
	var g errgroup.Group
	g.Go(guard("summary", func() error {
		s, err := c.summary(ctx, page, settings)
		result.Summary = s
		return err
	}))
	g.Go(guard("biases", func() error {
		b, err := c.biases(ctx, page, settings)
		result.Biases = b
		return err
	}))
	g.Go(guard("claims", func() error {
		cl, err := c.claims(ctx, page, settings)
		result.Claims = cl
		return err
	}))
	if err := g.Wait(); err != nil {
		c.logger.Error("Analysis failed", "url", page.URL, "error", err)
		return nil, fmt.Errorf("analysis failed: %w", err)
	}
	return &result, nil
}

func (c *Coordinator) summary(ctx context.Context, page *models.PageContent, settings models.Settings) (string, error) {
	if !settings.Enabled(models.FlagSummaryGeneration) {
		return SummaryDisabled, nil
	}
	lang := language.Default
	if c.language != nil {
		lang = c.language.Detect(page.Text)
	}
	return c.model.Summarize(ctx, page.Text, gateway.SummarizeOptions{
		Context:        summaryContext,
		OutputLanguage: lang,
		FallbackPrompt: summaryFallbackPrompt(page),
	})
}

func (c *Coordinator) biases(ctx context.Context, page *models.PageContent, settings models.Settings) (models.BiasReport, error) {
	report := models.BiasReport{Items: []models.BiasItem{}}
	if !settings.Enabled(models.FlagBiasDetection) {
		return report, nil
	}
	raw, err := c.model.Prompt(ctx, gateway.PromptRequest{Text: biasPrompt(page), Schema: biasSchema()})
	if err != nil {
		return report, err
	}
	if items := response.Biases(raw).Items; len(items) > 0 {
		report.Items = items
	}
	return report, nil
}

func (c *Coordinator) claims(ctx context.Context, page *models.PageContent, settings models.Settings) (models.ClaimReport, error) {
	report := models.ClaimReport{Items: []models.Claim{}}
	if !settings.Enabled(models.FlagClaimsExtraction) {
		return report, nil
	}
	raw, err := c.model.Prompt(ctx, gateway.PromptRequest{Text: claimsPrompt(page), Schema: claimsSchema()})
	if err != nil {
		return report, err
	}
	if items := response.Claims(raw).Items; len(items) > 0 {
		report.Items = items
	}
	return report, nil
}

// HighlightLanguage asks the model for phrases in the enabled highlight
// categories. With every category disabled the model is not called.
func (c *Coordinator) HighlightLanguage(ctx context.Context, text string) (models.HighlightResult, error) {
	empty := models.HighlightResult{Phrases: []models.HighlightPhrase{}}
	if strings.TrimSpace(text) == "" {
		return empty, ErrEmptyText
	}
	settings, err := c.snapshot(ctx)
	if err != nil {
		return empty, err
	}
	return c.highlight(ctx, text, settings)
}

func (c *Coordinator) highlight(ctx context.Context, text string, settings models.Settings) (models.HighlightResult, error) {
	result := models.HighlightResult{Phrases: []models.HighlightPhrase{}}

	var enabled []models.Category
	for _, cat := range models.Categories() {
		if settings.HighlightCategoryEnabled(cat) {
			enabled = append(enabled, cat)
		}
	}
	if len(enabled) == 0 {
		return result, nil
	}

	raw, err := c.model.Prompt(ctx, gateway.PromptRequest{
		Text:   highlightPrompt(text, enabled),
		Schema: highlightSchema(enabled),
	})
	if err != nil {
		return result, err
	}
	parsed := response.Highlights(raw)
	if parsed.Dropped > 0 {
		c.logger.Debug("Dropped invalid highlight items", "dropped", parsed.Dropped)
	}
	for _, p := range parsed.Items {
		if settings.HighlightCategoryEnabled(p.Category) {
			result.Phrases = append(result.Phrases, p)
		}
	}
	return result, nil
}

// AnnotateDocument highlights every qualifying paragraph of rawHTML and
// returns the annotated document.
func (c *Coordinator) AnnotateDocument(ctx context.Context, rawHTML string) (*AnnotatedDocument, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	settings, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	paragraphs := c.parser.Paragraphs(doc)
	phrases := make([][]models.HighlightPhrase, len(paragraphs))
	if settings.AnyHighlightEnabled() {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(paragraphWorkers)
		for i, p := range paragraphs {
			g.Go(guard("highlight", func() error {
				res, err := c.highlight(gctx, p.Text, settings)
				if err != nil {
					return err
				}
				phrases[i] = res.Phrases
				return nil
			}))
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("failed to highlight paragraphs: %w", err)
		}
	}

	// goquery selections are not safe for concurrent mutation.
	nodes := doc.Find("p")
	markers := 0
	for i, p := range paragraphs {
		if len(phrases[i]) == 0 {
			continue
		}
		n, err := splicer.HighlightSelection(nodes.Eq(p.Index), phrases[i], settings)
		if err != nil {
			c.logger.Warn("Failed to annotate paragraph", "index", p.Index, "error", err)
			continue
		}
		markers += n
	}

	out, err := doc.Html()
	if err != nil {
		return nil, fmt.Errorf("failed to render document: %w", err)
	}
	return &AnnotatedDocument{HTML: out, Paragraphs: len(paragraphs), Markers: markers}, nil
}

// AnalyseWebpage returns a free-form assessment of the page.
func (c *Coordinator) AnalyseWebpage(ctx context.Context, payload *models.PageContent) (*WebpageAnalysis, error) {
	page, err := c.resolve(payload)
	if err != nil {
		return nil, err
	}
	if _, err := c.require(ctx, models.FlagAIAnalysis); err != nil {
		return nil, err
	}
	temp, topK := webpageTemperature, webpageTopK
	out, err := c.model.Prompt(ctx, gateway.PromptRequest{
		Text:        webpageAnalysisPrompt(page),
		Temperature: &temp,
		TopK:        &topK,
	})
	if err != nil {
		return nil, err
	}
	return &WebpageAnalysis{Analysis: out}, nil
}

// RunProofreader splits text into plain and corrected segments.
func (c *Coordinator) RunProofreader(ctx context.Context, text string) ([]models.ProofreadSegment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	corrections, err := c.model.Proofread(ctx, text)
	if err != nil {
		return nil, err
	}
	return splicer.Segments(text, corrections), nil
}

// Rewrite returns a neutral rewrite of text.
func (c *Coordinator) Rewrite(ctx context.Context, text string) (*RewriteResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if _, err := c.require(ctx, models.FlagContentRewriting); err != nil {
		return nil, err
	}
	out, err := c.model.Rewrite(ctx, text, gateway.RewriteOptions{
		Context:        summaryContext,
		FallbackPrompt: rewritePrompt(text),
	})
	if err != nil {
		return nil, err
	}
	out = strings.TrimSpace(out)
	return &RewriteResult{Original: text, Rewritten: out, HTML: splicer.RenderRewrite(text, out)}, nil
}

// ExtractCalendar lists dated events mentioned on the page. Results from a
// working model are cached per page URL.
func (c *Coordinator) ExtractCalendar(ctx context.Context, payload *models.PageContent) (*CalendarResult, error) {
	page, err := c.resolve(payload)
	if err != nil {
		return nil, err
	}
	if _, err := c.require(ctx, models.FlagCalendarEvents); err != nil {
		return nil, err
	}

	key := "calendar:" + page.URL
	if page.URL != "" {
		var cached CalendarResult
		if c.lookup(ctx, key, &cached) {
			cached.Cached = true
			return &cached, nil
		}
	}

	raw, err := c.model.Prompt(ctx, gateway.PromptRequest{Text: calendarPrompt(page), Schema: calendarSchema()})
	if err != nil {
		return nil, err
	}
	result := &CalendarResult{URL: page.URL, Events: []models.CalendarEvent{}}
	if items := response.CalendarEvents(raw).Items; len(items) > 0 {
		result.Events = items
	}
	if page.URL != "" && !gateway.IsPlaceholder(raw) {
		c.store(ctx, key, result)
	}
	return result, nil
}

// AnalyseImage describes an image on the page. Descriptions are cached per
// image URL.
func (c *Coordinator) AnalyseImage(ctx context.Context, payload models.ImagePayload) (*ImageAnalysis, error) {
	if strings.TrimSpace(payload.ImageURL) == "" {
		return nil, ErrNoImage
	}
	if _, err := c.require(ctx, models.FlagAIAnalysis); err != nil {
		return nil, err
	}

	key := "image:" + payload.ImageURL
	var cached ImageAnalysis
	if c.lookup(ctx, key, &cached) {
		cached.Cached = true
		return &cached, nil
	}

	var page *models.PageContent
	if latest := c.content.Load(); latest != nil && (payload.PageURL == "" || latest.URL == payload.PageURL) {
		page = latest
	}

	req := gateway.PromptRequest{Text: imagePrompt(page)}
	if c.images != nil {
		img, err := c.images.GetImage(ctx, payload.ImageURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("failed to fetch image: %w", err)
		}
		req.Images = []gateway.Image{{Data: img.Data, MIMEType: img.MIMEType}}
	}

	out, err := c.model.PromptMultimodal(ctx, req)
	if err != nil {
		return nil, err
	}
	result := &ImageAnalysis{ImageURL: payload.ImageURL, Description: strings.TrimSpace(out)}
	if !gateway.IsPlaceholder(out) {
		c.store(ctx, key, result)
	}
	return result, nil
}

// AskWebpage answers a question from the page text.
func (c *Coordinator) AskWebpage(ctx context.Context, payload models.QuestionPayload) (*Answer, error) {
	question := strings.TrimSpace(payload.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	page, err := c.resolve(payload.Page)
	if err != nil {
		return nil, err
	}
	if _, err := c.require(ctx, models.FlagCriticalThinking); err != nil {
		return nil, err
	}
	out, err := c.model.Prompt(ctx, gateway.PromptRequest{Text: questionPrompt(question, page)})
	if err != nil {
		return nil, err
	}
	return &Answer{Question: question, Answer: strings.TrimSpace(out)}, nil
}

// Run dispatches a single analysis by kind.
func (c *Coordinator) Run(ctx context.Context, req models.AnalysisRequest) (any, error) {
	c.logger.Debug("Dispatching analysis", "kind", req.Kind, "request_id", req.RequestID)

	switch req.Kind {
	case models.KindSummary, models.KindBiases, models.KindClaims:
		page, err := c.resolve(req.Page)
		if err != nil {
			return nil, err
		}
		settings, err := c.snapshot(ctx)
		if err != nil {
			return nil, err
		}
		switch req.Kind {
		case models.KindSummary:
			return c.summary(ctx, page, settings)
		case models.KindBiases:
			return c.biases(ctx, page, settings)
		default:
			return c.claims(ctx, page, settings)
		}
	case models.KindHighlight:
		text := req.Text
		if text == "" {
			page, err := c.resolve(req.Page)
			if err != nil {
				return nil, err
			}
			text = page.Text
		}
		return c.HighlightLanguage(ctx, text)
	case models.KindProofread:
		return c.RunProofreader(ctx, req.Text)
	case models.KindRewrite:
		return c.Rewrite(ctx, req.Text)
	case models.KindWebpageQA:
		return c.AskWebpage(ctx, models.QuestionPayload{Question: req.Text, Page: req.Page})
	case models.KindImageAnalysis:
		payload := models.ImagePayload{ImageURL: req.ImageURL}
		if req.Page != nil {
			payload.PageURL = req.Page.URL
		}
		return c.AnalyseImage(ctx, payload)
	case models.KindCalendarExtract:
		return c.ExtractCalendar(ctx, req.Page)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, req.Kind)
	}
}

func (c *Coordinator) lookup(ctx context.Context, key string, v any) bool {
	if c.cache == nil {
		return false
	}
	err := c.cache.GetJSON(ctx, db.NamespaceLocal, key, v)
	if err == nil {
		return true
	}
	if !errors.Is(err, db.ErrNotFound) {
		c.logger.Warn("Failed to read cached result", "key", key, "error", err)
	}
	return false
}

func (c *Coordinator) store(ctx context.Context, key string, v any) {
	if c.cache == nil {
		return
	}
	if err := c.cache.SetJSON(context.WithoutCancel(ctx), db.NamespaceLocal, key, v); err != nil {
		c.logger.Warn("Failed to cache result", "key", key, "error", err)
	}
}
