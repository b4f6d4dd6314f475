// Package router dispatches UI messages to the analysis coordinator and
// settings service. Every accepted message gets exactly one response.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dtnitsch/news-insight/models"
	"github.com/dtnitsch/news-insight/pkg/coordinator"
	"github.com/dtnitsch/news-insight/pkg/metrics"
)

// NoContentMessage is the user-visible text for models.ErrNoContent.
const NoContentMessage = "No content to analyze"

// unknownTypeLabel replaces client-chosen types in metrics labels.
const unknownTypeLabel = "unknown"

// TransportError is a message that could not be decoded or delivered.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Responder delivers a response to the caller. It is called at most once
// per message.
type Responder func(models.Response)

// Settings is the settings surface exposed over messages.
type Settings interface {
	Snapshot(ctx context.Context) (models.Settings, error)
	Set(ctx context.Context, flag string, enabled bool) (models.Settings, error)
	Reset(ctx context.Context) (models.Settings, error)
}

type handler func(ctx context.Context, msg models.Message) (any, error)

type Router struct {
	coord    *coordinator.Coordinator
	settings Settings
	logger   *slog.Logger
	refresh  func(context.Context)

	async map[models.MessageType]handler
	wg    sync.WaitGroup
}

// Option configures a Router.
type Option func(*Router)

// WithRefreshHook sets the function run when SETTINGS_CHANGED arrives.
func WithRefreshHook(fn func(context.Context)) Option {
	return func(r *Router) { r.refresh = fn }
}

func New(coord *coordinator.Coordinator, settings Settings, logger *slog.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{coord: coord, settings: settings, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	r.async = map[models.MessageType]handler{
		models.MsgRequestPageContent: r.requestPageContent,
		models.MsgRunAnalysis:        r.runAnalysis,
		models.MsgHighlightLanguage:  r.highlightLanguage,
		models.MsgAnalyseWebpage:     r.analyseWebpage,
		models.MsgRunProofreader:     r.runProofreader,
		models.MsgRunRewriter:        r.runRewriter,
		models.MsgExtractCalendar:    r.extractCalendar,
		models.MsgAnalyseImage:       r.analyseImage,
		models.MsgAskWebpage:         r.askWebpage,
		models.MsgGetSettings:        r.getSettings,
		models.MsgUpdateSetting:      r.updateSetting,
		models.MsgResetSettings:      r.resetSettings,
	}
	return r
}

// Handle routes msg. It returns false when no response will follow:
// fire-and-forget kinds and unknown kinds. Otherwise the handler runs in
// its own goroutine and respond is called exactly once with the result.
func (r *Router) Handle(ctx context.Context, msg models.Message, respond Responder) bool {
	if msg.RequestID == "" {
		msg.RequestID = uuid.NewString()
	}
	log := r.logger.With("type", msg.Type, "request_id", msg.RequestID)

	switch msg.Type {
	case models.MsgPageContent:
		r.pageContent(msg, log)
		return false
	case models.MsgSettingsChanged:
		if r.refresh != nil {
			r.refresh(ctx)
		}
		metrics.RecordMessage(string(msg.Type), "ok", 0)
		return false
	}

	h, ok := r.async[msg.Type]
	if !ok {
		log.Warn("Ignoring unknown message type")
		metrics.RecordMessage(unknownTypeLabel, "ignored", 0)
		return false
	}

	var once sync.Once
	reply := func(resp models.Response) {
		once.Do(func() {
			resp.RequestID = msg.RequestID
			respond(resp)
		})
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		start := time.Now()
		data, err := r.call(ctx, h, msg)
		status := "ok"
		if err != nil {
			status = "error"
			log.Warn("Request failed", "error", err)
			reply(models.ErrorResponse(userMessage(err)))
		} else {
			reply(models.OKResponse(data))
		}
		metrics.RecordMessage(string(msg.Type), status, time.Since(start).Seconds())
	}()
	return true
}

// Wait blocks until every in-flight handler has responded.
func (r *Router) Wait() {
	r.wg.Wait()
}

func (r *Router) call(ctx context.Context, h handler, msg models.Message) (data any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panicked: %v", rec)
		}
	}()
	return h(ctx, msg)
}

func userMessage(err error) string {
	if errors.Is(err, models.ErrNoContent) {
		return NoContentMessage
	}
	return err.Error()
}

// decode unmarshals an optional payload. An empty payload leaves v as is.
func decode(msg models.Message, v any) error {
	if len(msg.Payload) == 0 || string(msg.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return &TransportError{Op: "decode " + string(msg.Type), Err: err}
	}
	return nil
}

func (r *Router) pageContent(msg models.Message, log *slog.Logger) {
	var page models.PageContent
	if err := decode(msg, &page); err != nil {
		log.Warn("Dropping page content", "error", err)
		metrics.RecordMessage(string(msg.Type), "error", 0)
		return
	}
	if page.CollectedAt.IsZero() {
		page.CollectedAt = time.Now()
	}
	status := "ignored"
	if r.coord.StorePageContent(&page) {
		status = "ok"
	}
	metrics.RecordMessage(string(msg.Type), status, 0)
}

func (r *Router) requestPageContent(context.Context, models.Message) (any, error) {
	page := r.coord.LatestContent()
	if page == nil {
		return nil, models.ErrNoContent
	}
	return page, nil
}

// pagePayload decodes an optional PageContent payload.
func pagePayload(msg models.Message) (*models.PageContent, error) {
	if len(msg.Payload) == 0 || string(msg.Payload) == "null" {
		return nil, nil
	}
	var page models.PageContent
	if err := decode(msg, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (r *Router) runAnalysis(ctx context.Context, msg models.Message) (any, error) {
	page, err := pagePayload(msg)
	if err != nil {
		return nil, err
	}
	return r.coord.RunAnalysis(ctx, page)
}

func (r *Router) highlightLanguage(ctx context.Context, msg models.Message) (any, error) {
	var p models.TextPayload
	if err := decode(msg, &p); err != nil {
		return nil, err
	}
	return r.coord.HighlightLanguage(ctx, p.Text)
}

func (r *Router) analyseWebpage(ctx context.Context, msg models.Message) (any, error) {
	page, err := pagePayload(msg)
	if err != nil {
		return nil, err
	}
	return r.coord.AnalyseWebpage(ctx, page)
}

func (r *Router) runProofreader(ctx context.Context, msg models.Message) (any, error) {
	var p models.TextPayload
	if err := decode(msg, &p); err != nil {
		return nil, err
	}
	return r.coord.RunProofreader(ctx, p.Text)
}

func (r *Router) runRewriter(ctx context.Context, msg models.Message) (any, error) {
	var p models.TextPayload
	if err := decode(msg, &p); err != nil {
		return nil, err
	}
	return r.coord.Rewrite(ctx, p.Text)
}

func (r *Router) extractCalendar(ctx context.Context, msg models.Message) (any, error) {
	page, err := pagePayload(msg)
	if err != nil {
		return nil, err
	}
	return r.coord.ExtractCalendar(ctx, page)
}

func (r *Router) analyseImage(ctx context.Context, msg models.Message) (any, error) {
	var p models.ImagePayload
	if err := decode(msg, &p); err != nil {
		return nil, err
	}
	return r.coord.AnalyseImage(ctx, p)
}

func (r *Router) askWebpage(ctx context.Context, msg models.Message) (any, error) {
	var p models.QuestionPayload
	if err := decode(msg, &p); err != nil {
		return nil, err
	}
	return r.coord.AskWebpage(ctx, p)
}

func (r *Router) getSettings(ctx context.Context, _ models.Message) (any, error) {
	return r.settings.Snapshot(ctx)
}

func (r *Router) updateSetting(ctx context.Context, msg models.Message) (any, error) {
	var u models.SettingUpdate
	if err := decode(msg, &u); err != nil {
		return nil, err
	}
	return r.settings.Set(ctx, u.Key, u.Value)
}

func (r *Router) resetSettings(ctx context.Context, _ models.Message) (any, error) {
	return r.settings.Reset(ctx)
}
