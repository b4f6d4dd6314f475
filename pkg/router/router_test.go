package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dtnitsch/news-insight/models"
	"github.com/dtnitsch/news-insight/pkg/coordinator"
	"github.com/dtnitsch/news-insight/pkg/db"
	"github.com/dtnitsch/news-insight/pkg/gateway"
	"github.com/dtnitsch/news-insight/pkg/metrics"
	"github.com/dtnitsch/news-insight/pkg/settings"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// collector records responses and fails the test on a second call.
type collector struct {
	mu    sync.Mutex
	calls []models.Response
}

func (c *collector) respond(resp models.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, resp)
}

func (c *collector) only(t *testing.T) models.Response {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.Len(t, c.calls, 1)
	return c.calls[0]
}

type testEnv struct {
	router   *Router
	coord    *coordinator.Coordinator
	settings *settings.Service
	hub      *settings.Hub
}

// newTestEnv wires a router over the placeholder gateway, so every model
// result is a labelled placeholder.
func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	store, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	hub := settings.NewHub(quietLogger())
	t.Cleanup(hub.Close)
	svc := settings.NewService(store, hub, quietLogger())
	coord := coordinator.New(coordinator.Deps{
		Model:    gateway.New(nil, quietLogger()),
		Settings: svc,
		Cache:    store,
		Logger:   quietLogger(),
	})
	return &testEnv{router: New(coord, svc, quietLogger(), opts...), coord: coord, settings: svc, hub: hub}
}

func message(t *testing.T, kind models.MessageType, payload any) models.Message {
	t.Helper()
	msg, err := models.NewMessage(kind, payload)
	require.NoError(t, err)
	return msg
}

func article() models.PageContent {
	return models.PageContent{
		Title: "Council approves budget",
		URL:   "https://news.example.com/budget",
		Text:  "The council approved the budget on Tuesday after a long debate.",
	}
}

func TestHandle_PageContentIsFireAndForget(t *testing.T) {
	env := newTestEnv(t)
	var out collector

	handled := env.router.Handle(context.Background(), message(t, models.MsgPageContent, article()), out.respond)
	env.router.Wait()

	assert.False(t, handled)
	assert.Empty(t, out.calls)
	require.NotNil(t, env.coord.LatestContent())
	assert.False(t, env.coord.LatestContent().CollectedAt.IsZero())
}

func TestHandle_WarmupPageIgnored(t *testing.T) {
	env := newTestEnv(t)
	var out collector

	warmup := models.PageContent{Title: "Warmup", URL: "https://www.google.com/warmup.html", Text: "x"}
	assert.False(t, env.router.Handle(context.Background(), message(t, models.MsgPageContent, warmup), out.respond))
	assert.Nil(t, env.coord.LatestContent())
}

func TestHandle_UnknownKind(t *testing.T) {
	env := newTestEnv(t)
	var out collector
	before := testutil.ToFloat64(metrics.MessagesTotal.WithLabelValues(unknownTypeLabel, "ignored"))

	handled := env.router.Handle(context.Background(), models.Message{Type: "BOGUS"}, out.respond)
	env.router.Wait()

	assert.False(t, handled)
	assert.Empty(t, out.calls)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.MessagesTotal.WithLabelValues(unknownTypeLabel, "ignored")))
	assert.False(t, metrics.MessagesTotal.DeleteLabelValues("BOGUS", "ignored"),
		"client-chosen types never become label values")
}

func TestHandle_SettingsChangedRunsHook(t *testing.T) {
	var refreshed int
	env := newTestEnv(t, WithRefreshHook(func(context.Context) { refreshed++ }))
	var out collector

	assert.False(t, env.router.Handle(context.Background(), models.Message{Type: models.MsgSettingsChanged}, out.respond))
	assert.Equal(t, 1, refreshed)
	assert.Empty(t, out.calls)
}

func TestHandle_RunAnalysisNoContent(t *testing.T) {
	env := newTestEnv(t)
	var out collector

	require.True(t, env.router.Handle(context.Background(), models.Message{Type: models.MsgRunAnalysis}, out.respond))
	env.router.Wait()

	resp := out.only(t)
	assert.False(t, resp.OK)
	assert.Equal(t, NoContentMessage, resp.Error)
	assert.NotEmpty(t, resp.RequestID)
}

func TestHandle_RunAnalysisPlaceholders(t *testing.T) {
	env := newTestEnv(t)
	var out collector
	ctx := context.Background()

	env.router.Handle(ctx, message(t, models.MsgPageContent, article()), out.respond)
	msg := models.Message{Type: models.MsgRunAnalysis, RequestID: "req-1"}
	require.True(t, env.router.Handle(ctx, msg, out.respond))
	env.router.Wait()

	resp := out.only(t)
	require.True(t, resp.OK, resp.Error)
	assert.Equal(t, "req-1", resp.RequestID)
	result, ok := resp.Data.(*models.AnalysisResult)
	require.True(t, ok)
	assert.True(t, gateway.IsPlaceholder(result.Summary))
	require.Len(t, result.Biases.Items, 1)
	require.Len(t, result.Claims.Items, 1)
}

func TestHandle_BadPayloadIsTransportError(t *testing.T) {
	env := newTestEnv(t)
	var out collector

	msg := models.Message{Type: models.MsgHighlightLanguage, Payload: json.RawMessage(`{"text":`)}
	require.True(t, env.router.Handle(context.Background(), msg, out.respond))
	env.router.Wait()

	resp := out.only(t)
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "transport error")

	var te *TransportError
	assert.True(t, errors.As(decode(msg, &models.TextPayload{}), &te))
}

func TestHandle_Settings(t *testing.T) {
	env := newTestEnv(t)
	sub := env.hub.Subscribe(4)
	defer sub.Close()
	ctx := context.Background()

	var update collector
	env.router.Handle(ctx, message(t, models.MsgUpdateSetting, models.SettingUpdate{Key: models.FlagAIAnalysis, Value: false}), update.respond)
	env.router.Wait()
	resp := update.only(t)
	require.True(t, resp.OK, resp.Error)
	assert.False(t, resp.Data.(models.Settings)[models.FlagAIAnalysis])
	assert.Equal(t, models.MsgSettingsChanged, (<-sub.C()).Type)

	var get collector
	env.router.Handle(ctx, models.Message{Type: models.MsgGetSettings}, get.respond)
	env.router.Wait()
	assert.False(t, get.only(t).Data.(models.Settings)[models.FlagAIAnalysis])

	var bad collector
	env.router.Handle(ctx, message(t, models.MsgUpdateSetting, models.SettingUpdate{Key: "nope"}), bad.respond)
	env.router.Wait()
	assert.False(t, bad.only(t).OK)

	var reset collector
	env.router.Handle(ctx, models.Message{Type: models.MsgResetSettings}, reset.respond)
	env.router.Wait()
	assert.True(t, reset.only(t).Data.(models.Settings)[models.FlagAIAnalysis])
}

func TestHandle_DisabledFeature(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.settings.Set(ctx, models.FlagAIAnalysis, false)
	require.NoError(t, err)

	var out collector
	page := article()
	env.router.Handle(ctx, message(t, models.MsgAnalyseWebpage, page), out.respond)
	env.router.Wait()

	resp := out.only(t)
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, models.FlagAIAnalysis)
}

func TestHandle_ExactlyOneResponseEach(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.router.Handle(ctx, message(t, models.MsgPageContent, article()), func(models.Response) {})

	kinds := []models.Message{
		{Type: models.MsgRequestPageContent},
		{Type: models.MsgRunAnalysis},
		message(t, models.MsgHighlightLanguage, models.TextPayload{Text: "An utterly disastrous plan."}),
		{Type: models.MsgAnalyseWebpage},
		message(t, models.MsgRunProofreader, models.TextPayload{Text: "Teh text."}),
		message(t, models.MsgRunRewriter, models.TextPayload{Text: "A shocking scandal."}),
		{Type: models.MsgExtractCalendar},
		message(t, models.MsgAskWebpage, models.QuestionPayload{Question: "Who voted?"}),
		{Type: models.MsgGetSettings},
	}
	collectors := make([]collector, len(kinds))
	for i, msg := range kinds {
		require.True(t, env.router.Handle(ctx, msg, collectors[i].respond), msg.Type)
	}
	env.router.Wait()

	for i := range collectors {
		resp := collectors[i].only(t)
		assert.True(t, resp.OK, "%s: %s", kinds[i].Type, resp.Error)
	}
}
