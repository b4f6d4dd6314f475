package settings

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dtnitsch/news-insight/models"
	"github.com/dtnitsch/news-insight/pkg/db"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) (*Service, *Hub, *db.DB) {
	t.Helper()
	store, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	hub := NewHub(quietLogger())
	t.Cleanup(hub.Close)
	return NewService(store, hub, quietLogger()), hub, store
}

func TestSnapshot_DefaultsAllEnabled(t *testing.T) {
	svc, _, _ := newTestService(t)

	s, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	for _, f := range models.AllFlags() {
		assert.True(t, s[f], f)
	}
}

func TestSet_PersistsAndBroadcasts(t *testing.T) {
	svc, hub, _ := newTestService(t)
	sub := hub.Subscribe(1)
	defer sub.Close()
	ctx := context.Background()

	updated, err := svc.Set(ctx, models.FlagBiasDetection, false)
	require.NoError(t, err)
	assert.False(t, updated[models.FlagBiasDetection])

	msg := <-sub.C()
	assert.Equal(t, models.MsgSettingsChanged, msg.Type)

	s, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.False(t, s.Enabled(models.FlagBiasDetection))
	assert.True(t, s.Enabled(models.FlagSummaryGeneration))
}

func TestSet_UnknownFlag(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Set(context.Background(), "nope", true)
	assert.ErrorIs(t, err, ErrUnknownFlag)
}

func TestSnapshot_IsIndependentCopy(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	s, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	s[models.FlagAIAnalysis] = false

	again, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.True(t, again[models.FlagAIAnalysis])
}

func TestSnapshot_IgnoresUnknownAndCorruptValues(t *testing.T) {
	svc, _, store := newTestService(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, db.NamespaceSync, StorageKey, `{"bogus":false,"aiAnalysis":false}`))
	s, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.NotContains(t, s, "bogus")
	assert.False(t, s[models.FlagAIAnalysis])

	require.NoError(t, store.Set(ctx, db.NamespaceSync, StorageKey, `{broken`))
	s, err = svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSettings(), s)
}

func TestReset(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Set(ctx, models.FlagCalendarEvents, false)
	require.NoError(t, err)

	s, err := svc.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSettings(), s)

	s, err = svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.True(t, s[models.FlagCalendarEvents])
}
