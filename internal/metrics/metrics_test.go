package metrics

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"meal-calendar/internal/database"
	"meal-calendar/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "metrics.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db.SQL)
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	store := newTestStore(t)
	store.now = func() time.Time { return now }

	records := []ExecutionMetric{
		{AgentName: "Planner", Model: "m", PromptTokens: 100, CompletionTokens: 40, Succeeded: true, Timestamp: now.Add(-time.Hour)},
		{AgentName: "Shopper", Model: "m", PromptTokens: 20, CompletionTokens: 10, Succeeded: false, Timestamp: now.Add(-2 * time.Hour)},
		{AgentName: "Planner", Model: "m", PromptTokens: 50, CompletionTokens: 5, Succeeded: true, Timestamp: now.AddDate(0, 0, -2)},
		{AgentName: "Planner", Model: "m", PromptTokens: 999, CompletionTokens: 999, Succeeded: true, Timestamp: now.AddDate(0, 0, -40)},
	}
	for _, r := range records {
		require.NoError(t, store.Record(ctx, r))
	}

	t.Run("DailyUsage", func(t *testing.T) {
		usage, err := store.GetDailyUsage(ctx, 7)
		require.NoError(t, err)
		require.Len(t, usage, 2)

		assert.Equal(t, "2024-03-10", usage[0].Date)
		assert.Equal(t, 120, usage[0].TotalPrompt)
		assert.Equal(t, 50, usage[0].TotalCompletion)
		assert.Equal(t, 2, usage[0].TotalExecution)
		assert.Equal(t, 1, usage[0].Failures)

		assert.Equal(t, "2024-03-08", usage[1].Date)
		assert.Equal(t, 1, usage[1].TotalExecution)
	})

	t.Run("Cleanup", func(t *testing.T) {
		removed, err := store.Cleanup(ctx, 30)
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)

		usage, err := store.GetDailyUsage(ctx, 365)
		require.NoError(t, err)
		assert.Len(t, usage, 2)
	})
}

func TestRecordMeta(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.RecordMeta(ctx, shared.AgentMeta{}))
	require.NoError(t, store.RecordMeta(ctx, shared.AgentMeta{
		AgentName: "Planner",
		Usage:     shared.TokenUsage{PromptTokens: 10, CompletionTokens: 3, Model: "gemini"},
		Latency:   1500 * time.Millisecond,
		Failed:    true,
	}))

	usage, err := store.GetDailyUsage(ctx, 1)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, 1, usage[0].TotalExecution)
	assert.Equal(t, 1, usage[0].Failures)
}

func TestMapUsage(t *testing.T) {
	m := MapUsage(shared.AgentMeta{
		AgentName: "Shopper",
		Usage:     shared.TokenUsage{PromptTokens: 7, CompletionTokens: 2, Model: "llama"},
		Latency:   250 * time.Millisecond,
	})
	assert.Equal(t, "Shopper", m.AgentName)
	assert.Equal(t, "llama", m.Model)
	assert.Equal(t, int64(250), m.LatencyMS)
	assert.True(t, m.Succeeded)
}

func TestCollectors(t *testing.T) {
	c := NewCollectors()
	c.ObserveRequest("/api/meals", "GET", 200, 20*time.Millisecond)
	c.ObserveGeneration(shared.AgentMeta{AgentName: "Planner", Latency: time.Second, Usage: shared.TokenUsage{PromptTokens: 5}})
	c.ObserveGeneration(shared.AgentMeta{})
	c.ObserveSaved(3)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, body, `meal_calendar_http_requests_total{method="GET",route="/api/meals",status="200"} 1`)
	assert.Contains(t, body, `meal_calendar_generations_total{agent="Planner",outcome="success"} 1`)
	assert.Contains(t, body, `meal_calendar_generation_tokens_total{agent="Planner",kind="prompt"} 5`)
	assert.Contains(t, body, "meal_calendar_meals_saved_total 3")
}

func TestGetSysHealth(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "meals.db")
	require.NoError(t, os.WriteFile(dbPath, make([]byte, 2048), 0o644))
	require.NoError(t, os.WriteFile(dbPath+"-wal", make([]byte, 512), 0o644))
	require.NoError(t, os.WriteFile(dbPath+"-shm", make([]byte, 256), 0o644))

	health := GetSysHealth(dbPath)
	assert.Equal(t, uint64(2048), health.DatabaseBytes)
	assert.Equal(t, uint64(768), health.JournalBytes)
	assert.Positive(t, health.Goroutines)

	t.Run("MissingDatabase", func(t *testing.T) {
		health := GetSysHealth(filepath.Join(t.TempDir(), "absent.db"))
		assert.Zero(t, health.DatabaseBytes)
		assert.Zero(t, health.JournalBytes)
	})

	t.Run("DirectoryIsNotADatabase", func(t *testing.T) {
		assert.Zero(t, GetSysHealth(t.TempDir()).DatabaseBytes)
	})
}
