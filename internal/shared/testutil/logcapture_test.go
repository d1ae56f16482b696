package testutil

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferedSlogHandler_CarriesWithAttrs(t *testing.T) {
	logger, h := NewTestLogger(t)
	cleaner := logger.With(slog.String("component", "cleaner"))

	cleaner.Info("Dropped rows", slog.String("step", "missing_date"), slog.Int("count", 2))
	logger.Warn("cache miss")

	rec, ok := h.Find("Dropped")
	require.True(t, ok)
	assert.Equal(t, "cleaner", rec.Component())
	assert.Equal(t, int64(2), rec.Attrs["count"])
	assert.Equal(t, "missing_date", rec.Attrs["step"])

	rec, ok = h.Find("cache miss")
	require.True(t, ok)
	assert.Empty(t, rec.Component())
	assert.Len(t, h.AtLevel(slog.LevelWarn), 1)
}

func TestBufferedSlogHandler_Groups(t *testing.T) {
	logger, h := NewTestLogger(t)

	logger.WithGroup("run").Info("done",
		slog.String("id", "r1"),
		slog.Group("rows", slog.Int("kept", 5), slog.Int("dropped", 1)))

	rec, ok := h.Find("done")
	require.True(t, ok)
	assert.Equal(t, "r1", rec.Attrs["run.id"])
	assert.Equal(t, int64(5), rec.Attrs["run.rows.kept"])
	assert.Equal(t, int64(1), rec.Attrs["run.rows.dropped"])
	assert.False(t, h.ContainsMessage("missing"))
}

func TestBufferedSlogHandler_HandlerTag(t *testing.T) {
	logger, h := NewTestLogger(nil)
	logger.With(slog.String("handler", "analyses")).Info("analysis queued")

	rec, ok := h.Find("queued")
	require.True(t, ok)
	assert.Equal(t, "analyses", rec.Component())
	assert.Len(t, h.Records(), 1)
}
