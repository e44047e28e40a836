package obslog

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWithNilConfigReturnsSlogLogger(t *testing.T) {
	logger := NewLogger(nil)
	require.NotNil(t, logger)
	_, ok := logger.(*slogLogger)
	assert.True(t, ok)
}

func TestWithContextAttachesRunID(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := &slogLogger{logger: slog.New(handler)}

	ctx := WithRunID(context.Background(), "run-42")
	logger.WithContext(ctx).Info("fetch started")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-42", decoded["run_id"])
}

func TestWithContextNoValuesReturnsSameLogger(t *testing.T) {
	logger := NewLogger(nil)
	same := logger.WithContext(context.Background())
	assert.Equal(t, logger, same)
}

func TestSanitizeLogValueStripsControlChars(t *testing.T) {
	out := sanitizeLogValue("line1\nline2\x07")
	assert.Equal(t, "line1 line2", out)
}

func TestLogSourceStatusEmitsStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := &slogLogger{logger: slog.New(handler)}

	LogSourceStatus(logger, "onionoo_details", "cached", 12*time.Millisecond)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "onionoo_details", decoded["api"])
	assert.Equal(t, "cached", decoded["status"])
}

func TestLogErrorSkipsNil(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := &slogLogger{logger: slog.New(handler)}

	LogError(logger, nil, "fetch")
	assert.Empty(t, buf.String())
}

func TestNoOpLoggerNeverPanics(t *testing.T) {
	l := NoOpLogger{}
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
	assert.Equal(t, NoOpLogger{}, l.With("a", "b"))
	assert.Equal(t, NoOpLogger{}, l.WithContext(context.Background()))
}
