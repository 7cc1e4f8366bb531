package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newJSONLogger returns a debug-level JSON logger and the buffer it writes to.
func newJSONLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &m))
	return m
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("json by default", func(t *testing.T) {
		var buf bytes.Buffer
		NewLogger("info", "", &buf).Info("hello", slog.String("k", "v"))

		var m map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
		assert.Equal(t, "hello", m["msg"])
		assert.Equal(t, "v", m["k"])
	})

	t.Run("text format", func(t *testing.T) {
		var buf bytes.Buffer
		NewLogger("info", "text", &buf).Info("hello")
		assert.Contains(t, buf.String(), "msg=hello")
	})

	t.Run("level filters", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger("warn", "json", &buf)
		logger.Info("dropped")
		assert.Empty(t, buf.String())
		logger.Warn("kept")
		assert.Contains(t, buf.String(), "kept")
	})
}

func TestEnrichLogger(t *testing.T) {
	t.Run("adds run_id, node_id and node_type", func(t *testing.T) {
		logger, buf := newJSONLogger()

		EnrichLogger(logger, "run-123", "n4", "assign").Info("test message")

		record := lastRecord(t, buf)
		assert.Equal(t, "run-123", record["run_id"])
		assert.Equal(t, "n4", record["node_id"])
		assert.Equal(t, "assign", record["node_type"])
		assert.Equal(t, "test message", record["msg"])
	})

	t.Run("nil logger returns nil", func(t *testing.T) {
		assert.Nil(t, EnrichLogger(nil, "run-123", "n4", "assign"))
	})
}

func TestLogHelpers(t *testing.T) {
	testErr := errors.New("boom")

	tests := []struct {
		name  string
		log   func(*slog.Logger)
		level string
		msg   string
		attrs map[string]any
	}{
		{
			name:  "run start",
			log:   func(l *slog.Logger) { LogRunStart(l, "run-1", "s") },
			level: "INFO", msg: "flowchart run starting",
			attrs: map[string]any{"run_id": "run-1", "start_node": "s"},
		},
		{
			name:  "run complete",
			log:   func(l *slog.Logger) { LogRunComplete(l, "run-1", 12.5, 4) },
			level: "INFO", msg: "flowchart run completed",
			attrs: map[string]any{"duration_ms": 12.5, "steps": float64(4)},
		},
		{
			name:  "run paused",
			log:   func(l *slog.Logger) { LogRunPaused(l, "run-1", "bp", 2) },
			level: "INFO", msg: "flowchart run paused",
			attrs: map[string]any{"node_id": "bp", "steps": float64(2)},
		},
		{
			name:  "run error",
			log:   func(l *slog.Logger) { LogRunError(l, "run-1", testErr, 3, "n2") },
			level: "ERROR", msg: "flowchart run failed",
			attrs: map[string]any{"error": "boom", "last_node": "n2"},
		},
		{
			name:  "node start",
			log:   func(l *slog.Logger) { LogNodeStart(l, "n1") },
			level: "DEBUG", msg: "node starting",
			attrs: map[string]any{"node_id": "n1"},
		},
		{
			name:  "node complete",
			log:   func(l *slog.Logger) { LogNodeComplete(l, "c", "true", 1) },
			level: "DEBUG", msg: "node completed",
			attrs: map[string]any{"branch": "true"},
		},
		{
			name:  "node error",
			log:   func(l *slog.Logger) { LogNodeError(l, "n1", testErr) },
			level: "ERROR", msg: "node failed",
			attrs: map[string]any{"error": "boom"},
		},
		{
			name:  "evaluation fault",
			log:   func(l *slog.Logger) { LogEvaluationFault(l, "o1", "x = y +", testErr) },
			level: "WARN", msg: "expression evaluation failed",
			attrs: map[string]any{"expression": "x = y +", "error": "boom"},
		},
		{
			name:  "checkpoint",
			log:   func(l *slog.Logger) { LogCheckpoint(l, "bp", 512) },
			level: "DEBUG", msg: "checkpoint saved",
			attrs: map[string]any{"size_bytes": float64(512)},
		},
		{
			name:  "checkpoint error",
			log:   func(l *slog.Logger) { LogCheckpointError(l, "bp", "save", testErr) },
			level: "WARN", msg: "checkpoint failed",
			attrs: map[string]any{"operation": "save"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newJSONLogger()
			tt.log(logger)

			record := lastRecord(t, buf)
			assert.Equal(t, tt.level, record["level"])
			assert.Equal(t, tt.msg, record["msg"])
			for k, v := range tt.attrs {
				assert.Equal(t, v, record[k], k)
			}
		})

		t.Run(tt.name+" nil logger", func(t *testing.T) {
			assert.NotPanics(t, func() { tt.log(nil) })
		})
	}
}

func TestTimedOperation(t *testing.T) {
	done := TimedOperation()
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, done(), 5*time.Millisecond)
}

func TestMillis(t *testing.T) {
	assert.Equal(t, 1.5, Millis(1500*time.Microsecond))
}
