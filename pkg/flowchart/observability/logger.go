// Package observability provides structured logging, metrics and tracing
// for flowchart runs.
//
// Logging uses slog. Metrics are recorded through OpenTelemetry or
// Prometheus, and traces through OpenTelemetry. Every feature has a no-op
// implementation, and every Log* helper accepts a nil logger.
package observability

import (
	"io"
	"log/slog"
	"strings"
	"time"
)

// ParseLevel maps a level name (debug, info, warn, error; any case) to a
// slog level. Unknown names map to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds a logger writing to w. format is "json" (the default) or
// "text". Source locations are added at debug level.
func NewLogger(level, format string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

// EnrichLogger adds run context to a logger.
// Returns a new logger with run_id, node_id and node_type fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "run-123", "n4", "assign")
//	enriched.Info("assigned") // includes run_id, node_id, node_type
func EnrichLogger(logger *slog.Logger, runID, nodeID, nodeType string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("run_id", runID),
		slog.String("node_id", nodeID),
		slog.String("node_type", nodeType),
	)
}

// LogRunStart logs the start of a run.
func LogRunStart(logger *slog.Logger, runID, startNode string) {
	if logger == nil {
		return
	}
	logger.Info("flowchart run starting",
		slog.String("run_id", runID),
		slog.String("start_node", startNode),
	)
}

// LogRunComplete logs a run that reached END.
func LogRunComplete(logger *slog.Logger, runID string, durationMs float64, steps int) {
	if logger == nil {
		return
	}
	logger.Info("flowchart run completed",
		slog.String("run_id", runID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("steps", steps),
	)
}

// LogRunPaused logs a run suspended at a breakpoint.
func LogRunPaused(logger *slog.Logger, runID, nodeID string, steps int) {
	if logger == nil {
		return
	}
	logger.Info("flowchart run paused",
		slog.String("run_id", runID),
		slog.String("node_id", nodeID),
		slog.Int("steps", steps),
	)
}

// LogRunError logs a failed run.
func LogRunError(logger *slog.Logger, runID string, err error, durationMs float64, lastNode string) {
	if logger == nil {
		return
	}
	logger.Error("flowchart run failed",
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("last_node", lastNode),
	)
}

// LogNodeStart logs node execution start.
func LogNodeStart(logger *slog.Logger, nodeID string) {
	if logger == nil {
		return
	}
	logger.Debug("node starting",
		slog.String("node_id", nodeID),
	)
}

// LogNodeComplete logs successful node completion and the branch it chose.
func LogNodeComplete(logger *slog.Logger, nodeID, branch string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("node completed",
		slog.String("node_id", nodeID),
		slog.String("branch", branch),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogNodeError logs node execution error.
func LogNodeError(logger *slog.Logger, nodeID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("node failed",
		slog.String("node_id", nodeID),
		slog.String("error", err.Error()),
	)
}

// LogEvaluationFault logs an expression failure that was recovered and did
// not stop the run.
func LogEvaluationFault(logger *slog.Logger, nodeID, expression string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("expression evaluation failed",
		slog.String("node_id", nodeID),
		slog.String("expression", expression),
		slog.String("error", err.Error()),
	)
}

// LogCheckpoint logs checkpoint creation.
func LogCheckpoint(logger *slog.Logger, nodeID string, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("checkpoint saved",
		slog.String("node_id", nodeID),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogCheckpointError logs checkpoint failure.
func LogCheckpointError(logger *slog.Logger, nodeID string, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("checkpoint failed",
		slog.String("node_id", nodeID),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	elapsed := done()
func TimedOperation() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}

// Millis converts a duration to fractional milliseconds for log fields.
func Millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
