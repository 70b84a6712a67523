// Package observability provides structured logging, metrics, and tracing
// for the tracking SDK.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds tracking context to a logger.
// Returns a new logger with visitor_id and scene_id fields.
func EnrichLogger(logger *slog.Logger, visitorID, sceneID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("visitor_id", visitorID),
		slog.String("scene_id", sceneID),
	)
}

// LogTaskEnqueued logs a task accepted into the transmit queue.
func LogTaskEnqueued(logger *slog.Logger, taskID, eventName string) {
	if logger == nil {
		return
	}
	logger.Debug("task enqueued",
		slog.String("task_id", taskID),
		slog.String("event_name", eventName),
	)
}

// LogTaskDropped logs a task dropped because the queue was full.
func LogTaskDropped(logger *slog.Logger, taskID, eventName string) {
	if logger == nil {
		return
	}
	logger.Warn("task dropped, queue full",
		slog.String("task_id", taskID),
		slog.String("event_name", eventName),
	)
}

// LogBatchSent logs a successfully delivered batch.
func LogBatchSent(logger *slog.Logger, size int, attempts int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("batch delivered",
		slog.Int("batch_size", size),
		slog.Int("attempts", attempts),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogBatchFailed logs a batch that exhausted its delivery attempts.
func LogBatchFailed(logger *slog.Logger, size int, attempts int, err error) {
	if logger == nil {
		return
	}
	logger.Error("batch delivery failed",
		slog.Int("batch_size", size),
		slog.Int("attempts", attempts),
		slog.String("error", err.Error()),
	)
}

// LogSpooled logs a batch written to the retry spool.
func LogSpooled(logger *slog.Logger, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("batch spooled",
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogSpoolReplay logs a spooled batch re-delivered after an earlier failure.
func LogSpoolReplay(logger *slog.Logger, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Info("spooled batch delivered",
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogSpoolError logs a spool read/write failure (non-fatal).
func LogSpoolError(logger *slog.Logger, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("spool operation failed",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// LogViewTransition logs a screen transition signaled by a view event.
func LogViewTransition(logger *slog.Logger, sceneID, viewName string, dismissed bool) {
	if logger == nil {
		return
	}
	logger.Debug("view transition",
		slog.String("scene_id", sceneID),
		slog.String("view_name", viewName),
		slog.Bool("overlay_dismissed", dismissed),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
