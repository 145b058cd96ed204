package logger

import (
	"log/slog"
	"time"
)

// LogRequest logs one handled HTTP request.
func LogRequest(method, path string, status int, duration time.Duration) {
	slog.Info("Request handled",
		slog.String("type", "http"),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Duration("took", duration),
	)
}

// LogQuery logs database operations.
func LogQuery(query string, duration time.Duration, err error) {
	attrs := []any{
		slog.String("type", "db"),
		slog.Duration("took", duration),
	}

	if err != nil {
		slog.Error("Query failed", append(attrs,
			slog.String("query", query),
			slog.Any("error", err),
		)...)
	} else {
		slog.Debug("Query executed", append(attrs,
			slog.String("query", query),
		)...)
	}
}

// LogJob logs a scheduled job run.
func LogJob(name string, duration time.Duration, err error, attrs ...any) {
	baseAttrs := []any{
		slog.String("type", "cron"),
		slog.String("job", name),
		slog.Duration("took", duration),
	}

	if err != nil {
		slog.Error("Job failed", append(append(baseAttrs, attrs...), slog.Any("error", err))...)
	} else {
		slog.Info("Job finished", append(baseAttrs, attrs...)...)
	}
}

// LogSystem logs system events.
func LogSystem(msg string, attrs ...any) {
	baseAttrs := []any{slog.String("type", "sys")}
	slog.Info(msg, append(baseAttrs, attrs...)...)
}

// LogError logs error events.
func LogError(msg string, err error, attrs ...any) {
	baseAttrs := []any{
		slog.String("type", "error"),
		slog.Any("error", err),
	}
	slog.Error(msg, append(baseAttrs, attrs...)...)
}
