package dberr

import (
	"context"
	"log/slog"
)

// Reporter receives every failure raised by an operation.
// Reporting never changes the error returned to the caller.
type Reporter interface {
	Report(ctx context.Context, err *Error)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(ctx context.Context, err *Error)

// Report calls f(ctx, err).
func (f ReporterFunc) Report(ctx context.Context, err *Error) {
	f(ctx, err)
}

// LogReporter reports failures as structured log records.
type LogReporter struct {
	Logger *slog.Logger
}

// NewLogReporter creates a reporter writing to logger.
// A nil logger uses slog.Default().
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{Logger: logger}
}

// Report logs err at error level.
func (r *LogReporter) Report(ctx context.Context, err *Error) {
	attrs := []slog.Attr{
		slog.String("code", string(err.Code)),
		slog.String("message", err.Message),
	}
	if err.Query != "" {
		attrs = append(attrs, slog.String("query", err.Query))
	}
	if err.BackendMessage != "" {
		attrs = append(attrs, slog.String("backend_message", err.BackendMessage))
	}
	if err.BackendCode != "" {
		attrs = append(attrs, slog.String("backend_code", err.BackendCode))
	}
	if err.Value != nil {
		attrs = append(attrs, slog.Any("value", err.Value))
	}
	r.Logger.LogAttrs(ctx, slog.LevelError, "sistrence failure", attrs...)
}
