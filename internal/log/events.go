package log

import (
	"context"
	"log/slog"
	"net/http"
)

// StructuredLogger writes the request, search and failure events with a fixed
// set of fields so they can be queried alike.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// statusLevel is Info below 400, Warn for client errors and Error otherwise.
func statusLevel(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// LogHTTPStart is a debug event; the completion event carries the outcome.
func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)
	sl.logger.Logger.Log(ctx, slog.LevelDebug, "HTTP request started", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)
	sl.logger.Logger.Log(ctx, statusLevel(statusCode), "HTTP request completed", fields.ToSlice()...)
}

// LogSearch records one answered search and how many entities it matched.
func (sl *StructuredLogger) LogSearch(ctx context.Context, sessionID, term string, seq uint64, matches int) {
	fields := NewFields().
		WithSearch(term, seq).
		WithOperation(OpSearch).
		WithComponent(ComponentSearch)
	fields[FieldSessionID] = sessionID
	fields[FieldCount] = matches
	sl.logger.DebugContext(ctx, "Search evaluated", fields.ToSlice()...)
}

// LogError adds err, component and operation to fields and logs at Error.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	fields = fields.WithError(err).WithOperation(operation).WithComponent(component)
	sl.logger.ErrorContext(ctx, msg, fields.ToSlice()...)
}
