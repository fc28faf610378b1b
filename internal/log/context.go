package log

import (
	"context"
	"log/slog"
	"net/http"
)

type loggerKey struct{}

// NewContext returns a copy of ctx that carries logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger attached to ctx. Without one it falls back to
// the process default handler, tagged "unknown".
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// derive builds middleware that replaces the request logger with the one
// returned by fn.
func derive(fn func(*Logger, *http.Request) *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := fn(FromContext(r.Context()), r)
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), logger)))
		})
	}
}

// Middleware attaches logger to every request.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return derive(func(*Logger, *http.Request) *Logger { return logger })
}

// ComponentMiddleware retags the request logger with component.
func ComponentMiddleware(component string) func(http.Handler) http.Handler {
	return derive(func(l *Logger, _ *http.Request) *Logger { return l.WithComponent(component) })
}

// RequestIDMiddleware adds the id returned by requestID to the request logger.
func RequestIDMiddleware(requestID func(*http.Request) string) func(http.Handler) http.Handler {
	return derive(func(l *Logger, r *http.Request) *Logger { return l.With(FieldRequestID, requestID(r)) })
}
