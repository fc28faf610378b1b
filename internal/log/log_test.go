package log

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func bufferLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{
		Component: component,
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := bufferLogger(&buf, ComponentSearch)

	logger.Info("hello", FieldCount, 3)
	out := buf.String()
	if !strings.Contains(out, "component=search") || !strings.Contains(out, "count=3") {
		t.Fatalf("unexpected output %q", out)
	}
	if logger.WithComponent(ComponentHTTP).Component() != ComponentHTTP {
		t.Fatal("WithComponent did not switch component")
	}
}

func TestFieldsBuilder(t *testing.T) {
	fields := NewFields().
		WithError(errors.New("boom")).
		WithErrorType(ErrorTypeDatabase).
		WithMetric("entity_count").
		WithEntity("A").
		WithSearch("ab", 7).
		WithError(nil)

	if fields[FieldError] != "boom" {
		t.Errorf("error = %v", fields[FieldError])
	}
	if fields[FieldErrorType] != ErrorTypeDatabase || fields[FieldMetric] != "entity_count" || fields[FieldEntityID] != "A" {
		t.Errorf("unexpected fields %v", fields)
	}
	if fields[FieldSequence] != uint64(7) {
		t.Errorf("seq = %v", fields[FieldSequence])
	}
	if got := len(fields.ToSlice()); got != 2*len(fields) {
		t.Errorf("ToSlice len = %d, want %d", got, 2*len(fields))
	}
}

func TestMiddlewareCarriesLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := bufferLogger(&buf, ComponentHTTP)

	var seen *Logger
	h := Middleware(logger)(
		RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
			ComponentMiddleware(ComponentSearch)(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					seen = FromContext(r.Context())
					seen.Info("inside")
				}))))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/search", nil))

	if seen == nil || seen.Component() != ComponentSearch {
		t.Fatalf("handler logger = %+v", seen)
	}
	out := buf.String()
	if !strings.Contains(out, "request_id=req-1") || !strings.Contains(out, "component=search") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestFromContextDefault(t *testing.T) {
	logger := FromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	if logger == nil || logger.Component() != "unknown" {
		t.Fatalf("default logger = %+v", logger)
	}
}

func TestStructuredLoggerHTTPEndLevel(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(bufferLogger(&buf, ComponentHTTP))
	r := httptest.NewRequest(http.MethodGet, "/api/entities", nil)

	sl.LogHTTPEnd(r.Context(), r, http.StatusServiceUnavailable, 12, "10.0.0.1")
	if out := buf.String(); !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "status_code=503") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestStatusLevel(t *testing.T) {
	tests := map[int]slog.Level{
		http.StatusOK:                  slog.LevelInfo,
		http.StatusFound:               slog.LevelInfo,
		http.StatusNotFound:            slog.LevelWarn,
		http.StatusTooManyRequests:     slog.LevelWarn,
		http.StatusInternalServerError: slog.LevelError,
		http.StatusGatewayTimeout:      slog.LevelError,
	}
	for status, want := range tests {
		if got := statusLevel(status); got != want {
			t.Errorf("statusLevel(%d) = %v, want %v", status, got, want)
		}
	}
}

func TestNewContextRoundTrip(t *testing.T) {
	logger := New(Config{Component: ComponentWorker, Handler: slog.NewTextHandler(&bytes.Buffer{}, nil)})
	ctx := NewContext(httptest.NewRequest(http.MethodGet, "/", nil).Context(), logger)
	if FromContext(ctx) != logger {
		t.Fatal("FromContext did not return the attached logger")
	}
}

func TestLogErrorWithoutFields(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(bufferLogger(&buf, ComponentHTTP))
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	sl.LogError(r.Context(), "failed", errors.New("boom"), ComponentStorage, OpLoad, nil)
	out := buf.String()
	if !strings.Contains(out, "error=boom") || !strings.Contains(out, "operation=load") {
		t.Fatalf("unexpected output %q", out)
	}
}
