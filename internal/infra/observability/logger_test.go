package observability_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/boddenberg/branch-dashboard-bfa/internal/infra/observability"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Levels(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"bogus": zapcore.InfoLevel,
		"":      zapcore.InfoLevel,
	}
	for level, want := range cases {
		l := observability.NewLogger(level)
		if !l.Core().Enabled(want) {
			t.Errorf("level %q: expected %s enabled", level, want)
		}
		if want > zapcore.DebugLevel && l.Core().Enabled(want-1) {
			t.Errorf("level %q: expected %s disabled", level, want-1)
		}
	}
}

func TestZapLoggerMiddleware_LevelByStatus(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	mw := observability.ZapLoggerMiddleware(zap.New(core))

	statuses := []int{http.StatusOK, http.StatusBadRequest, http.StatusBadGateway}
	for _, status := range statuses {
		h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/reports/profit-distribution", nil))
	}

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("expected 3 log entries, got %d", len(entries))
	}
	want := []zapcore.Level{zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, e := range entries {
		if e.Level != want[i] {
			t.Errorf("entry %d: expected %s, got %s", i, want[i], e.Level)
		}
	}
}

func TestTracingMiddleware_PassesThrough(t *testing.T) {
	called := false
	h := observability.TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Fatal("expected next handler to be called")
	}
}

func TestInitTracer_Disabled(t *testing.T) {
	shutdown, err := observability.InitTracer("", "test")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := shutdown(t.Context()); err != nil {
		t.Fatalf("expected no error on shutdown, got %v", err)
	}
}
