package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveAttemptOutcomes(t *testing.T) {
	m := NewMetrics("cowalsky")
	m.ObserveAttempt("chat", "ark", errors.New("quota"), time.Second)
	m.ObserveAttempt("chat", "openai", nil, time.Second)
	m.ObserveFallback("chat", "ark", "openai")

	if got := testutil.ToFloat64(m.ProviderAttempts.WithLabelValues("chat", "ark", "error")); got != 1 {
		t.Fatalf("expected 1 failed ark attempt, got %v", got)
	}
	if got := testutil.ToFloat64(m.ProviderAttempts.WithLabelValues("chat", "openai", "ok")); got != 1 {
		t.Fatalf("expected 1 ok openai attempt, got %v", got)
	}
	if got := testutil.ToFloat64(m.Fallbacks.WithLabelValues("chat", "ark", "openai")); got != 1 {
		t.Fatalf("expected 1 fallback, got %v", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAttempt("chat", "ark", nil, 0)
	m.ObserveFallback("chat", "ark", "openai")
	m.SessionStarted()
	m.MessageAppended("user")
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMetrics("cowalsky")
	m.SessionStarted()
	m.MessageAppended("bot")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "cowalsky_active_sessions 1") {
		t.Fatalf("missing active sessions gauge: %s", body)
	}
	if !strings.Contains(body, `cowalsky_messages_total{speaker="bot"} 1`) {
		t.Fatalf("missing messages counter: %s", body)
	}
}
