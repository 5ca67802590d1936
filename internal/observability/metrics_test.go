package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestObserveLoginRecordsOutcome(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveLogin("empresa", "success", 20*time.Millisecond)
	metrics.ObserveLogin("empresa", "rejected", 10*time.Millisecond)
	metrics.ObserveLogin("empresa", "rejected", 10*time.Millisecond)

	body := scrape(t, metrics)
	if !strings.Contains(body, `trainingsoft_login_attempts_total{outcome="rejected",role="empresa"} 2`) {
		t.Fatalf("expected rejected counter, got: %s", body)
	}
	if !strings.Contains(body, `trainingsoft_login_duration_seconds_count{role="empresa"} 3`) {
		t.Fatalf("expected duration histogram, got: %s", body)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveLogin("personal", "success", time.Second)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from nil metrics, got %d", rr.Code)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/auth/login")

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, `trainingsoft_http_requests_total{code="401",route="/auth/login"} 1`) {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
}
