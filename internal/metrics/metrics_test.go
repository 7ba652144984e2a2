package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.Mutation("ideas", "add", OutcomeOK)
	m.Mutation("ideas", "add", OutcomeOK)
	m.Mutation("ideas", "delete", OutcomeRejected)
	m.SaveFailed("document")
	m.Login(true)
	m.Login(false)
	m.Login(false)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"ideas add ok", testutil.ToFloat64(m.mutationsTotal.WithLabelValues("ideas", "add", OutcomeOK)), 2},
		{"ideas delete rejected", testutil.ToFloat64(m.mutationsTotal.WithLabelValues("ideas", "delete", OutcomeRejected)), 1},
		{"save failures", testutil.ToFloat64(m.saveFailures.WithLabelValues("document")), 1},
		{"logins ok", testutil.ToFloat64(m.loginsTotal.WithLabelValues(OutcomeOK)), 1},
		{"logins rejected", testutil.ToFloat64(m.loginsTotal.WithLabelValues(OutcomeRejected)), 2},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodGet, "/api/v1/ideas", http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`keepsake_http_requests_total{method="GET",route="/api/v1/ideas",status="200"} 1`,
		"keepsake_http_request_duration_seconds_bucket",
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
