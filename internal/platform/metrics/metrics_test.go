package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveHTTP("GET", "/x", "200", 0.1)
	m.AuthAttempt("success")
	m.PHIAccess("ADMIN", "Patient", "read", "2xx")
	m.SchedulingConflict()
	m.AppointmentEvent("appointment.created", true)
	m.RegisterPoolGauges(func() (int32, int32, int32) { return 0, 0, 0 })
}

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.SchedulingConflict()
	m.SchedulingConflict()
	if got := testutil.ToFloat64(m.schedulingConflicts); got != 2 {
		t.Errorf("expected 2 conflicts, got %v", got)
	}

	m.AuthAttempt("invalid_credentials")
	if got := testutil.ToFloat64(m.authAttempts.WithLabelValues("invalid_credentials")); got != 1 {
		t.Errorf("expected 1 failed login, got %v", got)
	}

	m.AppointmentEvent("appointment.cancelled", false)
	if got := testutil.ToFloat64(m.appointmentEvents.WithLabelValues("appointment.cancelled", "failed")); got != 1 {
		t.Errorf("expected 1 failed publish, got %v", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.RegisterPoolGauges(func() (int32, int32, int32) { return 5, 3, 2 })
	m.ObserveHTTP("GET", "/api/patients", "200", 0.02)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`hnms_http_requests_total{method="GET",route="/api/patients",status_code="200"} 1`,
		"hnms_db_pool_acquired_conns 2",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in exposition", want)
		}
	}
}
