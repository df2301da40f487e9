package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	if candidatesTotal == nil || fetchAttemptsTotal == nil || backoffDelaySeconds == nil || activeWorkers == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveCandidate(t *testing.T) {
	before := testutil.ToFloat64(counterFor("hit"))
	ObserveCandidate("hit")
	if got := testutil.ToFloat64(counterFor("hit")); got != before+1 {
		t.Fatalf("expected hit counter %f, got %f", before+1, got)
	}
}

func TestActiveWorkersGauge(t *testing.T) {
	IncActiveWorkers()
	IncActiveWorkers()
	DecActiveWorkers()
	DecActiveWorkers()
	if got := testutil.ToFloat64(activeWorkers); got != 0 {
		t.Fatalf("expected gauge to return to 0, got %f", got)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	ObserveAttempt("success")
	ObserveBackoff(true, 1500*time.Millisecond)
	ObserveSkipped(2)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, name := range []string{
		"domainscan_fetch_attempts_total",
		"domainscan_backoff_delay_seconds",
		"domainscan_candidates_skipped_total",
	} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %s in metrics output", name)
		}
	}
}

func counterFor(outcome string) prometheus.Counter {
	Init()
	return candidatesTotal.WithLabelValues(outcome)
}

func TestObserveHTTPRequest(t *testing.T) {
	ObserveHTTPRequest(http.MethodGet, "/progress", http.StatusOK, 3*time.Millisecond)
	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "200")); got < 1 {
		t.Fatalf("expected request counter >= 1, got %f", got)
	}
}
