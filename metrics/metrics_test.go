package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveAPICall(t *testing.T) {
	before := testutil.ToFloat64(APIRequestTotals.WithLabelValues("doctors", "200"))

	ObserveAPICall("doctors", 200, 15*time.Millisecond)
	ObserveAPICall("doctors", 200, 5*time.Millisecond)

	after := testutil.ToFloat64(APIRequestTotals.WithLabelValues("doctors", "200"))
	if after-before != 2 {
		t.Errorf("expected counter to grow by 2, grew by %v", after-before)
	}
}

func TestMetricsMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/patient/appointments/{id}/queue", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := HTTPRequestTotals.WithLabelValues(http.MethodGet, "/patient/appointments/{id}/queue", "418")
	before := testutil.ToFloat64(counter)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/patient/appointments/7/queue", nil))

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", rr.Code)
	}
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("expected one request recorded under the route pattern, got %v", got)
	}
	if testutil.ToFloat64(HTTPRequestInFlight) != 0 {
		t.Errorf("expected in-flight gauge back to 0")
	}
}
