package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsLabelsRoutePatternAndStatus(t *testing.T) {
	r := chi.NewRouter()
	r.Use(HTTPMetrics)
	r.Post("/v1/cuadres/{id}/review", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/empty", func(w http.ResponseWriter, r *http.Request) {})

	conflict := httpRequests.WithLabelValues(http.MethodPost, "/v1/cuadres/{id}/review", "409")
	ok := httpRequests.WithLabelValues(http.MethodGet, "/healthz", "200")
	empty := httpRequests.WithLabelValues(http.MethodGet, "/empty", "200")
	beforeConflict, beforeOK, beforeEmpty := testutil.ToFloat64(conflict), testutil.ToFloat64(ok), testutil.ToFloat64(empty)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/v1/cuadres/c-1/review", nil),
		httptest.NewRequest(http.MethodGet, "/healthz", nil),
		httptest.NewRequest(http.MethodGet, "/empty", nil),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	require.InDelta(t, beforeConflict+1, testutil.ToFloat64(conflict), 0.0001)
	require.InDelta(t, beforeOK+1, testutil.ToFloat64(ok), 0.0001)
	require.InDelta(t, beforeEmpty+1, testutil.ToFloat64(empty), 0.0001)
	require.Zero(t, testutil.ToFloat64(httpInFlight))
}
