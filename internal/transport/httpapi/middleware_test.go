package httpapi

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/restaurant/internal/metrics"
)

func TestRecoverMiddleware(t *testing.T) {
	logger := log.New()
	logger.SetOutput(io.Discard)

	h := RequestIDMiddleware(LoggingMiddleware(logger.WithField("component", "test"), nil)(
		RecoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		})),
	))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tables/1/items", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"msg":"Server error"}`, rec.Body.String())
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, "req-123", seen)
	require.Equal(t, "req-123", rec.Header().Get(HeaderRequestID))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Len(t, rec.Header().Get(HeaderRequestID), 36)
}

func TestLoggingMiddleware_RecordsRouteMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetricsWithRegisterer(reg)
	logger := log.New()
	logger.SetOutput(io.Discard)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /tables/{tid}/items", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := LoggingMiddleware(logger.WithField("component", "test"), httpMetrics)(mux)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/tables/7/items", nil))

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, family := range families {
		if family.GetName() != "restaurant_http_requests_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			if labels["route"] == "GET /tables/{tid}/items" && labels["status"] == "418" {
				found = true
			}
		}
	}
	require.True(t, found, "expected request counter labelled with route pattern")
}
