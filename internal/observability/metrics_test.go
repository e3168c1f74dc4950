package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareRecordsRequests(t *testing.T) {
	m := NewMetrics()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/apps", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/missing", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, path := range []string{"/apps", "/apps", "/missing"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	body := scrape(t, m)
	assert.Contains(t, body, `portico_http_requests_total{code="200",route="/apps"} 2`)
	assert.Contains(t, body, `portico_http_requests_total{code="404",route="/missing"} 1`)
	assert.Contains(t, body, "portico_http_request_duration_seconds")
}

func TestLoginAndHealthCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordLogin("ok")
	m.RecordLogin("denied")
	m.RecordLogin("denied")
	m.RecordHealthCheck("up")

	body := scrape(t, m)
	assert.Contains(t, body, `portico_logins_total{result="ok"} 1`)
	assert.Contains(t, body, `portico_logins_total{result="denied"} 2`)
	assert.Contains(t, body, `portico_webapp_health_checks_total{result="up"} 1`)
}

func TestNilMetricsIsInert(t *testing.T) {
	var m *Metrics
	m.RecordLogin("ok")
	m.RecordHealthCheck("down")

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	rec := httptest.NewRecorder()
	m.Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	rec = httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.True(t, strings.Contains(body, "portico_"), "scrape should expose portal metrics")
	return body
}
