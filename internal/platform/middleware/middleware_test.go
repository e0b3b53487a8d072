package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"waypoint/internal/platform/logger"
	"waypoint/internal/platform/metrics"
)

func TestRecovery(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	h := Recovery(logger.Discard(), m)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("nil map")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"statusCode":500,"message":"Internal server error","success":false,"errors":[]}`, w.Body.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Panics))
}

func TestLoggerRecordsRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "info", "json", "test")

	r := chi.NewRouter()
	r.Use(Logger(log, m))
	r.Get("/users/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/42", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestDuration))
	assert.Contains(t, buf.String(), `"route":"/users/{id}"`)
	assert.Contains(t, buf.String(), `"level":"WARN"`)
}
