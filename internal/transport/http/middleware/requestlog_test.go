package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/go-api-community/internal/metrics"
)

func TestRequestLogger_RecordsRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(RequestLogger)
	r.Get("/api/posts/things/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, "/api/posts/things/{id}", "418")
	before := testutil.ToFloat64(counter)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/posts/things/42", nil))

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestRequestLogger_DefaultsTo200(t *testing.T) {
	r := chi.NewRouter()
	r.Use(RequestLogger)
	r.Get("/quiet", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("x")) })

	counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, "/quiet", "200")
	before := testutil.ToFloat64(counter)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/quiet", nil))
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
