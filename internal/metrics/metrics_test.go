package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_CountsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/orders/{id}", "404"))

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/"+id, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	after := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/orders/{id}", "404"))
	assert.Equal(t, before+2, after)
}

func TestMiddleware_UnmatchedPathsShareOneLabel(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {})

	before := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, unmatchedRoute, "404"))
	for _, p := range []string{"/wp-admin", "/.env", "/x/y/z"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	after := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, unmatchedRoute, "404"))
	assert.Equal(t, before+3, after)
	assert.Zero(t, testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/wp-admin", "404")))
}
