package httpmetrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/AlibekovAA/examination-system/internal/observability/metrics"
)

type Collector struct {
	service string
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func New(service string) *Collector {
	return &Collector{service: service}
}

// Wrap records request metrics labelled by the chi route pattern. It seeds a
// route context so the pattern resolved by the router is visible afterwards.
func (c *Collector) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rctx := chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

		inFlight := metrics.HTTPRequestsInFlight.WithLabelValues(c.service)
		inFlight.Inc()
		defer inFlight.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := rctx.RoutePattern()
		if path == "" {
			path = NormalizePath(r.URL.Path)
		}
		statusClass := fmt.Sprintf("%dxx", rec.status/100)

		metrics.HTTPRequestsTotal.WithLabelValues(c.service, r.Method, path).Inc()
		metrics.HTTPRequestDurationSeconds.WithLabelValues(c.service, r.Method, path, statusClass).Observe(time.Since(start).Seconds())
	})
}
