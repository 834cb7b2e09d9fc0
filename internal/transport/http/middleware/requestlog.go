package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/go-api-community/internal/logging"
	"github.com/go-api-community/internal/metrics"
)

// slowRequest is the duration above which a request is logged at warn.
const slowRequest = time.Second

// RequestLogger logs one structured line per request and records the
// Prometheus request metrics under the matched chi route pattern.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		route := routePattern(r)
		metrics.RecordAPIRequest(r.Method, route, strconv.Itoa(status), elapsed)

		log := logging.Ctx(r.Context())
		ev := log.Info()
		switch {
		case status >= http.StatusInternalServerError:
			ev = log.Error()
		case elapsed > slowRequest:
			ev = log.Warn()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", route).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", elapsed).
			Str("remote_ip", realIP(r)).
			Msg("request")
	})
}

// routePattern returns the chi pattern that served r, so metrics are keyed by
// route and not by raw path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
