package httpserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

// RouteUnmatched labels requests no route claimed (404 and 405).
const RouteUnmatched = "unmatched"

// paths polled by scrapers and probes; kept out of the access log
var quietPaths = map[string]bool{
	"/metrics": true,
	"/healthz": true,
	"/readyz":  true,
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Logging writes one access log line per request. Form bodies are never
// logged: they carry phone numbers and message text.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if quietPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)

		level := slog.LevelInfo
		if sw.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start),
		)
	})
}

// HTTPMetrics are the collectors Instrument reports into. Duration may be nil.
type HTTPMetrics struct {
	Requests *prometheus.CounterVec   // labels: route, status
	Duration *prometheus.HistogramVec // labels: route
}

// Instrument records every response the router writes, including the 404
// and 405 replies mux produces when no route matches.
func Instrument(r *mux.Router, m HTTPMetrics) {
	r.Use(m.middleware)
	r.NotFoundHandler = m.middleware(http.NotFoundHandler())
	r.MethodNotAllowedHandler = m.middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, ErrMethodNotAllowed, http.StatusMethodNotAllowed)
	}))
}

func (m HTTPMetrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)

		route := routeLabel(r)
		m.Requests.WithLabelValues(route, strconv.Itoa(sw.status)).Inc()
		if m.Duration != nil {
			m.Duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

// routeLabel prefers the route name (whatsapp.post) and falls back to the
// path template. Raw paths are never used, to keep label cardinality fixed.
func routeLabel(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return RouteUnmatched
	}
	if name := route.GetName(); name != "" {
		return name
	}
	if tpl, err := route.GetPathTemplate(); err == nil {
		return tpl
	}
	return RouteUnmatched
}
