package metrics

import (
	"net/http"
	"strings"
	"time"
)

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMiddleware returns middleware that records HTTP metrics.
func HTTPMiddleware(reg *Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reg.InFlightInc()
			defer reg.InFlightDec()

			start := time.Now()

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			reg.RecordRequest(r.Method, pathLabel(r.URL.Path), rw.statusCode, duration)
		})
	}
}

const watchlistPrefix = "/api/v1/watchlist/"

// pathLabel collapses per-symbol routes so label cardinality stays bounded.
func pathLabel(path string) string {
	if !strings.HasPrefix(path, watchlistPrefix) {
		return path
	}
	switch rest := strings.TrimPrefix(path, watchlistPrefix); rest {
	case "toggle", "symbols":
		return path
	default:
		return watchlistPrefix + "{symbol}"
	}
}
