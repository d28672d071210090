// Package middleware provides HTTP request logging and Prometheus
// instrumentation for the catalog API.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

// responseWriter wraps http.ResponseWriter to capture status code and
// bytes written.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.wroteHeader = true
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

var healthCheckPaths = map[string]bool{
	"/healthz": true,
	"/livez":   true,
	"/readyz":  true,
}

// Config controls which requests the logging middleware records.
type Config struct {
	SkipPaths       []string
	LogHealthChecks bool
}

// DefaultConfig returns the default middleware configuration.
func DefaultConfig() Config {
	return Config{
		SkipPaths:       []string{"/metrics"},
		LogHealthChecks: false,
	}
}

// Logger returns middleware that logs each request with method, path,
// status, size, and duration.
func Logger(config Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if shouldSkip(r.URL.Path, config) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			wrapped := newResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			logging.Info("%s %s %s %d %d %dms",
				getClientIP(r),
				sanitizeLogField(r.Method),
				sanitizeLogField(r.URL.Path),
				wrapped.statusCode,
				wrapped.bytesWritten,
				time.Since(start).Milliseconds(),
			)
		})
	}
}

// Metrics returns middleware that records Prometheus request metrics.
func Metrics(config Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range config.SkipPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}
			if healthCheckPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			metrics.HTTPRequestsInFlight.Inc()
			defer metrics.HTTPRequestsInFlight.Dec()

			wrapped := newResponseWriter(w)
			start := time.Now()

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			path := normalizePath(r.URL.Path)
			status := strconv.Itoa(wrapped.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
		})
	}
}

func shouldSkip(path string, config Config) bool {
	for _, skipPath := range config.SkipPaths {
		if strings.HasPrefix(path, skipPath) {
			return true
		}
	}
	if !config.LogHealthChecks && healthCheckPaths[path] {
		return true
	}
	return false
}

// normalizePath collapses library ids into a placeholder to keep metric
// cardinality bounded: /api/libraries/<uuid>/scan -> /api/libraries/{id}/scan.
func normalizePath(path string) string {
	parts := strings.Split(path, "/")
	if len(parts) > 3 && parts[1] == "api" && parts[2] == "libraries" && parts[3] != "" {
		parts[3] = "{id}"
		return strings.Join(parts, "/")
	}
	return path
}

// sanitizeLogField strips control characters that could forge log lines.
func sanitizeLogField(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r':
			b.WriteRune(' ')
		case r == '\x00' || r == '\x1b':
			continue
		case r < 0x20 && r != '\t':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return sanitizeLogField(ip)
}
