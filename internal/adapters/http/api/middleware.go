package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/arenasync/pkg/metrics"
)

// codeNoter is implemented by writers that want the error code of a refusal.
type codeNoter interface {
	noteCode(code string)
}

// MetricsMiddleware records request count and latency for route. Refusals are
// counted under the error code the handler answered with.
func MetricsMiddleware(next http.HandlerFunc, route string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		status := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(route, r.Method, status)
		metrics.RecordHTTPRequestDuration(route, r.Method, status, float64(time.Since(start).Milliseconds()))

		if rec.status >= http.StatusBadRequest {
			metrics.RecordErrorByComponent("api_"+route, rec.errorCode())
		}
	}
}

// statusRecorder captures the status and error code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	code   string
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) noteCode(code string) { rec.code = code }

// errorCode falls back to the status text for refusals made outside
// writeError, such as the mux's not found.
func (rec *statusRecorder) errorCode() string {
	if rec.code != "" {
		return rec.code
	}
	return strings.ReplaceAll(strings.ToLower(http.StatusText(rec.status)), " ", "_")
}
