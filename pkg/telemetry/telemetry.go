// Package telemetry exposes low-overhead HTTP request metrics through
// the Prometheus registry scraped at /metrics.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"chathub/pkg/logger"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chathub_http_request_duration_seconds",
		Help:    "HTTP request latency by method and status class.",
		Buckets: []float64{0.001, 0.005, 0.025, 0.1, 0.5, 1, 5},
	}, []string{"method", "status"})
	requestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chathub_http_requests_in_flight",
		Help: "Requests currently being served.",
	})
)

// slowThreshold is the latency above which a request is logged.
const slowThreshold = 200 * time.Millisecond

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records duration and in-flight counts for every request and
// logs the slow ones. WebSocket upgrades are passed through untouched so
// the recorder does not break hijacking.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Upgrade") == "websocket" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		requestsInFlight.Inc()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		requestsInFlight.Dec()

		took := time.Since(start)
		requestDuration.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Observe(took.Seconds())
		if took > slowThreshold {
			logger.Warn("slow_request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "took", took.String())
		}
	})
}
