// Package telemetry exposes prometheus request metrics plus counters for
// the streaming pipeline.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"charchat/pkg/logger"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "charchat_http_requests_total",
		Help: "HTTP requests by method, path pattern and status.",
	}, []string{"method", "path", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "charchat_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// StreamFragments counts content fragments relayed to clients.
	StreamFragments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "charchat_stream_fragments_total",
		Help: "Completion fragments forwarded to clients.",
	})

	// StreamRetries counts completion attempts beyond the first.
	StreamRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "charchat_stream_retries_total",
		Help: "Completion attempts retried after a retryable failure.",
	})

	// StreamFailures counts streams that ended with an error suffix,
	// labeled by failure kind.
	StreamFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "charchat_stream_failures_total",
		Help: "Streams terminated by a completion failure.",
	}, []string{"kind"})

	// SubscribeDropped mirrors the store hub's dropped-event counter as
	// it is observed by feed handlers.
	SubscribeDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "charchat_subscribe_dropped_total",
		Help: "Subscription events dropped due to slow consumers.",
	})
)

const slowThreshold = 200 * time.Millisecond

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency. Path labels use the
// matched route template, never raw URLs, to keep metric cardinality
// bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		srw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(srw, r)
		dur := time.Since(start)

		pattern := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				pattern = tpl
			}
		}
		requestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(srw.status)).Inc()
		requestDuration.WithLabelValues(r.Method, pattern).Observe(dur.Seconds())

		if dur > slowThreshold {
			logger.Warn("slow_request", "method", r.Method, "path", pattern, "duration_ms", dur.Milliseconds(), "status", srw.status)
		}
	})
}

// statusRecorder captures the response status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush passes through to the wrapped writer so streaming responses keep
// per-fragment flushing behind the middleware.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
