package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"affiliate-link-resolver/internal/resolver"
)

var (
	// Prometheus panics on duplicate registration.
	once sync.Once

	// route is the chi pattern, never the raw path, to keep label cardinality bounded.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route pattern and status.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency distributions.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPInflightRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	ResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolver_resolutions_total",
			Help: "Finished resolutions by final platform and error kind (empty when ok).",
		},
		[]string{"platform", "error"},
	)

	ResolutionHops = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "resolver_hops",
			Help:    "Hops taken per resolution.",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 8},
		},
	)

	ResolutionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "resolver_duration_seconds",
			Help:    "Wall time per resolution, including outbound fetches.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 50},
		},
	)
)

func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDurationSeconds,
			HTTPInflightRequests,
			ResolutionsTotal,
			ResolutionHops,
			ResolutionDurationSeconds,
		)
	})
}

// Middleware records request count, latency and in-flight gauge.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HTTPInflightRequests.Inc()
		defer HTTPInflightRequests.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		HTTPRequestDurationSeconds.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Recorder feeds resolver results into the resolution metrics.
type Recorder struct{}

func NewRecorder() *Recorder {
	Init()
	return &Recorder{}
}

func (*Recorder) ObserveResolution(r resolver.Result, elapsed time.Duration) {
	ResolutionsTotal.WithLabelValues(string(r.Platform), string(r.Error)).Inc()
	ResolutionHops.Observe(float64(r.HopCount))
	ResolutionDurationSeconds.Observe(elapsed.Seconds())
}
