package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/songzhibin97/adminconsole/pkg/metrics"
)

// Options for creating a Recorder
type Options struct {
	Registry    *prometheus.Registry
	Namespace   string
	ConstLabels map[string]string
	Buckets     []float64
}

// Recorder implements metrics.Recorder on Prometheus collectors
type Recorder struct {
	registry *prometheus.Registry

	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	expiries    prometheus.Counter
	transitions *prometheus.CounterVec
	mutations   *prometheus.CounterVec
}

var _ metrics.Recorder = (*Recorder)(nil)

// NewRecorder creates the console collectors and registers them.
func NewRecorder(opts Options) (*Recorder, error) {
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "console"
	}
	buckets := opts.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	constLabels := prometheus.Labels(opts.ConstLabels)

	r := &Recorder{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "gateway",
			Name:        "requests_total",
			Help:        "Total backend requests by endpoint and status code.",
			ConstLabels: constLabels,
		}, []string{"method", "endpoint", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "gateway",
			Name:        "request_duration_seconds",
			Help:        "Backend request latency.",
			ConstLabels: constLabels,
			Buckets:     buckets,
		}, []string{"method", "endpoint"}),
		expiries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "session",
			Name:        "expired_total",
			Help:        "Unauthorized responses that raised a session expiry event.",
			ConstLabels: constLabels,
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "session",
			Name:        "transitions_total",
			Help:        "Session state transitions.",
			ConstLabels: constLabels,
		}, []string{"from", "to"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "resource",
			Name:        "mutations_total",
			Help:        "Create, update and delete attempts by outcome.",
			ConstLabels: constLabels,
		}, []string{"resource", "action", "result"}),
	}

	for _, c := range []prometheus.Collector{r.requests, r.latency, r.expiries, r.transitions, r.mutations} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObserveRequest records one completed gateway request.
func (r *Recorder) ObserveRequest(method, endpoint string, status int, duration time.Duration) {
	r.requests.WithLabelValues(method, endpoint, statusLabel(status)).Inc()
	r.latency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// IncSessionExpired counts an expiry event.
func (r *Recorder) IncSessionExpired() {
	r.expiries.Inc()
}

// ObserveTransition counts a session state transition.
func (r *Recorder) ObserveTransition(from, to string) {
	r.transitions.WithLabelValues(from, to).Inc()
}

// ObserveMutation counts a mutation attempt.
func (r *Recorder) ObserveMutation(resource, action, result string) {
	r.mutations.WithLabelValues(resource, action, result).Inc()
}

// Registry returns the registry the collectors live in.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func statusLabel(status int) string {
	if status == 0 {
		return "error"
	}
	return strconv.Itoa(status)
}
