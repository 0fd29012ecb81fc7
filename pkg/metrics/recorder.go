package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cruise"

// Recorder owns the service's Prometheus collectors.
type Recorder struct {
	registry           *prometheus.Registry
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	generations        *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	tokens             *prometheus.CounterVec
}

// NewRecorder registers all collectors on a private registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status class.",
		}, []string{"endpoint", "status_class"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by endpoint.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_generation_total",
			Help:      "Day-plan generation runs by result.",
		}, []string{"result"}),
		generationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ai_generation_duration_seconds",
			Help:      "Day-plan generation latency by result.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}, []string{"result"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_total",
			Help:      "LLM tokens consumed by type.",
		}, []string{"type"}),
	}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.httpRequests,
		r.httpDuration,
		r.generations,
		r.generationDuration,
		r.tokens,
	)
	return r
}

// Handler serves the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one finished HTTP request.
func (r *Recorder) ObserveRequest(endpoint string, status int, elapsed time.Duration) {
	r.httpRequests.WithLabelValues(endpoint, statusClass(status)).Inc()
	r.httpDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// ObserveGeneration records one pipeline run.
func (r *Recorder) ObserveGeneration(result string, elapsed time.Duration) {
	r.generations.WithLabelValues(result).Inc()
	r.generationDuration.WithLabelValues(result).Observe(elapsed.Seconds())
}

// AddTokens accumulates token usage.
func (r *Recorder) AddTokens(usage TokenUsage) {
	if usage.PromptTokens > 0 {
		r.tokens.WithLabelValues("prompt").Add(float64(usage.PromptTokens))
	}
	if usage.CompletionTokens > 0 {
		r.tokens.WithLabelValues("completion").Add(float64(usage.CompletionTokens))
	}
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}
