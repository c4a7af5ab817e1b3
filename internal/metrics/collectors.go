package metrics

import (
	"net/http"
	"strconv"
	"time"

	"meal-calendar/internal/shared"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "meal_calendar"

// Collectors holds the Prometheus instruments of the API server.
type Collectors struct {
	registry *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
	generations         *prometheus.CounterVec
	generationTokens    *prometheus.CounterVec
	generationLatencies *prometheus.HistogramVec
	mealsSaved          prometheus.Counter
}

// NewCollectors registers the instruments on a fresh registry.
func NewCollectors() *Collectors {
	c := &Collectors{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Model calls by agent and outcome.",
		}, []string{"agent", "outcome"}),
		generationTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_tokens_total",
			Help:      "Tokens consumed by model calls.",
		}, []string{"agent", "kind"}),
		generationLatencies: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Model call latency by agent.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"agent"}),
		mealsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meals_saved_total",
			Help:      "Meals written by plan saves.",
		}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.httpRequests,
		c.httpDuration,
		c.generations,
		c.generationTokens,
		c.generationLatencies,
		c.mealsSaved,
	)
	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one served HTTP request.
func (c *Collectors) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	c.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// ObserveGeneration records one model call.
func (c *Collectors) ObserveGeneration(meta shared.AgentMeta) {
	if !meta.Reached() {
		return
	}
	outcome := "success"
	if meta.Failed {
		outcome = "failure"
	}
	c.generations.WithLabelValues(meta.AgentName, outcome).Inc()
	c.generationTokens.WithLabelValues(meta.AgentName, "prompt").Add(float64(meta.Usage.PromptTokens))
	c.generationTokens.WithLabelValues(meta.AgentName, "completion").Add(float64(meta.Usage.CompletionTokens))
	c.generationLatencies.WithLabelValues(meta.AgentName).Observe(meta.Latency.Seconds())
}

// ObserveSaved counts meals written by a save.
func (c *Collectors) ObserveSaved(count int) {
	c.mealsSaved.Add(float64(count))
}
