package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/tradepress/internal/contracts"
)

// Capability cache events
const (
	CacheHit     = "hit"
	CacheMiss    = "miss"
	CacheRebuild = "rebuild"
	CacheError   = "error"
)

// Recorder records scoring metrics using Prometheus.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	directiveEvaluations *prometheus.CounterVec
	insufficientData     *prometheus.CounterVec
	componentFailures    *prometheus.CounterVec
	rankingDuration      prometheus.Histogram
	rankedCandidates     prometheus.Counter
	capabilityCache      *prometheus.CounterVec
	httpRequests         *prometheus.CounterVec
	httpLatency          *prometheus.HistogramVec
}

// New creates a recorder with its own registry (plus Go/process collectors)
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		directiveEvaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepress_directive_evaluations_total",
				Help: "Total number of directive evaluations",
			},
			[]string{"code", "signal"},
		),
		insufficientData: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepress_directive_insufficient_data_total",
				Help: "Directive evaluations that fell back to the neutral score",
			},
			[]string{"code"},
		),
		componentFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepress_scoring_component_failures_total",
				Help: "Composite scoring components that failed and were neutralised",
			},
			[]string{"component"},
		),
		rankingDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tradepress_ranking_duration_seconds",
				Help:    "Duration of score-and-rank passes in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		rankedCandidates: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tradepress_ranked_candidates_total",
				Help: "Total number of candidates ranked",
			},
		),
		capabilityCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepress_capability_cache_events_total",
				Help: "Capability matrix cache hits, misses, rebuilds and store errors",
			},
			[]string{"event"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepress_http_requests_total",
				Help: "HTTP requests by route and status",
			},
			[]string{"route", "method", "status"},
		),
		httpLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradepress_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
}

// RecordDirective records one directive evaluation
func (r *Recorder) RecordDirective(result contracts.DirectiveResult) {
	if r == nil {
		return
	}
	r.directiveEvaluations.WithLabelValues(result.Code, result.Signal).Inc()
	if result.InsufficientData {
		r.insufficientData.WithLabelValues(result.Code).Inc()
	}
}

// RecordComponentFailure records a neutralised scoring component
func (r *Recorder) RecordComponentFailure(component string) {
	if r == nil {
		return
	}
	r.componentFailures.WithLabelValues(component).Inc()
}

// RecordRanking records a score-and-rank pass
func (r *Recorder) RecordRanking(d time.Duration, candidates int) {
	if r == nil {
		return
	}
	r.rankingDuration.Observe(d.Seconds())
	r.rankedCandidates.Add(float64(candidates))
}

// RecordCapabilityCache records a capability cache event (CacheHit, CacheMiss, ...)
func (r *Recorder) RecordCapabilityCache(event string) {
	if r == nil {
		return
	}
	r.capabilityCache.WithLabelValues(event).Inc()
}

// RecordHTTP records a served request
func (r *Recorder) RecordHTTP(route, method, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(route, method, status).Inc()
	r.httpLatency.WithLabelValues(route).Observe(d.Seconds())
}

// Gatherer exposes the underlying registry
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
