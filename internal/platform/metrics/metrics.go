package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kpi"

type Collector struct {
	registry *prometheus.Registry

	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	evaluations        *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	scoringRuns        *prometheus.CounterVec
	rankPasses         *prometheus.CounterVec
	rankedSummaries    prometheus.Gauge
}

func New() *Collector {
	registry := prometheus.NewRegistry()
	c := &Collector{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by status code.",
		}, []string{"code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"code"}),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "evaluations_total",
			Help:      "Condition and value expression evaluations by kind and result.",
		}, []string{"kind", "result"}),
		evaluationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "evaluation_duration_seconds",
			Help:      "Expression evaluation latency.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"kind"}),
		scoringRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "runs_total",
			Help:      "Score-total runs by outcome.",
		}, []string{"outcome"}),
		rankPasses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "rank_passes_total",
			Help:      "Cohort rank recomputations by outcome.",
		}, []string{"outcome"}),
		rankedSummaries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "ranked_summaries",
			Help:      "Summaries ranked by the most recent rank pass.",
		}),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.httpRequests,
		c.httpDuration,
		c.evaluations,
		c.evaluationDuration,
		c.scoringRuns,
		c.rankPasses,
		c.rankedSummaries,
	)
	return c
}

func (c *Collector) Record(status int, duration time.Duration) {
	code := strconv.Itoa(status)
	c.httpRequests.WithLabelValues(code).Inc()
	c.httpDuration.WithLabelValues(code).Observe(duration.Seconds())
}

func (c *Collector) ObserveEvaluation(kind string, duration time.Duration, failed bool) {
	result := "ok"
	if failed {
		result = "failed"
	}
	c.evaluations.WithLabelValues(kind, result).Inc()
	c.evaluationDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func (c *Collector) ObserveRun(outcome string) {
	c.scoringRuns.WithLabelValues(outcome).Inc()
}

func (c *Collector) ObserveRankPass(outcome string, ranked int) {
	c.rankPasses.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		c.rankedSummaries.Set(float64(ranked))
	}
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
