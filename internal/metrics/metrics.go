package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns its registry so several can coexist in one process (tests).
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	// Probe metrics
	probesTotal   *prometheus.CounterVec
	probeDuration *prometheus.HistogramVec

	// Run metrics
	runsTotal        prometheus.Counter
	runDuration      prometheus.Histogram
	domainsProbed    prometheus.Counter
	itemsByStatus    *prometheus.GaugeVec
	candidatesFound  *prometheus.CounterVec
	submissionsTotal *prometheus.CounterVec

	// API metrics
	apiRequests *prometheus.CounterVec
	apiDuration *prometheus.HistogramVec
}

func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	c := &Collector{
		registry: reg,
		probesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "probes_total",
				Help:      "Total number of domain probes by probe kind and outcome reason",
			},
			[]string{"probe", "reason"},
		),
		probeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "probe_duration_seconds",
				Help:      "Probe request duration in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"probe"},
		),
		runsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of verification runs",
			},
		),
		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of verification runs in seconds",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
			},
		),
		domainsProbed: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "domains_probed_total",
				Help:      "Total number of domains probed",
			},
		),
		itemsByStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "directory_items",
				Help:      "Directory items by display status",
			},
			[]string{"status"},
		),
		candidatesFound: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "candidates_found_total",
				Help:      "Candidate domains supplied by each discovery source",
			},
			[]string{"source"},
		),
		submissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submissions_total",
				Help:      "Submission intake results",
			},
			[]string{"result"},
		),
		apiRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		apiDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
	}

	return c
}

// Handler serves this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) RecordProbe(probe, reason string, seconds float64) {
	if c == nil {
		return
	}
	c.probesTotal.WithLabelValues(probe, reason).Inc()
	c.probeDuration.WithLabelValues(probe).Observe(seconds)
}

func (c *Collector) RecordRun(seconds float64, probed int) {
	if c == nil {
		return
	}
	c.runsTotal.Inc()
	c.runDuration.Observe(seconds)
	c.domainsProbed.Add(float64(probed))
}

func (c *Collector) SetItemsByStatus(counts map[string]int) {
	if c == nil {
		return
	}
	c.itemsByStatus.Reset()
	for status, n := range counts {
		c.itemsByStatus.WithLabelValues(status).Set(float64(n))
	}
}

func (c *Collector) RecordCandidates(source string, count int) {
	if c == nil {
		return
	}
	c.candidatesFound.WithLabelValues(source).Add(float64(count))
}

func (c *Collector) RecordSubmission(result string) {
	if c == nil {
		return
	}
	c.submissionsTotal.WithLabelValues(result).Inc()
}

func (c *Collector) RecordAPIRequest(method, endpoint, status string) {
	if c == nil {
		return
	}
	c.apiRequests.WithLabelValues(method, endpoint, status).Inc()
}

func (c *Collector) RecordAPIDuration(method, endpoint string, seconds float64) {
	if c == nil {
		return
	}
	c.apiDuration.WithLabelValues(method, endpoint).Observe(seconds)
}
