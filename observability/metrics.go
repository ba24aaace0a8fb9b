package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics receives measurements about completed checks.
type Metrics interface {
	CheckCompleted(profile string, pages, issues int, d time.Duration)
	CheckFailed(profile string)
	RuleIssues(profile, rule string, n int)
}

type NopMetrics struct{}

func (NopMetrics) CheckCompleted(string, int, int, time.Duration) {}
func (NopMetrics) CheckFailed(string)                             {}
func (NopMetrics) RuleIssues(string, string, int)                 {}

// PrometheusMetrics records check measurements as Prometheus collectors.
type PrometheusMetrics struct {
	checks   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	pages    *prometheus.CounterVec
	issues   *prometheus.CounterVec
}

// NewPrometheusMetrics creates the collectors and registers them with reg.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	m := &PrometheusMetrics{
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricChecks,
			Help: "Completed preflight checks by profile and outcome.",
		}, []string{"profile", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricCheckDuration,
			Help:    "Time spent evaluating a profile against one document.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"profile"}),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricPages,
			Help: "Pages evaluated.",
		}, []string{"profile"}),
		issues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricIssues,
			Help: "Issues reported by rule.",
		}, []string{"profile", "rule"}),
	}
	for _, c := range []prometheus.Collector{m.checks, m.duration, m.pages, m.issues} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *PrometheusMetrics) CheckCompleted(profile string, pages, issues int, d time.Duration) {
	outcome := "pass"
	if issues > 0 {
		outcome = "fail"
	}
	m.checks.WithLabelValues(profile, outcome).Inc()
	m.duration.WithLabelValues(profile).Observe(d.Seconds())
	m.pages.WithLabelValues(profile).Add(float64(pages))
}

func (m *PrometheusMetrics) CheckFailed(profile string) {
	m.checks.WithLabelValues(profile, "error").Inc()
}

func (m *PrometheusMetrics) RuleIssues(profile, rule string, n int) {
	if n <= 0 {
		return
	}
	m.issues.WithLabelValues(profile, rule).Add(float64(n))
}
