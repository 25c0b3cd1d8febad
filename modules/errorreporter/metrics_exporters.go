package errorreporter

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector exposes reporter state:
//
//	<ns>_reports{mfe, severity}   gauge
//	<ns>_throttled_total          counter
//	<ns>_dropped_total            counter
type PrometheusCollector struct {
	reporter *Reporter

	reportsDesc   *prometheus.Desc
	throttledDesc *prometheus.Desc
	droppedDesc   *prometheus.Desc
}

// NewPrometheusCollector creates a collector for r. namespace defaults to
// mfe_errors.
func NewPrometheusCollector(r *Reporter, namespace string) *PrometheusCollector {
	if namespace == "" {
		namespace = "mfe_errors"
	}
	return &PrometheusCollector{
		reporter: r,
		reportsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "reports"),
			"Accepted error reports per module and severity",
			[]string{"mfe", "severity"}, nil,
		),
		throttledDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "throttled_total"),
			"Reports suppressed by the duplicate throttle",
			nil, nil,
		),
		droppedDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "dropped_total"),
			"Reports dropped after the session cap was reached",
			nil, nil,
		),
	}
}

func (c *PrometheusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.reportsDesc
	ch <- c.throttledDesc
	ch <- c.droppedDesc
}

func (c *PrometheusCollector) Collect(ch chan<- prometheus.Metric) {
	type series struct{ mfe, severity string }
	counts := make(map[series]int)
	for _, report := range c.reporter.Errors() {
		counts[series{report.MFEName, string(report.Severity)}]++
	}
	for s, n := range counts {
		ch <- prometheus.MustNewConstMetric(c.reportsDesc, prometheus.GaugeValue, float64(n), s.mfe, s.severity)
	}
	stats := c.reporter.Stats()
	ch <- prometheus.MustNewConstMetric(c.throttledDesc, prometheus.CounterValue, float64(stats.Throttled))
	ch <- prometheus.MustNewConstMetric(c.droppedDesc, prometheus.CounterValue, float64(stats.Dropped))
}
