package eventbus

// Prometheus exporter for bus statistics.
//
// Usage:
//
//	collector := eventbus.NewPrometheusCollector(bus, "mfe_eventbus")
//	prometheus.MustRegister(collector)
//
// The collector is pull-based: every scrape reads EventStats(), so the emit
// path carries no extra instrumentation.

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements prometheus.Collector for a Bus.
// It exposes:
//
//	<ns>_emitted_total{type="<event type>"}   counter
//	<ns>_listeners{type="<event type>"}       gauge
//	<ns>_handler_failures_total               counter
//	<ns>_history_size                         gauge
type PrometheusCollector struct {
	bus *Bus

	emittedDesc   *prometheus.Desc
	listenersDesc *prometheus.Desc
	failuresDesc  *prometheus.Desc
	historyDesc   *prometheus.Desc
}

// NewPrometheusCollector creates a collector for bus. namespace prefixes
// metric names (default: mfe_eventbus).
func NewPrometheusCollector(bus *Bus, namespace string) *PrometheusCollector {
	if namespace == "" {
		namespace = "mfe_eventbus"
	}
	return &PrometheusCollector{
		bus: bus,
		emittedDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "emitted_total"),
			"Total payloads emitted per event type",
			[]string{"type"}, nil,
		),
		listenersDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "listeners"),
			"Active subscriptions per event type",
			[]string{"type"}, nil,
		),
		failuresDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "handler_failures_total"),
			"Handler invocations that returned an error or panicked",
			nil, nil,
		),
		historyDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "history_size"),
			"Payloads currently held in the history buffer",
			nil, nil,
		),
	}
}

// Describe sends metric descriptors.
func (c *PrometheusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.emittedDesc
	ch <- c.listenersDesc
	ch <- c.failuresDesc
	ch <- c.historyDesc
}

// Collect emits the current stats as const metrics.
func (c *PrometheusCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.bus.EventStats()
	for eventType, n := range stats.EventCounts {
		ch <- prometheus.MustNewConstMetric(c.emittedDesc, prometheus.CounterValue, float64(n), eventType)
	}
	for eventType, n := range stats.HandlerCounts {
		ch <- prometheus.MustNewConstMetric(c.listenersDesc, prometheus.GaugeValue, float64(n), eventType)
	}
	ch <- prometheus.MustNewConstMetric(c.failuresDesc, prometheus.CounterValue, float64(stats.HandlerFailures))
	ch <- prometheus.MustNewConstMetric(c.historyDesc, prometheus.GaugeValue, float64(stats.HistorySize))
}
