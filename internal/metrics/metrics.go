package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics wraps Prometheus metrics for the order manager.
type Metrics struct {
	registry *prometheus.Registry

	ordersConstructed  *prometheus.CounterVec
	executionsRecorded prometheus.Counter
	reportFailures     *prometheus.CounterVec
	storeLag           *prometheus.CounterVec
	activeOrders       prometheus.Gauge
	hydrations         prometheus.Counter
	locateLatency      prometheus.Histogram
}

// New creates a metrics registry and registers order-manager metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	ordersConstructed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_constructed_total",
		Help: "Total number of constructed orders.",
	}, []string{"type", "side"})

	executionsRecorded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "executions_recorded_total",
		Help: "Total number of recorded executions.",
	})

	reportFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "report_failures_total",
		Help: "Total number of failed report operations.",
	}, []string{"op"})

	storeLag := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "store_lag_total",
		Help: "Total number of best-effort persistence failures by operation.",
	}, []string{"op"})

	activeOrders := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "active_orders_count",
		Help: "Current number of non-terminal orders in the registry.",
	})

	hydrations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_hydrations_total",
		Help: "Total number of orders rebuilt from the store on first access.",
	})

	locateLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_locate_latency_seconds",
		Help:    "Latency for order lookup including hydration in seconds.",
		Buckets: prometheus.DefBuckets,
	})

	registry.MustRegister(ordersConstructed, executionsRecorded, reportFailures, storeLag, activeOrders, hydrations, locateLatency)

	return &Metrics{
		registry:           registry,
		ordersConstructed:  ordersConstructed,
		executionsRecorded: executionsRecorded,
		reportFailures:     reportFailures,
		storeLag:           storeLag,
		activeOrders:       activeOrders,
		hydrations:         hydrations,
		locateLatency:      locateLatency,
	}
}

// Handler returns the scraping endpoint handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncOrderConstructed records a constructed order.
func (m *Metrics) IncOrderConstructed(orderType, side string) {
	if m == nil {
		return
	}
	m.ordersConstructed.WithLabelValues(orderType, side).Inc()
}

// IncExecutionRecorded records an applied execution.
func (m *Metrics) IncExecutionRecorded() {
	if m == nil {
		return
	}
	m.executionsRecorded.Inc()
}

// IncReportFailure records a fatal failure of a report-family operation.
func (m *Metrics) IncReportFailure(op string) {
	if m == nil {
		return
	}
	m.reportFailures.WithLabelValues(op).Inc()
}

// IncStoreLag records a best-effort persistence failure.
func (m *Metrics) IncStoreLag(op string) {
	if m == nil {
		return
	}
	m.storeLag.WithLabelValues(op).Inc()
}

// SetActiveOrders sets the active-order gauge.
func (m *Metrics) SetActiveOrders(n int) {
	if m == nil {
		return
	}
	m.activeOrders.Set(float64(n))
}

// IncHydration records a store hydration.
func (m *Metrics) IncHydration() {
	if m == nil {
		return
	}
	m.hydrations.Inc()
}

// ObserveLocateLatency records lookup latency.
func (m *Metrics) ObserveLocateLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.locateLatency.Observe(d.Seconds())
}
