package monitor

import "github.com/prometheus/client_golang/prometheus"

// metrics holds the Prometheus collectors exposed at GET /metrics:
// events delivered to the monitor's inbox per variant (the monitor is
// registered for PortfolioInfo and ShutDown only, and ShutDown is not
// counted), high/low queue depth, fills applied, and orders dropped —
// the prometheus/client_golang wiring SPEC_FULL.md's DOMAIN STACK names.
type metrics struct {
	eventsDispatched *prometheus.CounterVec
	highQueueDepth   prometheus.Gauge
	lowQueueDepth    prometheus.Gauge
	fillsApplied     prometheus.Gauge
	ordersDropped    prometheus.Gauge
}

func newMetrics(registry *prometheus.Registry) *metrics {
	m := &metrics{
		eventsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "backtest",
			Name:      "events_dispatched_total",
			Help:      "Events delivered to the monitor's inbox, by variant.",
		}, []string{"variant"}),
		highQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "backtest",
			Name:      "high_priority_queue_depth",
			Help:      "Undelivered events in the high-priority ingress queue.",
		}),
		lowQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "backtest",
			Name:      "low_priority_queue_depth",
			Help:      "Undelivered events in the low-priority ingress queue.",
		}),
		fillsApplied: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "backtest",
			Name:      "fills_applied_total",
			Help:      "Cumulative number of order fills the Exchange has applied.",
		}),
		ordersDropped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "backtest",
			Name:      "orders_dropped_total",
			Help:      "Cumulative number of pending orders dropped unfilled.",
		}),
	}

	registry.MustRegister(
		m.eventsDispatched,
		m.highQueueDepth,
		m.lowQueueDepth,
		m.fillsApplied,
		m.ordersDropped,
	)
	return m
}
