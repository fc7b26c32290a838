package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SettlementTicks counts completed settlement scheduler ticks.
var SettlementTicks = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "stonks_settlement_ticks_total",
		Help: "Total number of settlement ticks completed",
	},
)

// OrdersSettled counts orders settled by side (BUY/SELL).
var OrdersSettled = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "stonks_orders_settled_total",
		Help: "Total number of orders settled by the broker",
	},
	[]string{"side"},
)

// PendingOrders tracks the number of pending orders seen at the last tick.
var PendingOrders = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "stonks_pending_orders",
		Help: "Number of pending orders observed at the last settlement tick",
	},
)

// QuoteFetchFailures counts quote requests that failed after all retries.
var QuoteFetchFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "stonks_quote_fetch_failures_total",
		Help: "Total number of quote fetches that exhausted their retries",
	},
	[]string{"symbol"},
)

// SettlementErrors counts per-order settlement failures left for the next tick.
var SettlementErrors = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "stonks_settlement_errors_total",
		Help: "Total number of per-order settlement errors",
	},
)

func init() {
	prometheus.MustRegister(
		SettlementTicks,
		OrdersSettled,
		PendingOrders,
		QuoteFetchFailures,
		SettlementErrors,
	)
}
