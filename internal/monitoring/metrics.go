package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Fill metrics
	fillsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volume_bot_fills_total",
			Help: "Total number of fills reported by the venue",
		},
		[]string{"symbol", "side"},
	)

	volumeNotionalTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volume_bot_notional_total",
			Help: "Cumulative traded notional in quote currency",
		},
		[]string{"symbol"},
	)

	// Order lifecycle metrics
	ordersPlacedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volume_bot_orders_placed_total",
			Help: "Total number of orders acknowledged open",
		},
		[]string{"symbol", "side"},
	)

	ordersCancelledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volume_bot_orders_cancelled_total",
			Help: "Total number of orders taken off the book",
		},
		[]string{"symbol"},
	)

	ordersRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volume_bot_orders_rejected_total",
			Help: "Total number of submissions refused by the venue",
		},
		[]string{"symbol"},
	)

	openOrders = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "volume_bot_open_orders",
			Help: "Orders currently resting on the book",
		},
		[]string{"symbol", "side"},
	)

	// Market and risk metrics
	midPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "volume_bot_mid_price",
			Help: "Mid price of the quoted symbol",
		},
		[]string{"symbol"},
	)

	cumulativeLoss = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "volume_bot_cumulative_loss",
			Help: "Estimated cumulative loss in quote currency",
		},
		[]string{"symbol"},
	)

	cycleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "volume_bot_cycle_duration_seconds",
			Help:    "Duration of one full quote-refresh cycle",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"symbol"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volume_bot_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(fillsTotal)
	prometheus.MustRegister(volumeNotionalTotal)
	prometheus.MustRegister(ordersPlacedTotal)
	prometheus.MustRegister(ordersCancelledTotal)
	prometheus.MustRegister(ordersRejectedTotal)
	prometheus.MustRegister(openOrders)
	prometheus.MustRegister(midPrice)
	prometheus.MustRegister(cumulativeLoss)
	prometheus.MustRegister(cycleDuration)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordFill records one fill and its notional
func RecordFill(symbol, side string, notional float64) {
	fillsTotal.WithLabelValues(symbol, side).Inc()
	volumeNotionalTotal.WithLabelValues(symbol).Add(notional)
}

// RecordPlacement records an acknowledged order placement
func RecordPlacement(symbol, side string) {
	ordersPlacedTotal.WithLabelValues(symbol, side).Inc()
}

// RecordCycle records the outcome of one quote-refresh cycle
func RecordCycle(symbol string, cancelled, rejected int, took time.Duration) {
	ordersCancelledTotal.WithLabelValues(symbol).Add(float64(cancelled))
	ordersRejectedTotal.WithLabelValues(symbol).Add(float64(rejected))
	cycleDuration.WithLabelValues(symbol).Observe(took.Seconds())
}

// UpdateOpenOrders updates the resting-order gauges
func UpdateOpenOrders(symbol string, buys, sells int) {
	openOrders.WithLabelValues(symbol, "Buy").Set(float64(buys))
	openOrders.WithLabelValues(symbol, "Sell").Set(float64(sells))
}

// UpdateMidPrice updates the mid price gauge
func UpdateMidPrice(symbol string, mid float64) {
	midPrice.WithLabelValues(symbol).Set(mid)
}

// UpdateLoss updates the cumulative loss gauge
func UpdateLoss(symbol string, loss float64) {
	cumulativeLoss.WithLabelValues(symbol).Set(loss)
}

// RecordError records an error metric
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}
