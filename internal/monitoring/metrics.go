package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Engine runs
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradeengine_runs_total",
			Help: "Engine runs by outcome",
		},
		[]string{"outcome"},
	)

	runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tradeengine_run_duration_seconds",
			Help:    "Wall time of one load, size and persist cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Proposed trades
	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradeengine_proposed_trades_total",
			Help: "Proposed trades by side and sizing stage",
		},
		[]string{"side", "stage"},
	)

	clampsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradeengine_limit_clamps_total",
			Help: "Trades whose size was set by a risk limit",
		},
		[]string{"limit"},
	)

	// Portfolio state
	leverage = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tradeengine_portfolio_leverage",
			Help: "Leverage after applying the proposed trades",
		},
		[]string{"portfolio"},
	)

	// Errors
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradeengine_errors_total",
			Help: "Failed runs by error kind",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(runsTotal)
	prometheus.MustRegister(runDuration)
	prometheus.MustRegister(tradesTotal)
	prometheus.MustRegister(clampsTotal)
	prometheus.MustRegister(leverage)
	prometheus.MustRegister(errorsTotal)
}

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRun counts a finished run and observes its duration.
func RecordRun(success bool, seconds float64) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	runsTotal.WithLabelValues(outcome).Inc()
	runDuration.Observe(seconds)
}

// RecordTrade counts one proposed trade. limit is empty when no risk
// limit set the size.
func RecordTrade(side, stage, limit string) {
	tradesTotal.WithLabelValues(side, stage).Inc()
	if limit != "" {
		clampsTotal.WithLabelValues(limit).Inc()
	}
}

// UpdateLeverage sets the post-trade leverage gauge for a portfolio.
func UpdateLeverage(portfolio string, value float64) {
	leverage.WithLabelValues(portfolio).Set(value)
}

// RecordError counts a failed run under its error kind.
func RecordError(kind string) {
	errorsTotal.WithLabelValues(kind).Inc()
}
