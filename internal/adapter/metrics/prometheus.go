// Package metrics exports settlement and HTTP metrics in Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Jamarblack/Degen-Arena/internal/core/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "arena"

// Metrics implements ports.SettlementMetrics and records HTTP traffic.
type Metrics struct {
	passes       prometheus.Counter
	passDuration prometheus.Histogram
	openWagers   prometheus.Gauge
	outcomes     *prometheus.CounterVec
	payouts      *prometheus.CounterVec
	paidSOL      prometheus.Counter
	skips        *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers every collector on reg. Pass prometheus.NewRegistry() in
// tests to keep registrations isolated.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "settlement", Name: "passes_total",
			Help: "Completed settlement passes.",
		}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "settlement", Name: "pass_duration_seconds",
			Help:    "Wall time of one settlement pass.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		openWagers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "settlement", Name: "open_wagers",
			Help: "Open wagers seen by the last pass.",
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "settlement", Name: "outcomes_total",
			Help: "Settled wagers by outcome.",
		}, []string{"outcome"}),
		payouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "payout", Name: "attempts_total",
			Help: "Payout attempts by result.",
		}, []string{"result"}),
		paidSOL: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "payout", Name: "sol_total",
			Help: "SOL paid out by confirmed transfers.",
		}),
		skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "settlement", Name: "skips_total",
			Help: "Expired wagers left open, by reason.",
		}, []string{"reason"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.passes, m.passDuration, m.openWagers, m.outcomes,
		m.payouts, m.paidSOL, m.skips, m.httpRequests, m.httpDuration,
	)
	return m
}

// ObservePass records one finished pass.
func (m *Metrics) ObservePass(report ports.PassReport, elapsed time.Duration) {
	m.passes.Inc()
	m.passDuration.Observe(elapsed.Seconds())
	m.openWagers.Set(float64(report.Pending + report.Skipped + report.Failed + report.Quarantined))
}

// ObserveOutcome counts a settled wager ("won" or "lost").
func (m *Metrics) ObserveOutcome(outcome string) {
	m.outcomes.WithLabelValues(outcome).Inc()
}

// ObservePayout counts a payout attempt; confirmed amounts add to the SOL total.
func (m *Metrics) ObservePayout(result string, amount decimal.Decimal) {
	m.payouts.WithLabelValues(result).Inc()
	if result == "confirmed" {
		m.paidSOL.Add(amount.InexactFloat64())
	}
}

// ObserveSkip counts an expired wager left open.
func (m *Metrics) ObserveSkip(reason string) {
	m.skips.WithLabelValues(reason).Inc()
}

// ObserveHTTP records one served request. route is the matched pattern, not
// the raw path.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
