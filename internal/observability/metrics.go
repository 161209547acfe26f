package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"coinflip-backend/internal/models"
)

// Metrics holds the Prometheus metrics for the coin flip service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Connects       *prometheus.CounterVec
	Bets           *prometheus.CounterVec
	BetsRejected   *prometheus.CounterVec
	Outcomes       *prometheus.CounterVec
	FundRequests   *prometheus.CounterVec
	NetworkChecks  *prometheus.CounterVec
	ActiveSessions prometheus.Gauge
	WalletCallDur  *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		Connects: f.NewCounterVec(prometheus.CounterOpts{
			Name: "coinflip_wallet_connects_total",
			Help: "Wallet connect attempts by final session status.",
		}, []string{"status"}),
		Bets: f.NewCounterVec(prometheus.CounterOpts{
			Name: "coinflip_bets_total",
			Help: "Accepted bets by chosen side.",
		}, []string{"choice"}),
		BetsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "coinflip_bets_rejected_total",
			Help: "Rejected bets by reason.",
		}, []string{"reason"}),
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "coinflip_outcomes_total",
			Help: "Resolved rounds by outcome.",
		}, []string{"outcome"}),
		FundRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "coinflip_fund_requests_total",
			Help: "Demo fund requests by result.",
		}, []string{"result"}),
		NetworkChecks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "coinflip_network_checks_total",
			Help: "Network checks by whether the wallet was on the target chain.",
		}, []string{"supported"}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "coinflip_play_sessions_active",
			Help: "Open play sessions.",
		}),
		WalletCallDur: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coinflip_wallet_call_duration_seconds",
			Help:    "Latency of wallet capability calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

func (m *Metrics) RecordConnect(status models.SessionStatus) {
	if m == nil {
		return
	}
	m.Connects.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) RecordBet(w models.Wager) {
	if m == nil {
		return
	}
	m.Bets.WithLabelValues(string(w.UserChoice)).Inc()
	if w.Resolved() {
		m.Outcomes.WithLabelValues(string(w.Outcome())).Inc()
	}
}

func (m *Metrics) RecordBetRejected(reason string) {
	if m == nil {
		return
	}
	m.BetsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordFundRequest(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.FundRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordNetworkCheck(supported bool) {
	if m == nil {
		return
	}
	label := "false"
	if supported {
		label = "true"
	}
	m.NetworkChecks.WithLabelValues(label).Inc()
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.ActiveSessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
}

func (m *Metrics) ObserveWalletCall(method string, seconds float64) {
	if m == nil {
		return
	}
	m.WalletCallDur.WithLabelValues(method).Observe(seconds)
}
