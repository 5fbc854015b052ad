package budget

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for the budget engine. Create it
// once per process; collectors register against the default registry.
type Metrics struct {
	decisions *prometheus.CounterVec
	spend     *prometheus.CounterVec
	usage     *prometheus.GaugeVec
}

// NewMetrics creates a Metrics instance with Prometheus collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		decisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptops_budget_admission_decisions_total",
				Help: "Total number of budget admission checks by decision reason",
			},
			[]string{"reason"},
		),
		spend: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptops_budget_spend_usd_total",
				Help: "Total USD recorded in the spend ledger",
			},
			[]string{"provider", "model"},
		),
		usage: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "promptops_budget_usage_fraction",
				Help: "Current month budget usage as a fraction (0.0-1.0)",
			},
			[]string{"org", "project"},
		),
	}
}

func (m *Metrics) observeDecision(reason string) {
	if m != nil {
		m.decisions.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) observeSpend(provider, model string, costUSD float64) {
	if m != nil {
		m.spend.WithLabelValues(provider, model).Add(costUSD)
	}
}

func (m *Metrics) observeUsage(org, project string, fraction float64) {
	if m != nil {
		m.usage.WithLabelValues(org, project).Set(fraction)
	}
}
