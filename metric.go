package nameseed

import (
	"math/big"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const (
	MetricNameSpace = "nameseed"
)

var (
	registrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "registrations_total",
			Help:      "successful name registrations",
		},
		[]string{"suffix"},
	)
	renewalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "renewals_total",
			Help:      "successful name renewals",
		},
		[]string{"suffix"},
	)
	commitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "commits_total",
			Help:      "recorded commitments",
		},
	)
	treasuryBalance = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: MetricNameSpace,
			Name:      "treasury_balance_eth",
			Help:      "accumulated treasury balance",
		},
	)
)

func init() {
	prometheus.MustRegister(
		registrationsTotal,
		renewalsTotal,
		commitsTotal,
		treasuryBalance,
	)
}

func metricTreasuryBalance(bal *big.Int) {
	eth, _ := decimal.NewFromBigInt(bal, -18).Float64()
	treasuryBalance.Set(eth)
}
