package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	depositsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "divvy_ledger_deposits_total",
			Help: "Total number of accepted deposits",
		},
		[]string{"venture"},
	)

	depositedAmountTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "divvy_ledger_deposited_amount_total",
			Help: "Total amount deposited into pending pools",
		},
		[]string{"venture"},
	)

	distributionsInitiatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "divvy_ledger_distributions_initiated_total",
			Help: "Total number of distributions opened",
		},
		[]string{"venture"},
	)

	distributionsSettledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "divvy_ledger_distributions_settled_total",
			Help: "Total number of distributions settled",
		},
		[]string{"venture"},
	)

	feeCollectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "divvy_ledger_fee_collected_total",
			Help: "Total protocol fee collected across all distributions",
		},
	)

	distributedAmountTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "divvy_ledger_distributed_amount_total",
			Help: "Total net revenue distributed to members",
		},
	)

	distributionMembers = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "divvy_ledger_distribution_members",
			Help:    "Number of members iterated per distribution",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	claimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "divvy_ledger_claims_total",
			Help: "Total number of successful vesting claims",
		},
		[]string{"venture"},
	)

	claimedAmountTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "divvy_ledger_claimed_amount_total",
			Help: "Total amount released through vesting claims",
		},
	)

	collabRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "divvy_ledger_collab_requests_total",
			Help: "Total number of collaborator service requests",
		},
		[]string{"endpoint", "status"},
	)

	collabRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "divvy_ledger_collab_request_duration_seconds",
			Help:    "Duration of collaborator service requests in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~41s
		},
		[]string{"endpoint"},
	)
)

// recordCollabRequest records metrics for a collaborator service request.
func recordCollabRequest(endpoint string, seconds float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	collabRequestsTotal.WithLabelValues(endpoint, status).Inc()
	collabRequestDuration.WithLabelValues(endpoint).Observe(seconds)
}
