package dispatch

import "github.com/prometheus/client_golang/prometheus"

// Prometheus dispatcher metrics.
var (
	attemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_attempts_total",
			Help: "Provider calls made by the dispatcher, by result.",
		},
		[]string{"result"},
	)
	outcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_outcomes_total",
			Help: "Completed dispatcher requests, by terminal outcome.",
		},
		[]string{"outcome"},
	)
	poolSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatch_credential_pool_size",
			Help: "Number of credentials in the active pool.",
		},
	)
)

func init() {
	prometheus.MustRegister(attemptsTotal)
	prometheus.MustRegister(outcomesTotal)
	prometheus.MustRegister(poolSize)
}

// Terminal outcomes recorded in dispatch_outcomes_total.
const (
	OutcomeSuccess       = "success"
	OutcomeEmpty         = "empty"
	OutcomeNoCredentials = "no_credentials"
	OutcomeExhausted     = "exhausted"
	OutcomeFatal         = "fatal"
)
