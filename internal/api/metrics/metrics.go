// Package metrics defines and registers the custom Prometheus metrics of the
// core auth service. Metrics are registered with the default registry on
// package initialisation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "coreauth"

// GateDecisionsTotal counts internal-gate evaluations.
// Label:
//   - result: "granted", "missing" (no header) or "mismatch" (wrong key)
var GateDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gate_decisions_total",
		Help:      "Total number of internal API key checks, by result.",
	},
	[]string{"result"},
)

// LoginAttemptsTotal counts credential validations.
// Label:
//   - result: "success", "invalid_credentials" or "error"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of credential validations, by result.",
	},
	[]string{"result"},
)

// SignupsTotal counts registration attempts that reached the service.
// Label:
//   - result: "created", "duplicate", "config_error" or "error"
var SignupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signups_total",
		Help:      "Total number of signup attempts, by result.",
	},
	[]string{"result"},
)
