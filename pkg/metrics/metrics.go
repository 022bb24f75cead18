package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthorizationDecisions counts gate outcomes (allowed|not_member|denied|error).
	AuthorizationDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenancy_authorization_decisions_total",
			Help: "Total number of organization authorization decisions",
		},
		[]string{"result"},
	)

	// MembershipMutations counts guarded membership changes by operation and result.
	MembershipMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenancy_membership_mutations_total",
			Help: "Total number of membership mutations",
		},
		[]string{"operation", "result"},
	)

	// MaintenanceRuns counts background maintenance job executions by job and result.
	MaintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenancy_maintenance_runs_total",
			Help: "Total number of maintenance job runs",
		},
		[]string{"job", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tenancy_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
