// Package metrics exposes Prometheus counters for the request lifecycle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blood_requests_created_total",
		Help: "Number of blood requests created.",
	})

	ResponsesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blood_request_responses_total",
		Help: "Donor responses by result (recorded, duplicate, incompatible, rejected).",
	}, []string{"result"})

	RequestsFulfilled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blood_requests_fulfilled_total",
		Help: "Number of blood requests fulfilled.",
	})

	RequestsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blood_requests_cancelled_total",
		Help: "Number of blood requests cancelled.",
	})

	RequestsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blood_requests_expired_total",
		Help: "Number of blood requests expired by the sweep.",
	})

	SweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "expiry_sweep_runs_total",
		Help: "Expiry sweep executions by outcome.",
	}, []string{"outcome"})
)
