// Package sweeper runs the periodic expiry sweep that transitions overdue
// active blood requests to expired. Respond/accept re-validate liveness
// against the wall clock themselves, so correctness does not depend on the
// sweep cadence; the sweep keeps stored state and listings honest.
package sweeper

import (
	"context"
	"log"
	"time"

	"github.com/sony/gobreaker"

	"github.com/blood-link/request-matching-service/internal/adapters/metrics"
	"github.com/blood-link/request-matching-service/internal/config"
	"github.com/blood-link/request-matching-service/internal/core/domain"
	"github.com/blood-link/request-matching-service/internal/core/ports"
)

const (
	sweepTimeout = 30 * time.Second

	// Health check configuration
	healthCheckStaleThreshold = 5 * time.Minute
)

type Sweeper struct {
	requests  ports.RequestService
	interval  time.Duration
	dbCB      *gobreaker.CircuitBreaker
	lastSwept time.Time
	isHealthy bool
}

// NewSweeper creates an expiry sweeper running on the given interval.
func NewSweeper(requests ports.RequestService, interval time.Duration) *Sweeper {
	return &Sweeper{
		requests:  requests,
		interval:  interval,
		dbCB:      config.NewCircuitBreaker("Sweeper-PostgreSQL"),
		lastSwept: time.Now(),
		isHealthy: true,
	}
}

// IsHealthy returns true if the sweeper process is alive and responding.
// Liveness stays simple on purpose: an open circuit breaker is degraded but
// recoverable and should not get the pod killed.
func (s *Sweeper) IsHealthy() bool {
	return s.isHealthy
}

// IsReady returns true if the sweeper can reach the database and has swept
// recently (for readiness probes).
func (s *Sweeper) IsReady() bool {
	if s.dbCB.State() == gobreaker.StateOpen {
		return false
	}

	if time.Since(s.lastSwept) > healthCheckStaleThreshold {
		return false
	}

	return s.isHealthy
}

// Start runs the sweep loop until the context is cancelled. One sweep runs
// immediately so a restarted sweeper catches up on backlog without waiting
// a full interval.
func (s *Sweeper) Start(ctx context.Context) error {
	log.Printf("sweeper: expiring overdue requests every %s", s.interval)

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("sweeper: shutting down...")
			return ctx.Err()

		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	now := time.Now()

	expired, err := s.dbCB.Execute(func() (interface{}, error) {
		return s.requests.ExpireDue(ctx, now)
	})
	if err != nil {
		log.Printf("sweeper: sweep failed: %v", err)
		metrics.SweepRuns.WithLabelValues("error").Inc()
		s.isHealthy = false
		return
	}

	s.lastSwept = time.Now()
	s.isHealthy = true
	metrics.SweepRuns.WithLabelValues("ok").Inc()

	if requests, ok := expired.([]domain.BloodRequest); ok && len(requests) > 0 {
		metrics.RequestsExpired.Add(float64(len(requests)))
		log.Printf("sweeper: expired %d overdue request(s)", len(requests))
	}
}
