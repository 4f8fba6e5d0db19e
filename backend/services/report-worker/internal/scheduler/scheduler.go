// Package scheduler triggers a job once per calendar day at a wall-clock time by polling.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"waterreport/backend/services/report-worker/internal/models"
)

// Clock abstracts time so tests can drive the loop.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock returns the process clock.
func RealClock() Clock {
	return realClock{}
}

// Job is the daily work. It must return on its own; the scheduler never interrupts it.
type Job func(ctx context.Context)

// Scheduler runs Job at most once per day, checking every poll interval whether it is due.
type Scheduler struct {
	clock    Clock
	at       models.TimeOfDay
	interval time.Duration
	job      Job
	logger   *zap.Logger

	next    time.Time
	lastRun time.Time
}

// New builds a scheduler. A nil clock uses the process clock.
func New(at models.TimeOfDay, interval time.Duration, job Job, clock Clock, logger *zap.Logger) *Scheduler {
	if clock == nil {
		clock = RealClock()
	}
	return &Scheduler{
		clock:    clock,
		at:       at,
		interval: interval,
		job:      job,
		logger:   logger,
	}
}

// NextRun returns the first trigger strictly after now.
func NextRun(at models.TimeOfDay, now time.Time) time.Time {
	candidate := at.On(now)
	if candidate.After(now) {
		return candidate
	}
	return at.On(now.AddDate(0, 0, 1))
}

// Next returns the pending trigger time, zero before the first poll.
func (s *Scheduler) Next() time.Time {
	return s.next
}

// RunPending runs the job if it is due and reports whether it ran.
func (s *Scheduler) RunPending(ctx context.Context) bool {
	now := s.clock.Now()
	if s.next.IsZero() {
		s.next = NextRun(s.at, now)
		s.logger.Info("daily report scheduled", zap.Stringer("at", s.at), zap.Time("next_run", s.next))
	}
	if now.Before(s.next) {
		return false
	}
	// A trigger close to midnight can fire after the date rolled over; the following
	// trigger then waits for the next calendar day instead of running twice on one date.
	if !s.lastRun.IsZero() && sameDay(s.lastRun, now) {
		return false
	}

	started := now
	s.logger.Info("daily report started", zap.Time("scheduled_for", s.next))
	s.job(ctx)

	finished := s.clock.Now()
	s.lastRun = started
	next := NextRun(s.at, s.next)
	if !next.After(finished) {
		next = NextRun(s.at, finished)
	}
	s.next = next
	s.logger.Info("daily report finished",
		zap.Duration("took", finished.Sub(started)),
		zap.Time("next_run", s.next),
	)
	return true
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}

// Run polls until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		s.RunPending(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(s.interval):
		}
	}
}
