// Package maintenance runs periodic housekeeping against the event store.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/webhookcatcher/internal/logfields"
	"git.home.luguber.info/inful/webhookcatcher/internal/metrics"
)

// jobTimeout bounds a single housekeeping run.
const jobTimeout = 30 * time.Second

// Job names.
const (
	JobRefreshGauge = "refresh-stored-events"
	JobOptimize     = "sqlite-optimize"
)

// Store is the part of the event store maintenance needs.
type Store interface {
	Count(ctx context.Context) (int64, error)
	Optimize(ctx context.Context) error
}

// Scheduler wraps gocron scheduler for managing periodic tasks.
type Scheduler struct {
	scheduler gocron.Scheduler
	store     Store
	recorder  metrics.Recorder
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(store Store, recorder metrics.Recorder) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: s,
		store:     store,
		recorder:  metrics.OrNoop(recorder),
	}, nil
}

// Schedule registers the housekeeping jobs to run every interval.
// The gauge refresh also runs once immediately.
func (s *Scheduler) Schedule(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("maintenance interval must be positive, got %s", interval)
	}

	if _, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.RefreshGauge),
		gocron.WithName(JobRefreshGauge),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	); err != nil {
		return fmt.Errorf("failed to create %s job: %w", JobRefreshGauge, err)
	}

	if _, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.Optimize),
		gocron.WithName(JobOptimize),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return fmt.Errorf("failed to create %s job: %w", JobOptimize, err)
	}

	return nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	slog.Info("Starting maintenance scheduler", slog.Int("jobs", len(s.scheduler.Jobs())))
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping maintenance scheduler")
	return s.scheduler.Shutdown()
}

// RefreshGauge publishes the current event count.
func (s *Scheduler) RefreshGauge() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.store.Count(ctx)
	if err != nil {
		slog.Warn("Failed to count stored events", logfields.Job(JobRefreshGauge), logfields.Error(err))
		return
	}
	s.recorder.SetStoredEvents(n)
	slog.Debug("Refreshed stored event gauge", logfields.Job(JobRefreshGauge), logfields.Count(n))
}

// Optimize lets the database refresh its planner statistics.
func (s *Scheduler) Optimize() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	if err := s.store.Optimize(ctx); err != nil {
		slog.Warn("Store optimize failed", logfields.Job(JobOptimize), logfields.Error(err))
		return
	}
	slog.Debug("Store optimized", logfields.Job(JobOptimize), logfields.DurationMS(time.Since(start).Milliseconds()))
}
