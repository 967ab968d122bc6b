// Package scheduler implements the Scheduler (C6): a polling drain of the
// durable trigger store, run under a distributed process lock so only one
// replica's poll cycle is active at a time, firing due jobs through a
// bounded worker pool.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"golang.org/x/time/rate"

	"github.com/hee-tis/trainee-notifications/internal/trainee/application/dispatch"
	"github.com/hee-tis/trainee-notifications/internal/trainee/domain"
	"github.com/hee-tis/trainee-notifications/internal/trainee/infrastructure/resilience"
	"github.com/hee-tis/trainee-notifications/pkg/logger"
	pkgresilience "github.com/hee-tis/trainee-notifications/pkg/resilience"
)

const lockName = "trainee_notification_scheduler"

// Config tunes the poll cadence and the bounded worker pool that drains it.
type Config struct {
	OwnerID           string
	PollInterval      time.Duration
	BatchSize         int
	LeaseTTL          time.Duration
	WorkerConcurrency int
	TransportRate     rate.Limit
	TransportBurst    int
	Retry             resilience.RetryConfig
}

// DefaultConfig returns sensible defaults; ownerID should be unique per
// replica (hostname + pid is typical) so lease/lock ownership is
// attributable.
func DefaultConfig(ownerID string) Config {
	return Config{
		OwnerID:           ownerID,
		PollInterval:      15 * time.Second,
		BatchSize:         100,
		LeaseTTL:          2 * time.Minute,
		WorkerConcurrency: 10,
		TransportRate:     rate.Limit(20),
		TransportBurst:    20,
		Retry:             resilience.DefaultRetryConfig(),
	}
}

// Scheduler wraps gocron and coordinates draining due ScheduledJobs.
type Scheduler struct {
	cron      gocron.Scheduler
	jobs      domain.JobRepository
	histories domain.HistoryRepository
	locks     domain.ProcessLockRepository
	worker    *dispatch.Worker
	bulkhead  *pkgresilience.Bulkhead
	limiter   *rate.Limiter
	retryer   *resilience.Retryer
	log       *logger.Logger
	config    Config
}

// New creates a Scheduler. Call Start to begin polling.
func New(
	jobs domain.JobRepository,
	histories domain.HistoryRepository,
	locks domain.ProcessLockRepository,
	worker *dispatch.Worker,
	log *logger.Logger,
	config Config,
) (*Scheduler, error) {
	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	bulkhead := pkgresilience.NewBulkhead(pkgresilience.BulkheadConfig{
		Name:          "dispatch-worker-pool",
		MaxConcurrent: config.WorkerConcurrency,
	})

	return &Scheduler{
		cron:      cron,
		jobs:      jobs,
		histories: histories,
		locks:     locks,
		worker:    worker,
		bulkhead:  bulkhead,
		limiter:   rate.NewLimiter(config.TransportRate, config.TransportBurst),
		retryer:   resilience.NewRetryer(config.Retry),
		log:       log,
		config:    config,
	}, nil
}

// Start drains any backlog accumulated while this replica was down, then
// begins the recurring poll tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.drainDue(ctx); err != nil {
		s.log.Error().Err(err).Msg("initial trigger drain failed")
	}

	_, err := s.cron.NewJob(
		gocron.DurationJob(s.config.PollInterval),
		gocron.NewTask(func() {
			if err := s.drainDue(context.Background()); err != nil {
				s.log.Error().Err(err).Msg("trigger poll failed")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule trigger poll: %w", err)
	}

	s.cron.Start()
	s.log.Info().Dur("interval", s.config.PollInterval).Msg("scheduler started")
	return nil
}

// Stop gracefully shuts down the underlying gocron scheduler.
func (s *Scheduler) Stop() error {
	if err := s.cron.Shutdown(); err != nil {
		return fmt.Errorf("scheduler shutdown error: %w", err)
	}
	return nil
}

// drainDue claims the process lock, lists the due backlog and fires each job
// through the bounded worker pool. A failed lock acquisition is not an
// error: another replica already owns this poll cycle.
func (s *Scheduler) drainDue(ctx context.Context) error {
	acquired, err := s.locks.Acquire(ctx, lockName, s.config.OwnerID, s.config.PollInterval*4)
	if err != nil {
		return fmt.Errorf("failed to acquire scheduler lock: %w", err)
	}
	if !acquired {
		return nil
	}
	defer func() {
		if err := s.locks.Release(ctx, lockName, s.config.OwnerID); err != nil {
			s.log.Error().Err(err).Msg("failed to release scheduler lock")
		}
	}()

	due, err := s.jobs.FindDue(ctx, time.Now().UTC(), s.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to list due jobs: %w", err)
	}

	var wg sync.WaitGroup
	for _, job := range due {
		job := job
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.bulkhead.ExecuteWithContext(ctx, func(ctx context.Context) error {
				return s.fire(ctx, job.JobID)
			}); err != nil {
				s.log.Error().Err(err).Str("job_id", job.JobID).Msg("job dispatch failed")
			}
		}()
	}
	wg.Wait()
	return nil
}

// fire leases jobID, resolves its History row and runs it through the
// Dispatch Worker, retrying transient failures per §7 before marking the
// job FIRED regardless of the final outcome: a permanent failure is
// recorded on the History row itself, not by re-firing the trigger.
func (s *Scheduler) fire(ctx context.Context, jobID string) error {
	leased, err := s.jobs.Lease(ctx, jobID, s.config.OwnerID, s.config.LeaseTTL)
	if err != nil {
		return fmt.Errorf("failed to lease job %s: %w", jobID, err)
	}
	if leased == nil {
		return nil
	}

	h, err := s.histories.FindByID(ctx, leased.HistoryID)
	if err != nil {
		return fmt.Errorf("failed to load history %s for job %s: %w", leased.HistoryID.String(), jobID, err)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	payload := dispatch.JobPayload{
		PersonID:  h.Recipient.TraineeID,
		TisID:     leased.Reference.ID,
		Reference: leased.Reference,
		Variables: h.Template.Variables,
	}

	dispatchErr := s.retryer.Do(ctx, func(ctx context.Context) error {
		return s.worker.Dispatch(ctx, h, payload)
	})

	if err := s.jobs.MarkFired(ctx, leased.JobID, s.config.OwnerID); err != nil {
		s.log.Error().Err(err).Str("job_id", jobID).Msg("failed to mark job fired")
	}

	return dispatchErr
}
