// Package scheduler drives the collection daemon: one cron-triggered
// goroutine per enabled job, bounded by max_concurrent_jobs and
// job_max_instances, with graceful drain on shutdown. Ticks that fire while
// a job is at its instance cap coalesce into a single skipped warning
// rather than queueing up.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"satcoverage/internal/config"
	"satcoverage/internal/logger"
)

// JobFunc runs one collection job to completion.
type JobFunc func(ctx context.Context, job config.CollectionJobConfig) error

// Scheduler wraps a cron engine and a bounded worker pool.
type Scheduler struct {
	cron      *cron.Cron
	execute   JobFunc
	coalesce  bool
	maxPerJob int
	globalSem *semaphore.Weighted

	mu       sync.Mutex
	inFlight map[string]int

	group    *errgroup.Group
	groupCtx context.Context
}

// New builds a Scheduler from a validated SchedulerConfig. execute is called
// once per triggered job invocation.
func New(cfg *config.SchedulerConfig, execute JobFunc) (*Scheduler, error) {
	ctx := context.Background()
	group, groupCtx := errgroup.WithContext(ctx)

	s := &Scheduler{
		cron:      cron.New(),
		execute:   execute,
		coalesce:  cfg.JobCoalesce,
		maxPerJob: cfg.JobMaxInstances,
		globalSem: semaphore.NewWeighted(int64(cfg.MaxConcurrentJobs)),
		inFlight:  make(map[string]int),
		group:     group,
		groupCtx:  groupCtx,
	}

	for _, job := range cfg.Jobs {
		if !job.EnabledOrDefault() {
			logger.Info("scheduler", fmt.Sprintf("skipping disabled job: %s", job.Name))
			continue
		}
		if err := s.addJob(job); err != nil {
			return nil, fmt.Errorf("scheduler: add job %s: %w", job.Name, err)
		}
	}
	return s, nil
}

func (s *Scheduler) addJob(job config.CollectionJobConfig) error {
	expr, err := cronExpression(job.Schedule)
	if err != nil {
		return err
	}
	_, err = s.cron.AddFunc(expr, func() { s.runJob(job) })
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	logger.Info("scheduler", fmt.Sprintf("added job %s with schedule %s (%s)", job.Name, job.Schedule.Type, expr))
	return nil
}

// runJob is invoked by cron on every tick. It enforces job_max_instances by
// skipping the tick (coalescing) when the job is already running at its
// instance cap. It then tries the global max_concurrent_jobs semaphore
// without waiting: if every slot is taken the tick is dropped with a
// warning and is not queued for later.
func (s *Scheduler) runJob(job config.CollectionJobConfig) {
	s.mu.Lock()
	if s.inFlight[job.Name] >= s.maxPerJob {
		s.mu.Unlock()
		if s.coalesce {
			logger.Warn("scheduler", fmt.Sprintf("job %s still running, coalescing this tick", job.Name))
		}
		return
	}
	s.inFlight[job.Name]++
	s.mu.Unlock()

	if !s.globalSem.TryAcquire(1) {
		logger.Warn("scheduler", fmt.Sprintf("job %s skipped: max_concurrent_jobs reached", job.Name))
		s.mu.Lock()
		s.inFlight[job.Name]--
		s.mu.Unlock()
		return
	}

	s.group.Go(func() error {
		defer s.globalSem.Release(1)
		defer func() {
			s.mu.Lock()
			s.inFlight[job.Name]--
			s.mu.Unlock()
		}()
		// A panicking job is a job-level failure, not a daemon crash.
		defer func() {
			if r := recover(); r != nil {
				logger.Error("scheduler", fmt.Sprintf("job %s panicked: %v", job.Name, r))
			}
		}()

		logger.Info("scheduler", fmt.Sprintf("starting job %s", job.Name))
		if err := s.execute(s.groupCtx, job); err != nil {
			logger.Error("scheduler", fmt.Sprintf("job %s failed: %v", job.Name, err))
			return nil // one job's failure never cancels the group or other jobs
		}
		logger.Success("scheduler", fmt.Sprintf("job %s completed", job.Name))
		return nil
	})
}

// Start begins triggering jobs. It does not block.
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, entry := range s.cron.Entries() {
		logger.Info("scheduler", fmt.Sprintf("next run: %s", entry.Next))
	}
}

// Stop halts new triggers and waits for in-flight jobs to finish, bounded by
// ctx. Currently running jobs are always allowed to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()

	done := make(chan error, 1)
	go func() { done <- s.group.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
