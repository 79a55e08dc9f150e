package worker

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"rateservice/internal/service"
)

// Scheduler runs a full refresh cycle every interval. A failed cycle is logged and the
// schedule carries on; overlapping runs are rescheduled instead of stacking up.
type Scheduler struct {
	refresher service.Refresher
	interval  time.Duration
	log       *zap.SugaredLogger

	mu    sync.Mutex
	sched gocron.Scheduler
}

// NewScheduler creates a new Scheduler.
func NewScheduler(refresher service.Refresher, interval time.Duration, logger *zap.SugaredLogger) *Scheduler {
	return &Scheduler{refresher: refresher, interval: interval, log: logger}
}

// Start schedules the job, runs the first cycle right away and stops when ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	job := func(jobCtx context.Context) {
		execID := uuid.NewString()
		defer func() {
			if r := recover(); r != nil {
				s.log.Errorw("Scheduled refresh panicked", "exec_id", execID, "panic", r)
			}
		}()
		res, err := s.refresher.RunCycle(jobCtx, service.FilterAll)
		if err != nil {
			s.log.Errorw("Scheduled refresh failed", "exec_id", execID, "error", err)
			return
		}
		if !res.OK {
			s.log.Warnw("Scheduled refresh produced no rates", "exec_id", execID, "warnings", res.Warnings)
			return
		}
		s.log.Infow("Scheduled refresh done", "exec_id", execID, "pairs", res.UpdatedPairs, "warnings", len(res.Warnings))
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(job),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return err
	}

	s.mu.Lock()
	s.sched = scheduler
	s.mu.Unlock()

	scheduler.Start()
	s.log.Infow("Refresh scheduler started", "interval", s.interval.String())

	go func() {
		<-ctx.Done()
		if sdErr := s.Shutdown(); sdErr != nil {
			s.log.Errorw("Scheduler shutdown error", "error", sdErr)
		}
	}()
	return nil
}

// Shutdown stops the scheduler and waits for a running cycle. Safe to call more than once.
func (s *Scheduler) Shutdown() error {
	s.mu.Lock()
	sched := s.sched
	s.sched = nil
	s.mu.Unlock()

	if sched == nil {
		return nil
	}
	return sched.Shutdown()
}
