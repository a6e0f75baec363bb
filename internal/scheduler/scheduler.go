package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultSchedule fires every day at 21:00 UTC.
const DefaultSchedule = "0 21 * * *"

// Scheduler runs the daily usage report on a cron schedule.
type Scheduler struct {
	cron       *cron.Cron
	schedule   string
	log        logrus.FieldLogger
	ctx        context.Context
	cancel     context.CancelFunc
	mu         sync.Mutex
	entry      cron.EntryID
	reportFunc func(ctx context.Context) error
}

// New creates a scheduler for a standard five-field cron expression evaluated in UTC.
func New(schedule string, log logrus.FieldLogger) *Scheduler {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		schedule: schedule,
		log:      log.WithField("component", "scheduler"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *Scheduler) SetReportFunction(f func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reportFunc = f
}

// Start registers the report job and starts the cron loop. Without a
// report function it does nothing.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reportFunc == nil {
		s.log.Warn("report function not set, scheduler will not generate reports")
		return nil
	}
	if s.entry != 0 {
		return nil
	}

	id, err := s.cron.AddFunc(s.schedule, s.run)
	if err != nil {
		return err
	}
	s.entry = id
	s.cron.Start()
	s.log.WithField("schedule", s.schedule).Info("scheduler started")
	return nil
}

func (s *Scheduler) run() {
	s.mu.Lock()
	f := s.reportFunc
	s.mu.Unlock()
	s.log.Info("triggered daily report")
	if err := f(s.ctx); err != nil {
		s.log.WithError(err).Error("daily report failed")
	}
}

// Stop waits for a running job to finish and cancels its context.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}
