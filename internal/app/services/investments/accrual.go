package investments

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mctcapital/invest_layer/internal/app/metrics"
	"github.com/mctcapital/invest_layer/pkg/logger"
)

// DefaultAccrualSchedule runs the accrual pass every six hours, on the hour.
const DefaultAccrualSchedule = "0 */6 * * *"

// PassReport summarizes one accrual pass over the open investments.
type PassReport struct {
	Examined  int `json:"examined"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// RunAccrualPass valuates every pending or active investment as of now,
// settling the ones that crossed their end date. A failure on one investment
// is logged and counted without aborting the pass.
func (s *Service) RunAccrualPass(ctx context.Context, now time.Time) (PassReport, error) {
	started := time.Now()

	open, err := s.store.ListOpenInvestments(ctx)
	if err != nil {
		return PassReport{}, fmt.Errorf("list open investments: %w", err)
	}

	var report PassReport
	for _, inv := range open {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Examined++
		_, settled, err := s.refresh(ctx, inv, now)
		if err != nil {
			report.Failed++
			s.log.WithError(err).
				WithField("investment_id", inv.ID).
				Warn("accrual pass: investment skipped")
			continue
		}
		if settled {
			report.Completed++
		}
	}

	metrics.ObserveAccrualPass(report.Examined, report.Completed, report.Failed, time.Since(started))
	s.log.WithField("examined", report.Examined).
		WithField("completed", report.Completed).
		WithField("failed", report.Failed).
		Info("accrual pass finished")
	return report, nil
}

// Runner drives periodic accrual passes on a cron schedule. It also runs one
// eager pass at startup so a restart never leaves valuations stale for a full
// interval.
type Runner struct {
	svc      *Service
	schedule string
	log      *logger.Logger

	mu      sync.Mutex
	running bool
	cron    *cron.Cron
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewRunner constructs an accrual runner. An empty schedule falls back to
// DefaultAccrualSchedule.
func NewRunner(svc *Service, schedule string, log *logger.Logger) *Runner {
	if schedule == "" {
		schedule = DefaultAccrualSchedule
	}
	if log == nil {
		log = logger.NewDefault("accrual")
	}
	return &Runner{svc: svc, schedule: schedule, log: log}
}

// Name implements system.Service.
func (r *Runner) Name() string { return "accrual-runner" }

// Start begins scheduled accrual passes and kicks off the eager catch-up
// pass in the background.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("accrual runner already started")
	}

	runCtx, cancel := context.WithCancel(context.Background())

	c := cron.New()
	_, err := c.AddFunc(r.schedule, func() {
		if _, err := r.svc.RunAccrualPass(runCtx, time.Now()); err != nil {
			r.log.WithError(err).Error("scheduled accrual pass failed")
		}
	})
	if err != nil {
		cancel()
		return fmt.Errorf("invalid accrual schedule %q: %w", r.schedule, err)
	}

	r.cron = c
	r.cancel = cancel
	r.running = true

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if _, err := r.svc.RunAccrualPass(runCtx, time.Now()); err != nil {
			r.log.WithError(err).Error("startup accrual pass failed")
		}
	}()

	c.Start()
	r.log.WithField("schedule", r.schedule).Info("accrual runner started")
	return nil
}

// Stop halts the schedule and waits for an in-flight pass to finish.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return nil
	}

	stopCtx := r.cron.Stop()
	r.cancel()
	r.running = false

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		<-stopCtx.Done()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.log.Info("accrual runner stopped")
	return nil
}
