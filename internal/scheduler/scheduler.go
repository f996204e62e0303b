package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/hdx-scraper-peacesecurity/internal/peacesecurity"
)

// Runner executes one scraper run.
type Runner interface {
	Run(ctx context.Context) (*peacesecurity.RunReport, error)
}

// Scheduler periodically runs the scraper. Runs never overlap.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	interval  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Scheduler.
func New(interval time.Duration, runner Runner) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: s,
		runner:    runner,
		interval:  interval,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start schedules the periodic job and starts the underlying scheduler. The
// first run starts immediately.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	_, err := s.scheduler.Every(interval).Do(s.runOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) runOnce() {
	log.Println("scheduler: running peace and security job")

	report, err := s.runner.Run(s.ctx)
	if err != nil {
		log.Printf("scheduler: run failed: %v", err)
		return
	}
	log.Printf("scheduler: completed batch %s, %d published, %d skipped",
		report.Batch, len(report.Published), len(report.Skipped))
}

// Stop cancels the running job and stops the scheduler.
func (s *Scheduler) Stop() {
	s.cancel()
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
