package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/exGeni/free-proxy-telegram-bot/src/ingest"
	"github.com/exGeni/free-proxy-telegram-bot/src/logger"
	"github.com/exGeni/free-proxy-telegram-bot/src/metrics"
)

// DefaultInterval is the pause between two refreshes.
const DefaultInterval = 300 * time.Second

// Runner performs one refresh.
type Runner interface {
	Run(ctx context.Context) ingest.Report
}

// Scheduler runs the refresh right away and then on every tick until the
// context is cancelled or Stop is called. A failing or panicking run only
// costs that iteration.
type Scheduler struct {
	interval time.Duration
	runner   Runner
	metrics  *metrics.StatsdClient
	// OnReport, when set, receives every finished report.
	OnReport func(ingest.Report)

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func New(runner Runner, interval time.Duration, m *metrics.StatsdClient) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		interval: interval,
		runner:   runner,
		metrics:  m,
		stopChan: make(chan struct{}),
	}
}

// Start launches the loop in the background.
func (s *Scheduler) Start(ctx context.Context) {
	l := logger.WithComponent("Scheduler")
	l.Info().Dur("interval", s.interval).Msg("Scheduler starting...")

	s.wg.Add(1)
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	l := logger.WithComponent("Scheduler")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx)
		case <-ctx.Done():
			l.Info().Msg("Context done. Scheduler stopped.")
			return
		case <-s.stopChan:
			l.Info().Msg("Stop signal received. Scheduler stopped.")
			return
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	l := logger.WithComponent("Scheduler")
	defer func() {
		if r := recover(); r != nil {
			s.metrics.Inc("scheduler.panic")
			l.Error().
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("Refresh iteration panicked. Retrying on the next tick.")
		}
	}()

	if ctx.Err() != nil {
		return
	}
	report := s.runner.Run(ctx)
	if s.OnReport != nil {
		s.OnReport(report)
	}
}

// Stop ends the loop and waits for a running iteration to return.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
}
