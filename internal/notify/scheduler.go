package notify

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultInterval = 15 * time.Minute
	MinInterval     = time.Minute
)

// Scheduler runs scheduled checks on a fixed interval. A failed run is retried on the
// next tick only.
type Scheduler struct {
	pipeline *Pipeline
	interval time.Duration
	wg       sync.WaitGroup
}

func NewScheduler(pipeline *Pipeline, interval time.Duration) *Scheduler {
	if interval < MinInterval {
		interval = MinInterval
	}
	return &Scheduler{pipeline: pipeline, interval: interval}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()
	s.pipeline.log.Info("starting notification scheduler", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Initial check
	s.pipeline.RunCheck(ctx, ModeScheduled)

	for {
		select {
		case <-ctx.Done():
			s.pipeline.log.Info("notification scheduler shutting down")
			return
		case <-ticker.C:
			s.pipeline.RunCheck(ctx, ModeScheduled)
		}
	}
}

// Stop waits for the scheduler to exit; cancel the Start context first.
func (s *Scheduler) Stop() {
	s.wg.Wait()
}
