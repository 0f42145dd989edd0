package scheduler

import (
	"log"
	"time"

	"github.com/calleye/internal/alert"
)

// Scheduler drives recurring batch evaluation of all active alerts.
type Scheduler struct {
	evaluator *alert.Evaluator
	interval  time.Duration
	stopChan  chan struct{}
}

func New(evaluator *alert.Evaluator, interval time.Duration) *Scheduler {
	return &Scheduler{
		evaluator: evaluator,
		interval:  interval,
		stopChan:  make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.run()
		for {
			select {
			case <-ticker.C:
				s.run()
			case <-s.stopChan:
				return
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	close(s.stopChan)
}

func (s *Scheduler) run() {
	batch, err := s.evaluator.EvaluateAll()
	if err != nil {
		log.Printf("Error evaluating alerts: %v", err)
		return
	}
	log.Printf("Alert evaluation: total=%d triggered=%d not_triggered=%d skipped_cooldown=%d errors=%d",
		batch.Total, batch.Triggered, batch.NotTriggered, batch.SkippedCooldown, batch.Errors)
}
