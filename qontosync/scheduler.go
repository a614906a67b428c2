package qontosync

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ateliernord/finops_backend/config"
)

// Scheduler runs named tasks after a delay. Classification of freshly
// synced invoices is staggered through it so the document-model call queue
// fills gradually instead of all at once when a sync run lands. Tasks run
// on their own goroutine; a panic or error in one task never affects the
// others.
type Scheduler struct {
	logger *logrus.Logger

	mu      sync.Mutex
	wg      sync.WaitGroup
	pending int
	closed  bool
}

func NewScheduler(logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = config.GetLogger()
	}
	return &Scheduler{logger: logger}
}

// Schedule queues task to run after delay. A cancelled ctx discards the
// task before it starts; an already-running task is not interrupted.
// Returns false if the scheduler has been closed.
func (s *Scheduler) Schedule(ctx context.Context, name string, delay time.Duration, task func(ctx context.Context) error) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.pending++
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			s.pending--
			s.mu.Unlock()
		}()
		defer func() {
			if r := recover(); r != nil {
				s.logger.WithFields(logrus.Fields{
					"module": "qontosync",
					"func":   "Scheduler.Schedule",
					"task":   name,
					"panic":  r,
				}).Error("scheduled task panicked")
			}
		}()

		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			s.logger.WithFields(logrus.Fields{
				"module": "qontosync",
				"task":   name,
			}).Info("scheduled task cancelled before start")
			return
		case <-timer.C:
		}

		if err := task(ctx); err != nil {
			config.LogError(s.logger, "qontosync", "Scheduler.Schedule", "scheduled task failed", map[string]interface{}{
				"task": name,
			}, err)
		}
	}()
	return true
}

// Pending reports how many scheduled tasks have not finished yet.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Wait blocks until every scheduled task has finished. Intended for
// one-shot runners and tests; the long-running server never calls it.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Close stops accepting new tasks and waits for in-flight ones.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}
