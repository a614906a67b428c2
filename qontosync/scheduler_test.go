package qontosync

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestSchedulerRunsAfterDelay(t *testing.T) {
	s := NewScheduler(logrus.New())
	defer s.Close()

	var ran int32
	start := time.Now()
	ok := s.Schedule(context.Background(), "test-task", 20*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})
	if !ok {
		t.Fatalf("schedule rejected")
	}
	s.Wait()

	if atomic.LoadInt32(&ran) != 1 {
		t.Fatalf("task did not run")
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("task ran too early: %s", elapsed)
	}
	if s.Pending() != 0 {
		t.Fatalf("pending should be 0, got %d", s.Pending())
	}
}

func TestSchedulerIsolatesFailures(t *testing.T) {
	s := NewScheduler(logrus.New())
	defer s.Close()

	var ran int32
	s.Schedule(context.Background(), "failing", time.Millisecond, func(ctx context.Context) error {
		return errors.New("boom")
	})
	s.Schedule(context.Background(), "healthy", time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})
	s.Wait()

	if atomic.LoadInt32(&ran) != 1 {
		t.Fatalf("healthy task must run despite sibling failure")
	}
}

func TestSchedulerDiscardsCancelledTask(t *testing.T) {
	s := NewScheduler(logrus.New())
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Schedule(ctx, "cancelled", time.Hour, func(ctx context.Context) error {
		t.Error("cancelled task must not run")
		return nil
	})
	s.Wait()
}

func TestSchedulerRejectsAfterClose(t *testing.T) {
	s := NewScheduler(logrus.New())
	s.Close()
	if s.Schedule(context.Background(), "late", time.Millisecond, func(ctx context.Context) error { return nil }) {
		t.Fatalf("closed scheduler must reject new tasks")
	}
}
