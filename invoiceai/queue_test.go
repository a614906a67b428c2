package invoiceai

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"
)

func TestCallQueueEnforcesStartGap(t *testing.T) {
	const minDelay = 50 * time.Millisecond
	q := NewCallQueue(minDelay, nil)
	defer q.Close()

	var mu sync.Mutex
	var starts []time.Time

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := q.Enqueue(context.Background(), func(ctx context.Context) (string, error) {
				mu.Lock()
				starts = append(starts, time.Now())
				mu.Unlock()
				return "ok", nil
			})
			if err != nil {
				t.Errorf("enqueue failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if len(starts) != 5 {
		t.Fatalf("expected 5 call starts, got %d", len(starts))
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })
	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		if gap < minDelay-10*time.Millisecond {
			t.Fatalf("start gap %d too small: %s", i, gap)
		}
	}
}

func TestCallQueueFailureIsolation(t *testing.T) {
	q := NewCallQueue(time.Millisecond, nil)
	defer q.Close()

	boom := errors.New("boom")
	if _, err := q.Enqueue(context.Background(), func(ctx context.Context) (string, error) {
		return "", boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	// The queue keeps draining after a failed call.
	text, err := q.Enqueue(context.Background(), func(ctx context.Context) (string, error) {
		return "still alive", nil
	})
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if text != "still alive" {
		t.Fatalf("unexpected result: %q", text)
	}
}

func TestCallQueueHonorsContext(t *testing.T) {
	q := NewCallQueue(time.Millisecond, nil)
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := q.Enqueue(ctx, func(ctx context.Context) (string, error) {
		t.Error("cancelled call must not run")
		return "", nil
	}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for q.Pending() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected empty queue, pending=%d", q.Pending())
		}
		time.Sleep(time.Millisecond)
	}
}
