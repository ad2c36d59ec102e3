package compiler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestProcessOrderedDeliversInOrder(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}

	var got []int
	err := ProcessOrdered(context.Background(), items, 4,
		func(ctx context.Context, n int) (int, error) {
			// Reverse-ish delay so later items can finish producing first.
			time.Sleep(time.Duration(9-n) * time.Millisecond)
			return n * n, nil
		},
		func(r int) error {
			got = append(got, r)
			return nil
		},
	)
	if err != nil {
		t.Fatalf("ProcessOrdered: %v", err)
	}
	for i, v := range got {
		if v != i*i {
			t.Fatalf("consume order mismatch at %d: got %d, want %d", i, v, i*i)
		}
	}
}

func TestProcessOrderedPropagatesProduceError(t *testing.T) {
	items := []int{0, 1, 2}
	boom := errors.New("boom")

	err := ProcessOrdered(context.Background(), items, 2,
		func(ctx context.Context, n int) (int, error) {
			if n == 1 {
				return 0, boom
			}
			return n, nil
		},
		func(r int) error { return nil },
	)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom error, got %v", err)
	}
}

func TestProcessOrderedPropagatesConsumeError(t *testing.T) {
	items := []int{0, 1, 2}
	boom := errors.New("consume boom")

	err := ProcessOrdered(context.Background(), items, 2,
		func(ctx context.Context, n int) (int, error) { return n, nil },
		func(r int) error {
			if r == 1 {
				return boom
			}
			return nil
		},
	)
	if !errors.Is(err, boom) {
		t.Fatalf("expected consume boom error, got %v", err)
	}
}

func TestProcessOrderedRespectsWorkerLimit(t *testing.T) {
	items := make([]int, 20)
	for i := range items {
		items[i] = i
	}

	var current, max int32
	var mu sync.Mutex

	err := ProcessOrdered(context.Background(), items, 3,
		func(ctx context.Context, n int) (int, error) {
			c := atomic.AddInt32(&current, 1)
			mu.Lock()
			if int(c) > int(max) {
				max = int32(c)
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&current, -1)
			return n, nil
		},
		func(r int) error { return nil },
	)
	if err != nil {
		t.Fatalf("ProcessOrdered: %v", err)
	}
	if max > 3 {
		t.Fatalf("observed %d concurrent produce calls, want <= 3", max)
	}
}
