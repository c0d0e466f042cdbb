package gate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestInMemoryAcquireRelease(t *testing.T) {
	g := NewInMemory(time.Second)
	ctx := context.Background()

	release, err := g.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	release()

	release, err = g.Acquire(ctx)
	if err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
	release()
}

func TestInMemoryBusyAfterWait(t *testing.T) {
	g := NewInMemory(50 * time.Millisecond)
	ctx := context.Background()

	release, err := g.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	start := time.Now()
	if _, err := g.Acquire(ctx); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if time.Since(start) < 50*time.Millisecond {
		t.Fatalf("gave up before the wait window elapsed")
	}
}

func TestInMemoryContextCancel(t *testing.T) {
	g := NewInMemory(time.Minute)
	release, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := g.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline, got %v", err)
	}
}

func TestInMemorySerializesHolders(t *testing.T) {
	g := NewInMemory(time.Second)
	var holders int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := g.Acquire(context.Background())
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			defer release()
			if n := atomic.AddInt32(&holders, 1); n != 1 {
				t.Errorf("%d goroutines inside the gate at once", n)
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&holders, -1)
		}()
	}
	wg.Wait()
}
