package fetch

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLimiterLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func TestAcquire_FirstCallNeverBlocks(t *testing.T) {
	rl := NewRateLimiter(5*time.Second, testLimiterLogger())

	start := time.Now()
	if err := rl.Acquire(context.Background()); err != nil {
		t.Fatalf("first Acquire returned error: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed > 100*time.Millisecond {
		t.Errorf("first Acquire took %v, expected immediate return", elapsed)
	}
}

func TestAcquire_EnforcesMinimumSpacing(t *testing.T) {
	delay := 100 * time.Millisecond
	rl := NewRateLimiter(delay, testLimiterLogger())
	ctx := context.Background()

	// Three sequential acquisitions: the second and third must each wait,
	// so total elapsed is at least 2x the delay.
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := rl.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d returned error: %v", i, err)
		}
	}
	elapsed := time.Since(start)

	if elapsed < 2*delay {
		t.Errorf("3 acquisitions took %v, expected at least %v", elapsed, 2*delay)
	}
}

func TestAcquire_ZeroDelayNeverBlocks(t *testing.T) {
	rl := NewRateLimiter(0, testLimiterLogger())
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 10; i++ {
		if err := rl.Acquire(ctx); err != nil {
			t.Fatalf("Acquire returned error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("10 zero-delay acquisitions took %v, expected immediate", elapsed)
	}
}

func TestAcquire_RespectsContextCancellation(t *testing.T) {
	rl := NewRateLimiter(5*time.Second, testLimiterLogger())

	// Consume the free first slot so the next Acquire must wait
	if err := rl.Acquire(context.Background()); err != nil {
		t.Fatalf("priming Acquire returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := rl.Acquire(ctx)
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("Acquire with cancelled context returned nil error")
	}
	if elapsed > time.Second {
		t.Errorf("cancelled Acquire took %v, expected prompt return", elapsed)
	}
}

func TestAcquire_ConcurrentCallersSerialize(t *testing.T) {
	delay := 50 * time.Millisecond
	rl := NewRateLimiter(delay, testLimiterLogger())
	ctx := context.Background()

	const callers = 4
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := rl.Acquire(ctx); err != nil {
				t.Errorf("concurrent Acquire returned error: %v", err)
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	// First caller is free; the remaining three must each get a later slot.
	if elapsed < time.Duration(callers-1)*delay {
		t.Errorf("%d concurrent acquisitions took %v, expected at least %v",
			callers, elapsed, time.Duration(callers-1)*delay)
	}
}

func TestDelay_ReportsConfiguredSpacing(t *testing.T) {
	rl := NewRateLimiter(250*time.Millisecond, testLimiterLogger())
	if got := rl.Delay(); got != 250*time.Millisecond {
		t.Errorf("Delay() = %v, want 250ms", got)
	}
}
