package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoVal_FirstAttemptSucceeds(t *testing.T) {
	var calls int
	val, err := DoVal(context.Background(), FixedRetryConfig(3, time.Millisecond), func(_ context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "ok" || calls != 1 {
		t.Errorf("val=%q calls=%d", val, calls)
	}
}

func TestDoVal_RetriesTransientThenSucceeds(t *testing.T) {
	var calls int
	val, err := DoVal(context.Background(), FixedRetryConfig(3, time.Millisecond), func(_ context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, NewTransientError(errors.New("overloaded"), 529)
		}
		return 7, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != 7 || calls != 3 {
		t.Errorf("val=%d calls=%d", val, calls)
	}
}

func TestDoVal_ExhaustsBudget(t *testing.T) {
	var calls int
	_, err := DoVal(context.Background(), FixedRetryConfig(3, time.Millisecond), func(_ context.Context) (int, error) {
		calls++
		return 0, NewTransientError(errors.New("still down"), 503)
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoVal_FatalErrorStopsImmediately(t *testing.T) {
	var calls int
	_, err := DoVal(context.Background(), FixedRetryConfig(3, time.Millisecond), func(_ context.Context) (int, error) {
		calls++
		return 0, NewFatalError(errors.New("invalid api key"), 401)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("fatal error must not consume retry budget, got %d calls", calls)
	}
	if !IsFatal(err) {
		t.Error("expected fatal error in chain")
	}
}

func TestDoVal_ContextCancelStopsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	_, err := DoVal(ctx, FixedRetryConfig(5, 50*time.Millisecond), func(_ context.Context) (int, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return 0, NewTransientError(errors.New("fail"), 500)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls > 3 {
		t.Errorf("expected retries to stop after cancel, got %d calls", calls)
	}
}

func TestFixedRetryConfig_NoBackoffGrowth(t *testing.T) {
	cfg := applyDefaults(FixedRetryConfig(3, 5*time.Second))
	for attempt := 0; attempt < 3; attempt++ {
		if d := computeBackoff(attempt, cfg); d != 5*time.Second {
			t.Errorf("attempt %d: expected fixed 5s delay, got %s", attempt, d)
		}
	}
}

func TestDo_DelegatesToDoVal(t *testing.T) {
	var calls int
	err := Do(context.Background(), FixedRetryConfig(2, time.Millisecond), func(_ context.Context) error {
		calls++
		if calls == 1 {
			return NewTransientError(errors.New("blip"), 500)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}
