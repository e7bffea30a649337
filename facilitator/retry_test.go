package facilitator

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"
)

func TestWithChainReadRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0
	result, err := withChainReadRetry(context.Background(), defaultChainReadBackoff, func() (*big.Int, error) {
		calls++
		return big.NewInt(42), nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("result = %s, want 42", result)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestWithChainReadRetryRecoversAfterTransientErrors(t *testing.T) {
	calls := 0
	b := chainReadBackoff{maxAttempts: 3, initialDelay: time.Millisecond, maxDelay: 10 * time.Millisecond, multiplier: 2.0}

	result, err := withChainReadRetry(context.Background(), b, func() (*big.Int, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("transient RPC error")
		}
		return big.NewInt(7), nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Cmp(big.NewInt(7)) != 0 {
		t.Fatalf("result = %s, want 7", result)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestWithChainReadRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	b := chainReadBackoff{maxAttempts: 2, initialDelay: time.Millisecond, maxDelay: 10 * time.Millisecond, multiplier: 2.0}

	_, err := withChainReadRetry(context.Background(), b, func() (*big.Int, error) {
		calls++
		return nil, errors.New("persistent RPC error")
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestWithChainReadRetryRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := withChainReadRetry(ctx, defaultChainReadBackoff, func() (*big.Int, error) {
		calls++
		return nil, errors.New("rpc error")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected 0 calls, got %d", calls)
	}
}
