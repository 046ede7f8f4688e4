package execution

import (
	"context"
	"errors"
	"testing"
	"time"

	clierr "github.com/ggonzalez94/rise-pilot/internal/errors"
	"github.com/ggonzalez94/rise-pilot/internal/execution/chaintest"
	"github.com/ggonzalez94/rise-pilot/internal/logger"
)

func TestSessionsWithRunsCallbackAndReleases(t *testing.T) {
	fake, chain := newTestChain(t)
	limiter := NewLimiter(1)
	sessions := NewSessions(chain, limiter, time.Second, logger.Discard())

	called := false
	err := sessions.With(context.Background(), nil, "#1 > test", func(s *Session) error {
		called = true
		if s.ChainID.Int64() != testChainID {
			t.Fatalf("unexpected session chain id %s", s.ChainID)
		}
		if limiter.TryAcquire() {
			t.Fatal("expected permit to be held during the session")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("With failed: %v", err)
	}
	if !called {
		t.Fatal("expected callback to run")
	}
	if !limiter.TryAcquire() {
		t.Fatal("expected permit to be released")
	}
	if fake.Calls("eth_chainId") != 1 {
		t.Fatalf("expected one chain id check, got %d", fake.Calls("eth_chainId"))
	}
}

func TestSessionsWithChainMismatch(t *testing.T) {
	fake := chaintest.New(t, 1)
	_, chain := newTestChain(t)
	chain = chain.WithRPCURL(fake.URL)
	limiter := NewLimiter(1)
	sessions := NewSessions(chain, limiter, time.Second, logger.Discard())

	err := sessions.With(context.Background(), nil, "#1 > test", func(*Session) error {
		t.Fatal("callback must not run on chain mismatch")
		return nil
	})
	if !clierr.HasCode(err, clierr.CodeChainMismatch) {
		t.Fatalf("expected chain mismatch, got %v", err)
	}
	if !limiter.TryAcquire() {
		t.Fatal("expected permit to be released after mismatch")
	}
}

func TestSessionsWithUnreachableEndpoint(t *testing.T) {
	fake, chain := newTestChain(t)
	fake.Close()
	limiter := NewLimiter(1)
	sessions := NewSessions(chain, limiter, time.Second, logger.Discard())

	err := sessions.With(context.Background(), nil, "#1 > test", func(*Session) error { return nil })
	if !clierr.HasCode(err, clierr.CodeUnavailable) {
		t.Fatalf("expected connectivity error, got %v", err)
	}
	if !limiter.TryAcquire() {
		t.Fatal("expected permit to be released after dial failure")
	}
}

func TestSessionsWithPropagatesCallbackErrorAndPanic(t *testing.T) {
	_, chain := newTestChain(t)
	limiter := NewLimiter(1)
	sessions := NewSessions(chain, limiter, time.Second, logger.Discard())

	boom := errors.New("boom")
	if err := sessions.With(context.Background(), nil, "#1 > test", func(*Session) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_ = sessions.With(context.Background(), nil, "#1 > test", func(*Session) error { panic("kaboom") })
	}()
	if !limiter.TryAcquire() {
		t.Fatal("expected permit to be released after panic")
	}
}

func TestSessionsWithWaitsForPermit(t *testing.T) {
	_, chain := newTestChain(t)
	limiter := NewLimiter(1)
	sessions := NewSessions(chain, limiter, time.Second, logger.Discard())
	_ = limiter.Acquire(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := sessions.With(ctx, nil, "#1 > test", func(*Session) error { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected to time out waiting for a permit, got %v", err)
	}
	limiter.Release()
}
