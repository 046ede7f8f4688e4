package execution

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/ggonzalez94/rise-pilot/internal/logger"
)

func TestPacerDrawWithinBounds(t *testing.T) {
	p := NewPacer(10*time.Millisecond, 60*time.Millisecond, rand.New(rand.NewPCG(1, 2)), logger.Discard())
	for i := 0; i < 1000; i++ {
		d := p.Draw()
		if d < p.Min || d > p.Max {
			t.Fatalf("draw %s outside [%s, %s]", d, p.Min, p.Max)
		}
	}
}

func TestPacerFixedDelay(t *testing.T) {
	p := NewPacer(15*time.Millisecond, 15*time.Millisecond, nil, logger.Discard())
	start := time.Now()
	slept, err := p.Wait(context.Background(), "#1 > test")
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if slept != 15*time.Millisecond {
		t.Fatalf("expected exact delay, got %s", slept)
	}
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Fatalf("returned after %s, before the delay elapsed", elapsed)
	}
}

func TestPacerWaitCancelled(t *testing.T) {
	p := NewPacer(time.Hour, time.Hour, nil, logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Wait(ctx, "#1 > test"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestNewPacerSwapsInvertedRange(t *testing.T) {
	p := NewPacer(2*time.Second, time.Second, nil, logger.Discard())
	if p.Min != time.Second || p.Max != 2*time.Second {
		t.Fatalf("unexpected range [%s, %s]", p.Min, p.Max)
	}
}
