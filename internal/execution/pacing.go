package execution

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ggonzalez94/rise-pilot/internal/logger"
)

// Pacer delays the start of an action by a random duration so accounts do
// not hit the chain in lockstep.
type Pacer struct {
	Min    time.Duration
	Max    time.Duration
	Logger *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPacer returns a pacer drawing from [min, max]. A nil rng uses the
// runtime-seeded global source.
func NewPacer(min, max time.Duration, rng *rand.Rand, log *slog.Logger) *Pacer {
	if max < min {
		min, max = max, min
	}
	return &Pacer{Min: min, Max: max, Logger: log, rng: rng}
}

// Draw picks a delay uniformly from [Min, Max].
func (p *Pacer) Draw() time.Duration {
	if p.Max <= p.Min {
		return p.Min
	}
	span := int64(p.Max-p.Min) + 1
	if p.rng == nil {
		return p.Min + time.Duration(rand.Int64N(span))
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Min + time.Duration(p.rng.Int64N(span))
}

// Wait sleeps for a drawn delay or until ctx is done, whichever comes first.
func (p *Pacer) Wait(ctx context.Context, tag string) (time.Duration, error) {
	delay := p.Draw()
	logger.Tagged(p.Logger, tag).Info("Sleeping before action", "delay", delay.Round(time.Millisecond).String())
	if delay <= 0 {
		return 0, ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return delay, ctx.Err()
	case <-timer.C:
		return delay, nil
	}
}
