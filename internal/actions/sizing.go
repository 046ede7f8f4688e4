package actions

import (
	"fmt"
	"math"
	"math/big"
	"time"

	clierr "github.com/ggonzalez94/rise-pilot/internal/errors"
	"github.com/ggonzalez94/rise-pilot/internal/registry"
	"github.com/ggonzalez94/rise-pilot/internal/units"
)

const bpsDenominator = 10_000

// FractionRange is an inclusive share of a balance in basis points.
type FractionRange struct {
	MinBps int64
	MaxBps int64
}

// NewFractionRange converts [min, max] shares such as 0.2 and 0.4.
func NewFractionRange(min, max float64) (FractionRange, error) {
	if min <= 0 || max > 1 || min > max {
		return FractionRange{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("fraction range [%g, %g] must satisfy 0 < min <= max <= 1", min, max))
	}
	return FractionRange{
		MinBps: int64(math.Round(min * bpsDenominator)),
		MaxBps: int64(math.Round(max * bpsDenominator)),
	}, nil
}

type Config struct {
	WrapMin      *big.Int
	WrapMax      *big.Int
	Fraction     FractionRange
	ProbePause   time.Duration
	SupplyTokens []registry.Token
}

func DefaultConfig() Config {
	return Config{
		WrapMin:    units.Ether("0.00001"),
		WrapMax:    units.Ether("0.0001"),
		Fraction:   FractionRange{MinBps: 2_000, MaxBps: 4_000},
		ProbePause: time.Second,
	}
}

// fractionOf takes a random share of balance. A positive balance never
// yields zero.
func (s *Service) fractionOf(balance *big.Int) *big.Int {
	if balance == nil || balance.Sign() <= 0 {
		return new(big.Int)
	}
	lo, hi := s.Config.Fraction.MinBps, s.Config.Fraction.MaxBps
	if hi < lo {
		lo, hi = hi, lo
	}
	bps := lo
	if hi > lo {
		bps = lo + s.int64N(hi-lo+1)
	}
	amount := new(big.Int).Mul(balance, big.NewInt(bps))
	amount.Quo(amount, big.NewInt(bpsDenominator))
	if amount.Sign() == 0 {
		amount.SetInt64(1)
	}
	return amount
}

// wrapAmount draws from the configured native range and falls back to a
// balance share when the draw exceeds what the account holds.
func (s *Service) wrapAmount(balance *big.Int) *big.Int {
	amount := s.drawBetween(s.Config.WrapMin, s.Config.WrapMax)
	if amount.Cmp(balance) > 0 {
		return s.fractionOf(balance)
	}
	return amount
}

func (s *Service) drawBetween(lo, hi *big.Int) *big.Int {
	if lo == nil {
		lo = new(big.Int)
	}
	if hi == nil || hi.Cmp(lo) <= 0 {
		return new(big.Int).Set(lo)
	}
	span := new(big.Int).Sub(hi, lo)
	if span.IsInt64() && span.Int64() < math.MaxInt64 {
		offset := s.int64N(span.Int64() + 1)
		return new(big.Int).Add(lo, big.NewInt(offset))
	}
	// Spans beyond int64 are drawn at basis-point resolution.
	step := new(big.Int).Mul(span, big.NewInt(s.int64N(bpsDenominator+1)))
	step.Quo(step, big.NewInt(bpsDenominator))
	return step.Add(step, lo)
}
