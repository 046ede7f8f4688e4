// Package actions implements the on-chain actions an account can run: wrap
// and unwrap of the native asset, and supplying a token to the Inari pool.
package actions

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/ggonzalez94/rise-pilot/internal/account"
	clierr "github.com/ggonzalez94/rise-pilot/internal/errors"
	"github.com/ggonzalez94/rise-pilot/internal/execution"
	"github.com/ggonzalez94/rise-pilot/internal/registry"
)

type Name string

const (
	Wrap   Name = "wrap"
	Unwrap Name = "unwrap"
	Supply Name = "supply"
	// Random picks one of All per account.
	Random Name = "random"
)

// All lists the concrete actions in a stable order.
var All = []Name{Wrap, Unwrap, Supply}

// Result is what one action invocation did. NothingToDo is set when the
// relevant balance was zero and no transaction was sent.
type Result struct {
	Action      Name                `json:"action"`
	NothingToDo bool                `json:"nothing_to_do"`
	Token       string              `json:"token,omitempty"`
	Amount      string              `json:"amount,omitempty"`
	Outcomes    []execution.Outcome `json:"outcomes,omitempty"`
}

// Service wires the execution pipeline into the concrete actions. One
// Service is shared by every account goroutine.
type Service struct {
	Sessions *execution.Sessions
	Pacer    *execution.Pacer
	Executor *execution.Executor
	Config   Config
	Logger   *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewService(sessions *execution.Sessions, pacer *execution.Pacer, exec *execution.Executor, cfg Config, rng *rand.Rand, log *slog.Logger) *Service {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if cfg.SupplyTokens == nil {
		cfg.SupplyTokens = registry.InariSupplyTokens()
	}
	return &Service{
		Sessions: sessions,
		Pacer:    pacer,
		Executor: exec,
		Config:   cfg,
		Logger:   log,
		rng:      rng,
	}
}

// Run dispatches one named action for acct. Random resolves to a concrete
// action first.
func (s *Service) Run(ctx context.Context, name Name, acct account.Account) (Result, error) {
	if name == Random {
		name = s.Pick()
	}
	switch name {
	case Wrap:
		return s.Wrap(ctx, acct)
	case Unwrap:
		return s.Unwrap(ctx, acct)
	case Supply:
		return s.Supply(ctx, acct)
	default:
		return Result{Action: name}, clierr.New(clierr.CodeUnsupported, fmt.Sprintf("unsupported action %q", name))
	}
}

// Pick returns a random concrete action.
func (s *Service) Pick() Name {
	return s.PickFrom(All)
}

// PickFrom returns a random entry of pool, or All when pool is empty.
func (s *Service) PickFrom(pool []Name) Name {
	if len(pool) == 0 {
		pool = All
	}
	return pool[s.intN(len(pool))]
}

// ParseNames validates a list of action names. Empty input means random.
func ParseNames(raw []string) ([]Name, error) {
	var out []Name
	for _, entry := range raw {
		for _, part := range strings.Split(entry, ",") {
			name := Name(strings.ToLower(strings.TrimSpace(part)))
			if name == "" {
				continue
			}
			switch name {
			case Wrap, Unwrap, Supply, Random:
				out = append(out, name)
			default:
				return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("unknown action %q (expected wrap, unwrap, supply or random)", name))
			}
		}
	}
	if len(out) == 0 {
		return []Name{Random}, nil
	}
	return out, nil
}

func (s *Service) intN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

func (s *Service) int64N(n int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Int64N(n)
}

func (s *Service) shuffleTokens(tokens []registry.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng.Shuffle(len(tokens), func(i, j int) { tokens[i], tokens[j] = tokens[j], tokens[i] })
}
