package actions

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/ggonzalez94/rise-pilot/internal/account"
	"github.com/ggonzalez94/rise-pilot/internal/execution"
	"github.com/ggonzalez94/rise-pilot/internal/execution/chaintest"
	"github.com/ggonzalez94/rise-pilot/internal/logger"
	"github.com/ggonzalez94/rise-pilot/internal/registry"
)

const testPrivateKey = "59c6995e998f97a5a0044976f0945388cf9b7e5e5f4f9d2d9d8f1f5b7f6d11d1"

type fixture struct {
	chain   *chaintest.Chain
	service *Service
	account account.Account
}

func newFixture(t *testing.T, seed uint64) fixture {
	t.Helper()
	fake := chaintest.New(t, registry.RiseTestnet.ChainID)
	chain := registry.RiseTestnet.WithRPCURL(fake.URL)
	log := logger.Discard()

	accounts, err := account.Build([]string{testPrivateKey}, nil)
	if err != nil {
		t.Fatalf("build account: %v", err)
	}
	cfg := DefaultConfig()
	cfg.ProbePause = 0
	service := NewService(
		execution.NewSessions(chain, execution.NewLimiter(2), time.Second, log),
		execution.NewPacer(0, 0, nil, log),
		execution.NewExecutor(chain, execution.ExecuteOptions{
			PollInterval:   5 * time.Millisecond,
			ReceiptTimeout: time.Second,
		}, log),
		cfg,
		rand.New(rand.NewPCG(seed, seed+1)),
		log,
	)
	return fixture{chain: fake, service: service, account: accounts[0]}
}
