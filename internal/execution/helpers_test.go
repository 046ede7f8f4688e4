package execution

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/ggonzalez94/rise-pilot/internal/execution/chaintest"
	"github.com/ggonzalez94/rise-pilot/internal/execution/signer"
	"github.com/ggonzalez94/rise-pilot/internal/logger"
	"github.com/ggonzalez94/rise-pilot/internal/registry"
)

const (
	testChainID    = 11155931
	testPrivateKey = "59c6995e998f97a5a0044976f0945388cf9b7e5e5f4f9d2d9d8f1f5b7f6d11d1"
)

func newTestChain(t *testing.T) (*chaintest.Chain, registry.Chain) {
	t.Helper()
	fake := chaintest.New(t, testChainID)
	chain := registry.RiseTestnet.WithRPCURL(fake.URL)
	return fake, chain
}

func newTestExecutor(chain registry.Chain) *Executor {
	return NewExecutor(chain, ExecuteOptions{
		PollInterval:   5 * time.Millisecond,
		ReceiptTimeout: time.Second,
		GasMultiplier:  1.2,
	}, logger.Discard())
}

func newTestSigner(t *testing.T) *signer.LocalSigner {
	t.Helper()
	s, err := signer.NewLocalSignerFromHex(testPrivateKey)
	if err != nil {
		t.Fatalf("create signer: %v", err)
	}
	return s
}

func dialTestClient(t *testing.T, url string) *ethclient.Client {
	t.Helper()
	client, err := ethclient.DialContext(context.Background(), url)
	if err != nil {
		t.Fatalf("dial fake chain: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}
