package execution

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	clierr "github.com/ggonzalez94/rise-pilot/internal/errors"
	"github.com/ggonzalez94/rise-pilot/internal/httpx"
	"github.com/ggonzalez94/rise-pilot/internal/logger"
	"github.com/ggonzalez94/rise-pilot/internal/registry"
)

const defaultSessionTimeout = 30 * time.Second

// Session is an RPC connection routed through one account's proxy. It is
// only valid inside the callback passed to Sessions.With.
type Session struct {
	Client  *ethclient.Client
	Chain   registry.Chain
	ChainID *big.Int
	Tag     string
	Proxy   *url.URL
}

// Sessions opens proxy-bound sessions under a shared limiter.
type Sessions struct {
	Chain   registry.Chain
	Limiter *Limiter
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewSessions(chain registry.Chain, limiter *Limiter, timeout time.Duration, log *slog.Logger) *Sessions {
	return &Sessions{Chain: chain, Limiter: limiter, Timeout: timeout, Logger: log}
}

// With acquires a permit, dials the chain through proxy, checks the chain id
// and runs fn. The client is closed and the permit released on every exit
// path, panics included.
func (s *Sessions) With(ctx context.Context, proxy *url.URL, tag string, fn func(*Session) error) error {
	if s.Limiter == nil {
		return clierr.New(clierr.CodeInternal, "session limiter is not configured")
	}
	if err := s.Limiter.Acquire(ctx); err != nil {
		return err
	}
	defer s.Limiter.Release()

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultSessionTimeout
	}
	httpClient := httpx.New(proxy, timeout)
	defer httpx.CloseIdle(httpClient)

	log := logger.Tagged(s.Logger, tag)
	rpcClient, err := rpc.DialOptions(ctx, s.Chain.RPCURL, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return clierr.Wrap(clierr.CodeUnavailable, fmt.Sprintf("connect rpc via %s", httpx.MaskProxy(proxy)), err)
	}
	client := ethclient.NewClient(rpcClient)
	defer client.Close()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return clierr.Wrap(clierr.CodeUnavailable, fmt.Sprintf("read chain id via %s", httpx.MaskProxy(proxy)), err)
	}
	if s.Chain.ChainID != 0 && chainID.Cmp(big.NewInt(s.Chain.ChainID)) != 0 {
		return clierr.New(clierr.CodeChainMismatch, fmt.Sprintf("rpc %s reports chain id %s, %s expects %d", s.Chain.RPCURL, chainID, s.Chain.Name, s.Chain.ChainID))
	}
	log.Debug("Session opened", "proxy", httpx.MaskProxy(proxy), "chain_id", chainID.String())

	return fn(&Session{
		Client:  client,
		Chain:   s.Chain,
		ChainID: chainID,
		Tag:     tag,
		Proxy:   proxy,
	})
}
