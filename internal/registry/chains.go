package registry

import (
	"fmt"
	"strings"
)

// Chain is the immutable descriptor of the network the actions run against.
type Chain struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	RPCURL      string `json:"rpc_url"`
	ChainID     int64  `json:"chain_id"`
	Symbol      string `json:"symbol"`
	ExplorerURL string `json:"explorer_url"`
}

var RiseTestnet = Chain{
	Name:        "Rise Testnet",
	Slug:        "rise-testnet",
	RPCURL:      "https://testnet.riselabs.xyz",
	ChainID:     11155931,
	Symbol:      "ETH",
	ExplorerURL: "https://explorer.testnet.riselabs.xyz",
}

var chainsBySlug = map[string]Chain{
	RiseTestnet.Slug: RiseTestnet,
}

// TxURL links a transaction hash on the chain explorer.
func (c Chain) TxURL(txHash string) string {
	if strings.TrimSpace(c.ExplorerURL) == "" {
		return ""
	}
	return strings.TrimRight(c.ExplorerURL, "/") + "/tx/" + txHash
}

// WithRPCURL returns a copy of the descriptor pointing at another endpoint.
func (c Chain) WithRPCURL(rpcURL string) Chain {
	if strings.TrimSpace(rpcURL) != "" {
		c.RPCURL = strings.TrimSpace(rpcURL)
	}
	return c
}

// ResolveChain finds a chain by slug or numeric id and applies an optional
// RPC override.
func ResolveChain(input, rpcOverride string) (Chain, error) {
	norm := strings.ToLower(strings.TrimSpace(input))
	if norm == "" {
		return RiseTestnet.WithRPCURL(rpcOverride), nil
	}
	if chain, ok := chainsBySlug[norm]; ok {
		return chain.WithRPCURL(rpcOverride), nil
	}
	for _, chain := range chainsBySlug {
		if fmt.Sprintf("%d", chain.ChainID) == norm {
			return chain.WithRPCURL(rpcOverride), nil
		}
	}
	return Chain{}, fmt.Errorf("unsupported chain %q", input)
}
