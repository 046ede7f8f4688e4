package registry

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

func TestABIConstantsParse(t *testing.T) {
	abis := map[string]string{
		"erc20":   ERC20MinimalABI,
		"wrapped": WrappedNativeABI,
		"pool":    LendingPoolABI,
	}
	for name, raw := range abis {
		parsed, err := abi.JSON(strings.NewReader(raw))
		if err != nil {
			t.Fatalf("parse %s abi: %v", name, err)
		}
		if len(parsed.Methods) == 0 {
			t.Fatalf("%s abi has no methods", name)
		}
	}
}

func TestWrappedNativeDepositIsPayable(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(WrappedNativeABI))
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	if !parsed.Methods["deposit"].IsPayable() {
		t.Fatal("expected deposit to be payable")
	}
}

func TestResolveChain(t *testing.T) {
	chain, err := ResolveChain("", "")
	if err != nil {
		t.Fatalf("ResolveChain failed: %v", err)
	}
	if chain.ChainID != 11155931 {
		t.Fatalf("unexpected default chain id: %d", chain.ChainID)
	}
	byID, err := ResolveChain("11155931", "http://127.0.0.1:8545")
	if err != nil {
		t.Fatalf("ResolveChain by id failed: %v", err)
	}
	if byID.RPCURL != "http://127.0.0.1:8545" {
		t.Fatalf("expected rpc override, got %s", byID.RPCURL)
	}
	if RiseTestnet.RPCURL != "https://testnet.riselabs.xyz" {
		t.Fatal("override must not mutate the canonical descriptor")
	}
	if _, err := ResolveChain("taiko", ""); err == nil {
		t.Fatal("expected unsupported chain error")
	}
}

func TestTxURL(t *testing.T) {
	got := RiseTestnet.TxURL("0xabc")
	if got != "https://explorer.testnet.riselabs.xyz/tx/0xabc" {
		t.Fatalf("unexpected tx url: %s", got)
	}
	if (Chain{}).TxURL("0xabc") != "" {
		t.Fatal("expected empty tx url without explorer")
	}
}

func TestInariSupplyTokensIsACopy(t *testing.T) {
	tokens := InariSupplyTokens()
	if len(tokens) != 4 {
		t.Fatalf("expected four supply tokens, got %d", len(tokens))
	}
	tokens[0], tokens[3] = tokens[3], tokens[0]
	again := InariSupplyTokens()
	if again[0].Symbol != "WBTC" {
		t.Fatalf("catalog mutated through copy: %s", again[0].Symbol)
	}
	for _, token := range again {
		if token.Spender != InariPoolAddress {
			t.Fatalf("unexpected spender for %s: %s", token.Symbol, token.Spender.Hex())
		}
		if token.Address == (common.Address{}) {
			t.Fatalf("missing address for %s", token.Symbol)
		}
	}
	if WrappedNative().Spender != UnwrapSpender {
		t.Fatal("wrapped native must use the unwrap spender")
	}
}
