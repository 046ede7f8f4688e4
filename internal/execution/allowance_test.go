package execution

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	clierr "github.com/ggonzalez94/rise-pilot/internal/errors"
	"github.com/ggonzalez94/rise-pilot/internal/registry"
)

var (
	testToken   = registry.Token{Symbol: "USDC", Address: common.HexToAddress("0x8A93d247134d91e0de6f96547cB0204e5BE8e5D8"), Spender: registry.InariPoolAddress, Decimals: 18}
	testSpender = registry.InariPoolAddress
)

func TestEnsureAllowanceSkipsWhenEqual(t *testing.T) {
	fake, chain := newTestChain(t)
	s := newTestSigner(t)
	fake.SetAllowance(testToken.Address, s.Address(), testSpender, big.NewInt(500))
	client := dialTestClient(t, fake.URL)

	outcome, err := EnsureAllowance(context.Background(), client, newTestExecutor(chain), s, testToken, testSpender, big.NewInt(500), "#1 > test")
	if err != nil {
		t.Fatalf("EnsureAllowance failed: %v", err)
	}
	if outcome != nil {
		t.Fatalf("expected no approval, got %+v", outcome)
	}
	if len(fake.Transactions()) != 0 {
		t.Fatal("expected no transaction when allowance equals requirement")
	}
}

func TestEnsureAllowanceSkipsWhenGreater(t *testing.T) {
	fake, chain := newTestChain(t)
	s := newTestSigner(t)
	fake.SetAllowance(testToken.Address, s.Address(), testSpender, big.NewInt(501))
	client := dialTestClient(t, fake.URL)

	if _, err := EnsureAllowance(context.Background(), client, newTestExecutor(chain), s, testToken, testSpender, big.NewInt(500), "#1 > test"); err != nil {
		t.Fatalf("EnsureAllowance failed: %v", err)
	}
	if len(fake.Transactions()) != 0 {
		t.Fatal("expected no transaction when allowance exceeds requirement")
	}
}

func TestEnsureAllowanceApprovesMax(t *testing.T) {
	fake, chain := newTestChain(t)
	s := newTestSigner(t)
	fake.SetAllowance(testToken.Address, s.Address(), testSpender, big.NewInt(499))
	client := dialTestClient(t, fake.URL)

	outcome, err := EnsureAllowance(context.Background(), client, newTestExecutor(chain), s, testToken, testSpender, big.NewInt(500), "#1 > test")
	if err != nil {
		t.Fatalf("EnsureAllowance failed: %v", err)
	}
	if outcome == nil || outcome.Status != StatusConfirmed {
		t.Fatalf("expected confirmed approval, got %+v", outcome)
	}
	approvals := fake.TransactionsTo("approve")
	if len(approvals) != 1 {
		t.Fatalf("expected one approval, got %d", len(approvals))
	}
	if approvals[0].To != testToken.Address {
		t.Fatalf("approval sent to %s", approvals[0].To.Hex())
	}
	if approvals[0].Args[0].(common.Address) != testSpender {
		t.Fatalf("unexpected spender: %v", approvals[0].Args[0])
	}
	if approvals[0].Args[1].(*big.Int).Cmp(MaxAllowance) != 0 {
		t.Fatalf("expected max approval, got %s", approvals[0].Args[1])
	}
	if fake.Allowance(testToken.Address, s.Address(), testSpender).Cmp(MaxAllowance) != 0 {
		t.Fatal("expected chain allowance to be max after approval")
	}
}

func TestEnsureAllowancePropagatesRevert(t *testing.T) {
	fake, chain := newTestChain(t)
	s := newTestSigner(t)
	fake.RevertOn("approve", "token frozen")
	client := dialTestClient(t, fake.URL)

	outcome, err := EnsureAllowance(context.Background(), client, newTestExecutor(chain), s, testToken, testSpender, big.NewInt(1), "#1 > test")
	if !clierr.HasCode(err, clierr.CodeReverted) {
		t.Fatalf("expected reverted error, got %v", err)
	}
	if outcome == nil || outcome.Status != StatusReverted {
		t.Fatalf("expected reverted outcome, got %+v", outcome)
	}
}

func TestBalanceReads(t *testing.T) {
	fake, _ := newTestChain(t)
	s := newTestSigner(t)
	fake.SetBalance(testToken.Address, s.Address(), big.NewInt(42))
	fake.SetNative(s.Address(), big.NewInt(7))
	client := dialTestClient(t, fake.URL)

	bal, err := BalanceOf(context.Background(), client, testToken.Address, s.Address())
	if err != nil || bal.Int64() != 42 {
		t.Fatalf("BalanceOf = %v, %v", bal, err)
	}
	native, err := NativeBalance(context.Background(), client, s.Address())
	if err != nil || native.Int64() != 7 {
		t.Fatalf("NativeBalance = %v, %v", native, err)
	}
	zero, err := Allowance(context.Background(), client, testToken.Address, s.Address(), testSpender)
	if err != nil || zero.Sign() != 0 {
		t.Fatalf("Allowance = %v, %v", zero, err)
	}
}
