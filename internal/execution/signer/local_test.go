package signer

import (
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

const testPrivateKey = "59c6995e998f97a5a0044976f0945388cf9b7e5e5f4f9d2d9d8f1f5b7f6d11d1"

func TestNewLocalSignerFromHex(t *testing.T) {
	s, err := NewLocalSignerFromHex("0x" + testPrivateKey)
	if err != nil {
		t.Fatalf("NewLocalSignerFromHex failed: %v", err)
	}
	if s.Address() == (common.Address{}) {
		t.Fatal("expected non-zero signer address")
	}
	to := common.HexToAddress("0x0000000000000000000000000000000000000001")
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(11155931),
		Nonce:     0,
		To:        &to,
		Value:     big.NewInt(0),
		Gas:       21_000,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(2),
	})
	signed, err := s.SignTx(big.NewInt(11155931), tx)
	if err != nil {
		t.Fatalf("SignTx failed: %v", err)
	}
	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(11155931)), signed)
	if err != nil {
		t.Fatalf("recover sender: %v", err)
	}
	if sender != s.Address() {
		t.Fatalf("recovered %s, want %s", sender.Hex(), s.Address().Hex())
	}
}

func TestNewLocalSignerRejectsBadHex(t *testing.T) {
	if _, err := NewLocalSignerFromHex("0xnothex"); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := NewLocalSignerFromHex("   "); err == nil {
		t.Fatal("expected missing key error")
	}
}

func TestNewLocalSignerFromKeystore(t *testing.T) {
	dir := t.TempDir()
	pk, err := crypto.HexToECDSA(testPrivateKey)
	if err != nil {
		t.Fatalf("parse key: %v", err)
	}
	ks := keystore.NewKeyStore(dir, keystore.LightScryptN, keystore.LightScryptP)
	acct, err := ks.ImportECDSA(pk, "hunter2")
	if err != nil {
		t.Fatalf("import key: %v", err)
	}

	t.Setenv(EnvKeystorePassword, "hunter2")
	t.Setenv(EnvKeystorePasswordFile, "")
	s, err := NewLocalSignerFromKeystore(acct.URL.Path, "")
	if err != nil {
		t.Fatalf("NewLocalSignerFromKeystore failed: %v", err)
	}
	if s.Address() != acct.Address {
		t.Fatalf("unexpected keystore address: %s", s.Address().Hex())
	}
}

func TestNewLocalSignerFromKeystorePasswordFile(t *testing.T) {
	dir := t.TempDir()
	pk, _ := crypto.HexToECDSA(testPrivateKey)
	ks := keystore.NewKeyStore(dir, keystore.LightScryptN, keystore.LightScryptP)
	acct, err := ks.ImportECDSA(pk, "hunter2")
	if err != nil {
		t.Fatalf("import key: %v", err)
	}
	passFile := filepath.Join(t.TempDir(), "pass.txt")
	if err := os.WriteFile(passFile, []byte("hunter2\n"), 0o600); err != nil {
		t.Fatalf("write password file: %v", err)
	}
	t.Setenv(EnvKeystorePassword, "")
	t.Setenv(EnvKeystorePasswordFile, passFile)
	if _, err := NewLocalSignerFromKeystore(acct.URL.Path, ""); err != nil {
		t.Fatalf("expected password file to unlock keystore: %v", err)
	}
}

func TestNewLocalSignerFromKeystoreMissingPassword(t *testing.T) {
	t.Setenv(EnvKeystorePassword, "")
	t.Setenv(EnvKeystorePasswordFile, "")
	_, err := NewLocalSignerFromKeystore("/tmp/does-not-matter.json", "")
	if err == nil {
		t.Fatal("expected missing password error")
	}
	if !strings.Contains(err.Error(), EnvKeystorePassword) {
		t.Fatalf("expected hint about %s, got: %v", EnvKeystorePassword, err)
	}
}

func TestCheckSender(t *testing.T) {
	s, err := NewLocalSignerFromHex(testPrivateKey)
	if err != nil {
		t.Fatalf("NewLocalSignerFromHex failed: %v", err)
	}
	chainID := big.NewInt(11155931)
	to := common.HexToAddress("0x0000000000000000000000000000000000000002")
	signed, err := s.SignTx(chainID, types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		To:        &to,
		Gas:       21000,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(2),
		Value:     big.NewInt(0),
	}))
	if err != nil {
		t.Fatalf("SignTx failed: %v", err)
	}
	if err := CheckSender(chainID, signed, s.Address()); err != nil {
		t.Fatalf("expected matching sender: %v", err)
	}
	if err := CheckSender(chainID, signed, to); err == nil {
		t.Fatal("expected mismatch error for another address")
	}
}
