package actions

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	clierr "github.com/ggonzalez94/rise-pilot/internal/errors"
	"github.com/ggonzalez94/rise-pilot/internal/registry"
)

var (
	wrappedNativeABI = mustParseABI(registry.WrappedNativeABI)
	lendingPoolABI   = mustParseABI(registry.LendingPoolABI)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("parse abi: %v", err))
	}
	return parsed
}

func depositData() ([]byte, error) {
	return pack(wrappedNativeABI, "deposit")
}

func withdrawData(amount *big.Int) ([]byte, error) {
	return pack(wrappedNativeABI, "withdraw", amount)
}

func supplyData(asset common.Address, amount *big.Int, onBehalfOf common.Address) ([]byte, error) {
	return pack(lendingPoolABI, "supply", asset, amount, onBehalfOf, uint16(0))
}

func pack(parsed abi.ABI, method string, args ...any) ([]byte, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, fmt.Sprintf("pack %s calldata", method), err)
	}
	return data, nil
}
