package registry

import "github.com/ethereum/go-ethereum/common"

// Token is a static catalog entry for an ERC20 the actions may move.
type Token struct {
	Symbol   string         `json:"symbol"`
	Address  common.Address `json:"address"`
	Spender  common.Address `json:"spender"`
	Decimals int            `json:"decimals"`
}

// Canonical Rise Testnet deployments.
var (
	WrappedNativeAddress = common.HexToAddress("0x4200000000000000000000000000000000000006")
	// UnwrapSpender must hold a WETH allowance before withdraw is accepted.
	UnwrapSpender      = common.HexToAddress("0x143bE32C854E4Ddce45aD48dAe3343821556D0c3")
	InariPoolAddress   = common.HexToAddress("0x81edb206Fd1FB9dC517B61793AaA0325c8d11A23")
	wrappedNativeToken = Token{Symbol: "WETH", Address: WrappedNativeAddress, Spender: UnwrapSpender, Decimals: 18}
)

var inariSupplyTokens = []Token{
	{Symbol: "WBTC", Address: common.HexToAddress("0xF32D39ff9f6Aa7a7A64d7a4F00a54826Ef791a55"), Spender: InariPoolAddress, Decimals: 18},
	{Symbol: "USDC", Address: common.HexToAddress("0x8A93d247134d91e0de6f96547cB0204e5BE8e5D8"), Spender: InariPoolAddress, Decimals: 18},
	{Symbol: "USDT", Address: common.HexToAddress("0x40918ba7f132e0acba2ce4de4c4baf9bd2d7d849"), Spender: InariPoolAddress, Decimals: 18},
	{Symbol: "WETH", Address: WrappedNativeAddress, Spender: InariPoolAddress, Decimals: 18},
}

// WrappedNative is the wrapped-asset token with the unwrap spender.
func WrappedNative() Token {
	return wrappedNativeToken
}

// InariSupplyTokens returns a fresh copy of the supply catalog so callers can
// shuffle it without touching the shared slice.
func InariSupplyTokens() []Token {
	out := make([]Token, len(inariSupplyTokens))
	copy(out, inariSupplyTokens)
	return out
}
