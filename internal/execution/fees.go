package execution

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"

	clierr "github.com/ggonzalez94/rise-pilot/internal/errors"
)

var (
	defaultBaseFee = big.NewInt(1_000_000_000)
	defaultTipCap  = big.NewInt(2_000_000_000)
)

func resolveTipCap(ctx context.Context, client *ethclient.Client) *big.Int {
	tipCap, err := client.SuggestGasTipCap(ctx)
	if err != nil || tipCap == nil {
		return new(big.Int).Set(defaultTipCap)
	}
	return tipCap
}

// latestBaseFee reads only baseFeePerGas from the latest block so partial
// block payloads from light nodes still work.
func latestBaseFee(ctx context.Context, client *ethclient.Client) (*big.Int, error) {
	var block struct {
		BaseFeePerGas *hexutil.Big `json:"baseFeePerGas"`
	}
	if err := client.Client().CallContext(ctx, &block, "eth_getBlockByNumber", "latest", false); err != nil {
		header, headerErr := client.HeaderByNumber(ctx, nil)
		if headerErr == nil {
			if header.BaseFee == nil {
				return new(big.Int).Set(defaultBaseFee), nil
			}
			return new(big.Int).Set(header.BaseFee), nil
		}
		return nil, clierr.Wrap(clierr.CodeUnavailable, "fetch latest base fee", err)
	}
	if block.BaseFeePerGas == nil {
		return new(big.Int).Set(defaultBaseFee), nil
	}
	return new(big.Int).Set((*big.Int)(block.BaseFeePerGas)), nil
}

// feeCap leaves room for the base fee to double before the tx stalls.
func feeCap(baseFee, tipCap *big.Int) *big.Int {
	out := new(big.Int).Mul(baseFee, big.NewInt(2))
	return out.Add(out, tipCap)
}

func applyGasMultiplier(gas uint64, multiplier float64) uint64 {
	if multiplier <= 1 {
		return gas
	}
	return uint64(float64(gas) * multiplier)
}
