package execution

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/ggonzalez94/rise-pilot/internal/execution/signer"
	"github.com/ggonzalez94/rise-pilot/internal/logger"
	"github.com/ggonzalez94/rise-pilot/internal/registry"
	"github.com/ggonzalez94/rise-pilot/internal/units"
)

// MaxAllowance is the amount every approval grants, never the exact
// requirement.
var MaxAllowance = new(big.Int).Set(math.MaxBig256)

// EnsureAllowance makes sure spender may move at least required of token on
// behalf of the signer. It returns nil without a transaction when the current
// allowance already covers required.
func EnsureAllowance(ctx context.Context, client *ethclient.Client, exec *Executor, txSigner signer.Signer, token registry.Token, spender common.Address, required *big.Int, tag string) (*Outcome, error) {
	log := logger.Tagged(exec.Logger, tag)
	owner := txSigner.Address()
	current, err := Allowance(ctx, client, token.Address, owner, spender)
	if err != nil {
		return nil, err
	}
	if current.Cmp(required) >= 0 {
		log.Info("Allowance sufficient", "token", token.Symbol, "spender", spender.Hex(), "allowance", units.FormatUnits(current, token.Decimals))
		return nil, nil
	}

	log.Info("Approving token", "token", token.Symbol, "spender", spender.Hex(), "required", units.FormatUnits(required, token.Decimals))
	data, err := ApproveData(spender, MaxAllowance)
	if err != nil {
		return nil, err
	}
	outcome, err := exec.Execute(ctx, client, txSigner, Intent{
		To:          token.Address,
		Data:        data,
		Value:       new(big.Int),
		Description: fmt.Sprintf("approve %s for %s", token.Symbol, spender.Hex()),
	}, tag)
	return &outcome, err
}
