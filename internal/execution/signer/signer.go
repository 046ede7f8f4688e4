package signer

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Signer signs transactions for one account.
type Signer interface {
	Address() common.Address
	SignTx(chainID *big.Int, tx *types.Transaction) (*types.Transaction, error)
}

// CheckSender recovers the sender of signed and fails unless it is want.
func CheckSender(chainID *big.Int, signed *types.Transaction, want common.Address) error {
	got, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	if err != nil {
		return fmt.Errorf("recover sender: %w", err)
	}
	if got != want {
		return fmt.Errorf("signed by %s, expected %s", got.Hex(), want.Hex())
	}
	return nil
}
