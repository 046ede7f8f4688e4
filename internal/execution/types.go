package execution

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusReverted  Status = "reverted"
	StatusFailed    Status = "failed"
)

// Intent is a transaction before the executor fills gas, fees and nonce.
// From is taken from the signer. Gas and Nonce override node lookups when
// set.
type Intent struct {
	To          common.Address
	Data        []byte
	Value       *big.Int
	Description string
	Gas         uint64
	Nonce       *uint64
}

type Outcome struct {
	Description string `json:"description"`
	Status      Status `json:"status"`
	TxHash      string `json:"tx_hash,omitempty"`
	ExplorerURL string `json:"explorer_url,omitempty"`
	BlockNumber uint64 `json:"block_number,omitempty"`
	GasUsed     uint64 `json:"gas_used,omitempty"`
	Reason      string `json:"reason,omitempty"`
}
