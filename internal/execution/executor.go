package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	clierr "github.com/ggonzalez94/rise-pilot/internal/errors"
	"github.com/ggonzalez94/rise-pilot/internal/execution/signer"
	"github.com/ggonzalez94/rise-pilot/internal/logger"
	"github.com/ggonzalez94/rise-pilot/internal/registry"
)

type ExecuteOptions struct {
	Simulate       bool
	PollInterval   time.Duration
	ReceiptTimeout time.Duration
	GasMultiplier  float64
}

func DefaultExecuteOptions() ExecuteOptions {
	return ExecuteOptions{
		Simulate:       false,
		PollInterval:   2 * time.Second,
		ReceiptTimeout: 2 * time.Minute,
		GasMultiplier:  1.2,
	}
}

// Executor fills, signs, broadcasts and awaits one transaction at a time per
// signer. It never retries.
type Executor struct {
	Chain   registry.Chain
	Options ExecuteOptions
	Logger  *slog.Logger
}

func NewExecutor(chain registry.Chain, opts ExecuteOptions, log *slog.Logger) *Executor {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.ReceiptTimeout <= 0 {
		opts.ReceiptTimeout = 2 * time.Minute
	}
	if opts.GasMultiplier <= 1 {
		opts.GasMultiplier = 1.2
	}
	return &Executor{Chain: chain, Options: opts, Logger: log}
}

// Execute submits intent and classifies the result. A confirmed transaction
// returns a nil error; reverted and failed outcomes come with a typed error
// carrying CodeReverted, CodeSubmission or CodeActionTimeout.
func (e *Executor) Execute(ctx context.Context, client *ethclient.Client, txSigner signer.Signer, intent Intent, tag string) (Outcome, error) {
	outcome := Outcome{Description: intent.Description, Status: StatusFailed}
	if txSigner == nil {
		return outcome, clierr.New(clierr.CodeSigner, "missing signer")
	}
	if client == nil {
		return outcome, clierr.New(clierr.CodeInternal, "missing rpc client")
	}
	log := logger.Tagged(e.Logger, tag)

	chainID, err := e.chainID(ctx, client)
	if err != nil {
		return outcome, err
	}
	from := txSigner.Address()
	unlock := acquireSignerNonceLock(chainID, from)
	defer unlock()

	value := intent.Value
	if value == nil {
		value = new(big.Int)
	}
	target := intent.To
	msg := ethereum.CallMsg{From: from, To: &target, Value: value, Data: intent.Data}

	if e.Options.Simulate {
		if _, err := client.CallContract(ctx, msg, nil); err != nil {
			outcome.Reason = decodeRevertFromError(err)
			return outcome, wrapEVMExecutionError(clierr.CodeSubmission, fmt.Sprintf("simulate %s (eth_call)", intent.Description), err)
		}
	}

	gasLimit := intent.Gas
	if gasLimit == 0 {
		estimated, err := client.EstimateGas(ctx, msg)
		if err != nil {
			outcome.Reason = decodeRevertFromError(err)
			return outcome, wrapEVMExecutionError(clierr.CodeSubmission, fmt.Sprintf("estimate gas for %s", intent.Description), err)
		}
		gasLimit = applyGasMultiplier(estimated, e.Options.GasMultiplier)
	}
	if gasLimit == 0 {
		return outcome, clierr.New(clierr.CodeSubmission, "estimate gas returned zero")
	}
	msg.Gas = gasLimit

	tipCap := resolveTipCap(ctx, client)
	baseFee, err := latestBaseFee(ctx, client)
	if err != nil {
		return outcome, err
	}

	var nonce uint64
	if intent.Nonce != nil {
		nonce = *intent.Nonce
	} else {
		nonce, err = client.PendingNonceAt(ctx, from)
		if err != nil {
			return outcome, clierr.Wrap(clierr.CodeUnavailable, "fetch nonce", err)
		}
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap(baseFee, tipCap),
		Gas:       gasLimit,
		To:        &target,
		Value:     value,
		Data:      intent.Data,
	})
	signed, err := txSigner.SignTx(chainID, tx)
	if err != nil {
		return outcome, clierr.Wrap(clierr.CodeSigner, "sign transaction", err)
	}
	if err := signer.CheckSender(chainID, signed, from); err != nil {
		return outcome, clierr.Wrap(clierr.CodeSigner, "verify signed transaction", err)
	}
	if err := client.SendTransaction(ctx, signed); err != nil {
		outcome.Reason = err.Error()
		return outcome, wrapEVMExecutionError(clierr.CodeSubmission, fmt.Sprintf("broadcast %s", intent.Description), err)
	}
	outcome.TxHash = signed.Hash().Hex()
	outcome.ExplorerURL = e.Chain.TxURL(outcome.TxHash)
	log.Info("Transaction sent", "description", intent.Description, "tx", outcome.TxHash, "explorer", outcome.ExplorerURL)

	receipt, err := e.waitReceipt(ctx, client, signed.Hash(), log)
	if err != nil {
		outcome.Reason = "receipt not seen before timeout"
		log.Error("Transaction outcome unknown", "description", intent.Description, "tx", outcome.TxHash, "error", err)
		return outcome, err
	}
	if receipt.BlockNumber != nil {
		outcome.BlockNumber = receipt.BlockNumber.Uint64()
	}
	outcome.GasUsed = receipt.GasUsed

	if receipt.Status == types.ReceiptStatusSuccessful {
		outcome.Status = StatusConfirmed
		log.Info("Transaction confirmed", "description", intent.Description, "tx", outcome.TxHash, "block", outcome.BlockNumber, "gas_used", outcome.GasUsed)
		return outcome, nil
	}

	outcome.Status = StatusReverted
	outcome.Reason = replayRevertReason(ctx, client, msg, receipt.BlockNumber)
	log.Error("Transaction reverted", "description", intent.Description, "tx", outcome.TxHash, "reason", outcome.Reason)
	message := fmt.Sprintf("%s reverted on-chain (%s)", intent.Description, outcome.TxHash)
	if outcome.Reason != "" {
		message = fmt.Sprintf("%s: %s", message, outcome.Reason)
	}
	return outcome, clierr.New(clierr.CodeReverted, message)
}

func (e *Executor) chainID(ctx context.Context, client *ethclient.Client) (*big.Int, error) {
	if e.Chain.ChainID != 0 {
		return big.NewInt(e.Chain.ChainID), nil
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, "read chain id", err)
	}
	return chainID, nil
}

func (e *Executor) waitReceipt(ctx context.Context, client *ethclient.Client, hash common.Hash, log *slog.Logger) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, e.Options.ReceiptTimeout)
	defer cancel()
	ticker := time.NewTicker(e.Options.PollInterval)
	defer ticker.Stop()
	for {
		receipt, err := client.TransactionReceipt(waitCtx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		// Polling errors other than not-found are treated as transient until timeout.
		if err != nil && !errors.Is(err, ethereum.NotFound) && waitCtx.Err() == nil {
			log.Debug("Receipt poll failed", "tx", hash.Hex(), "error", err)
		}
		select {
		case <-waitCtx.Done():
			return nil, clierr.Wrap(clierr.CodeActionTimeout, fmt.Sprintf("timed out waiting for receipt of %s", hash.Hex()), waitCtx.Err())
		case <-ticker.C:
		}
	}
}

// replayRevertReason re-runs the call against the block the transaction was
// mined in to recover the revert data.
func replayRevertReason(ctx context.Context, client *ethclient.Client, msg ethereum.CallMsg, block *big.Int) string {
	_, err := client.CallContract(ctx, msg, block)
	if err == nil {
		return ""
	}
	return decodeRevertFromError(err)
}

var nonceLocks sync.Map

// acquireSignerNonceLock serializes submissions for one signer on one chain
// inside this process. The lock is held until the transaction resolves.
func acquireSignerNonceLock(chainID *big.Int, addr common.Address) func() {
	key := strings.ToLower(fmt.Sprintf("%s:%s", chainID.String(), addr.Hex()))
	value, _ := nonceLocks.LoadOrStore(key, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
