// Package chaintest runs an in-memory JSON-RPC chain for tests. It understands
// the ERC20, wrapped-native and lending-pool calls the actions make, mines
// every accepted transaction immediately and records it for assertions.
package chaintest

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ggonzalez94/rise-pilot/internal/registry"
)

const (
	BaseFee     = 1_000_000_000
	TipCap      = 2_000_000_000
	ContractGas = 100_000
	TransferGas = 21_000
)

var knownABIs = func() []abi.ABI {
	var out []abi.ABI
	for _, raw := range []string{registry.ERC20MinimalABI, registry.WrappedNativeABI, registry.LendingPoolABI} {
		parsed, err := abi.JSON(strings.NewReader(raw))
		if err != nil {
			panic(err)
		}
		out = append(out, parsed)
	}
	return out
}()

// Tx is a mined transaction as seen by the fake chain.
type Tx struct {
	Hash   common.Hash
	From   common.Address
	To     common.Address
	Value  *big.Int
	Nonce  uint64
	Gas    uint64
	Method string
	Args   []any
	Status uint64
}

type allowanceKey struct {
	owner   common.Address
	spender common.Address
}

type Chain struct {
	URL     string
	ChainID int64

	t      testing.TB
	server *httptest.Server

	mu               sync.Mutex
	block            uint64
	native           map[common.Address]*big.Int
	balances         map[common.Address]map[common.Address]*big.Int
	allowances       map[common.Address]map[allowanceKey]*big.Int
	nonces           map[common.Address]uint64
	receipts         map[common.Hash]map[string]any
	txs              []Tx
	reverts          map[string]string
	estimateFailures map[string]string
	broadcastFailure string
	holdReceipts     bool
	calls            map[string]int
}

// New starts a fake chain reporting chainID. The server is closed when the
// test finishes.
func New(t testing.TB, chainID int64) *Chain {
	t.Helper()
	c := &Chain{
		ChainID:          chainID,
		t:                t,
		block:            100,
		native:           map[common.Address]*big.Int{},
		balances:         map[common.Address]map[common.Address]*big.Int{},
		allowances:       map[common.Address]map[allowanceKey]*big.Int{},
		nonces:           map[common.Address]uint64{},
		receipts:         map[common.Hash]map[string]any{},
		reverts:          map[string]string{},
		estimateFailures: map[string]string{},
		calls:            map[string]int{},
	}
	c.server = httptest.NewServer(http.HandlerFunc(c.serve))
	c.URL = c.server.URL
	t.Cleanup(c.server.Close)
	return c
}

func (c *Chain) Close() { c.server.Close() }

func (c *Chain) SetNative(owner common.Address, amount *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.native[owner] = new(big.Int).Set(amount)
}

func (c *Chain) SetBalance(token, owner common.Address, amount *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokenBalances(token)[owner] = new(big.Int).Set(amount)
}

func (c *Chain) SetAllowance(token, owner, spender common.Address, amount *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokenAllowances(token)[allowanceKey{owner, spender}] = new(big.Int).Set(amount)
}

func (c *Chain) Native(owner common.Address) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return valueOrZero(c.native[owner])
}

func (c *Chain) Balance(token, owner common.Address) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return valueOrZero(c.tokenBalances(token)[owner])
}

func (c *Chain) Allowance(token, owner, spender common.Address) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return valueOrZero(c.tokenAllowances(token)[allowanceKey{owner, spender}])
}

// RevertOn makes transactions calling method mine with status 0, and makes
// eth_call of that method fail with reason. Gas estimation still succeeds.
func (c *Chain) RevertOn(method, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reverts[method] = reason
}

// FailEstimate makes eth_estimateGas for method fail with reason.
func (c *Chain) FailEstimate(method, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.estimateFailures[method] = reason
}

// FailBroadcast makes eth_sendRawTransaction reject every transaction.
func (c *Chain) FailBroadcast(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.broadcastFailure = message
}

// HoldReceipts accepts transactions but never reports their receipts.
func (c *Chain) HoldReceipts() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.holdReceipts = true
}

func (c *Chain) Transactions() []Tx {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Tx, len(c.txs))
	copy(out, c.txs)
	return out
}

// TransactionsTo filters mined transactions by method name.
func (c *Chain) TransactionsTo(method string) []Tx {
	var out []Tx
	for _, tx := range c.Transactions() {
		if tx.Method == method {
			out = append(out, tx)
		}
	}
	return out
}

// Calls counts JSON-RPC requests by method.
func (c *Chain) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

type callArg struct {
	From  *common.Address `json:"from"`
	To    *common.Address `json:"to"`
	Data  *hexutil.Bytes  `json:"data"`
	Input *hexutil.Bytes  `json:"input"`
	Value *hexutil.Big    `json:"value"`
}

func (a callArg) payload() []byte {
	if a.Input != nil {
		return *a.Input
	}
	if a.Data != nil {
		return *a.Data
	}
	return nil
}

func (c *Chain) serve(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c.mu.Lock()
	c.calls[req.Method]++
	c.mu.Unlock()

	result, rerr := c.dispatch(req)
	resp := map[string]any{"jsonrpc": "2.0", "id": decodeID(req.ID)}
	if rerr != nil {
		resp["error"] = rerr
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		c.t.Errorf("encode rpc response: %v", err)
	}
}

func (c *Chain) dispatch(req rpcRequest) (any, *rpcError) {
	switch req.Method {
	case "eth_chainId":
		return hexutil.EncodeUint64(uint64(c.ChainID)), nil
	case "eth_blockNumber":
		c.mu.Lock()
		defer c.mu.Unlock()
		return hexutil.EncodeUint64(c.block), nil
	case "eth_getBalance":
		var owner common.Address
		if err := param(req, 0, &owner); err != nil {
			return nil, err
		}
		return hexutil.EncodeBig(c.Native(owner)), nil
	case "eth_call":
		var arg callArg
		if err := param(req, 0, &arg); err != nil {
			return nil, err
		}
		return c.call(arg)
	case "eth_estimateGas":
		var arg callArg
		if err := param(req, 0, &arg); err != nil {
			return nil, err
		}
		return c.estimate(arg)
	case "eth_maxPriorityFeePerGas":
		return hexutil.EncodeUint64(TipCap), nil
	case "eth_getBlockByNumber":
		c.mu.Lock()
		defer c.mu.Unlock()
		return map[string]any{
			"number":        hexutil.EncodeUint64(c.block),
			"baseFeePerGas": hexutil.EncodeUint64(BaseFee),
		}, nil
	case "eth_getTransactionCount":
		var owner common.Address
		if err := param(req, 0, &owner); err != nil {
			return nil, err
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		return hexutil.EncodeUint64(c.nonces[owner]), nil
	case "eth_sendRawTransaction":
		var raw hexutil.Bytes
		if err := param(req, 0, &raw); err != nil {
			return nil, err
		}
		return c.send(raw)
	case "eth_getTransactionReceipt":
		var hash common.Hash
		if err := param(req, 0, &hash); err != nil {
			return nil, err
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		receipt, ok := c.receipts[hash]
		if !ok || c.holdReceipts {
			return nil, nil
		}
		return receipt, nil
	default:
		return nil, &rpcError{Code: -32601, Message: fmt.Sprintf("method not supported in test: %s", req.Method)}
	}
}

func (c *Chain) call(arg callArg) (any, *rpcError) {
	if arg.To == nil {
		return "0x", nil
	}
	method, args, ok := decodeCall(arg.payload())
	if !ok {
		return "0x", nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if reason, ok := c.reverts[method.Name]; ok {
		return nil, revertError(reason)
	}
	switch method.Name {
	case "balanceOf":
		return packUint(method, valueOrZero(c.tokenBalances(*arg.To)[args[0].(common.Address)]))
	case "allowance":
		key := allowanceKey{owner: args[0].(common.Address), spender: args[1].(common.Address)}
		return packUint(method, valueOrZero(c.tokenAllowances(*arg.To)[key]))
	default:
		return "0x", nil
	}
}

func (c *Chain) estimate(arg callArg) (any, *rpcError) {
	data := arg.payload()
	if len(data) == 0 {
		return hexutil.EncodeUint64(TransferGas), nil
	}
	if method, _, ok := decodeCall(data); ok {
		c.mu.Lock()
		reason, fail := c.estimateFailures[method.Name]
		c.mu.Unlock()
		if fail {
			return nil, revertError(reason)
		}
	}
	return hexutil.EncodeUint64(ContractGas), nil
}

func (c *Chain) send(raw []byte) (any, *rpcError) {
	var tx types.Transaction
	if err := tx.UnmarshalBinary(raw); err != nil {
		return nil, &rpcError{Code: -32602, Message: fmt.Sprintf("decode transaction: %v", err)}
	}
	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(c.ChainID)), &tx)
	if err != nil {
		return nil, &rpcError{Code: -32000, Message: fmt.Sprintf("invalid sender: %v", err)}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broadcastFailure != "" {
		return nil, &rpcError{Code: -32000, Message: c.broadcastFailure}
	}
	if tx.ChainId().Int64() != c.ChainID {
		return nil, &rpcError{Code: -32000, Message: "invalid chain id"}
	}
	if tx.Nonce() != c.nonces[from] {
		return nil, &rpcError{Code: -32000, Message: fmt.Sprintf("nonce too low: next nonce %d, tx nonce %d", c.nonces[from], tx.Nonce())}
	}
	value := valueOrZero(tx.Value())
	if valueOrZero(c.native[from]).Cmp(value) < 0 {
		return nil, &rpcError{Code: -32000, Message: "insufficient funds for gas * price + value"}
	}

	record := Tx{
		Hash:  tx.Hash(),
		From:  from,
		Value: value,
		Nonce: tx.Nonce(),
		Gas:   tx.Gas(),
	}
	if tx.To() != nil {
		record.To = *tx.To()
	}
	status := types.ReceiptStatusSuccessful
	if method, args, ok := decodeCall(tx.Data()); ok {
		record.Method = method.Name
		record.Args = args
		if _, reverts := c.reverts[method.Name]; reverts || !c.apply(from, record.To, value, method.Name, args) {
			status = types.ReceiptStatusFailed
		}
	} else if value.Sign() > 0 {
		c.native[from] = new(big.Int).Sub(valueOrZero(c.native[from]), value)
		c.native[record.To] = new(big.Int).Add(valueOrZero(c.native[record.To]), value)
	}
	record.Status = status

	c.nonces[from]++
	c.block++
	c.txs = append(c.txs, record)
	c.receipts[record.Hash] = map[string]any{
		"type":              hexutil.EncodeUint64(uint64(tx.Type())),
		"transactionHash":   record.Hash.Hex(),
		"transactionIndex":  "0x0",
		"blockHash":         crypto.Keccak256Hash(new(big.Int).SetUint64(c.block).Bytes()).Hex(),
		"blockNumber":       hexutil.EncodeUint64(c.block),
		"from":              from.Hex(),
		"to":                record.To.Hex(),
		"cumulativeGasUsed": hexutil.EncodeUint64(TransferGas),
		"gasUsed":           hexutil.EncodeUint64(TransferGas),
		"effectiveGasPrice": hexutil.EncodeUint64(BaseFee + TipCap),
		"contractAddress":   nil,
		"logs":              []any{},
		"logsBloom":         hexutil.Encode(make([]byte, types.BloomByteLength)),
		"status":            hexutil.EncodeUint64(status),
	}
	return record.Hash.Hex(), nil
}

// apply mutates balances for a decoded call and reports whether it succeeded.
// Callers hold c.mu.
func (c *Chain) apply(from, to common.Address, value *big.Int, method string, args []any) bool {
	switch method {
	case "deposit":
		c.native[from] = new(big.Int).Sub(valueOrZero(c.native[from]), value)
		bal := c.tokenBalances(to)
		bal[from] = new(big.Int).Add(valueOrZero(bal[from]), value)
		return true
	case "withdraw":
		amount := args[0].(*big.Int)
		bal := c.tokenBalances(to)
		if valueOrZero(bal[from]).Cmp(amount) < 0 {
			return false
		}
		bal[from] = new(big.Int).Sub(bal[from], amount)
		c.native[from] = new(big.Int).Add(valueOrZero(c.native[from]), amount)
		return true
	case "approve":
		spender := args[0].(common.Address)
		c.tokenAllowances(to)[allowanceKey{from, spender}] = new(big.Int).Set(args[1].(*big.Int))
		return true
	case "supply":
		asset := args[0].(common.Address)
		amount := args[1].(*big.Int)
		bal := c.tokenBalances(asset)
		allowances := c.tokenAllowances(asset)
		key := allowanceKey{from, to}
		allowed := valueOrZero(allowances[key])
		if valueOrZero(bal[from]).Cmp(amount) < 0 || allowed.Cmp(amount) < 0 {
			return false
		}
		bal[from] = new(big.Int).Sub(bal[from], amount)
		if allowed.Cmp(math.MaxBig256) != 0 {
			allowances[key] = new(big.Int).Sub(allowed, amount)
		}
		return true
	default:
		return true
	}
}

func (c *Chain) tokenBalances(token common.Address) map[common.Address]*big.Int {
	bal, ok := c.balances[token]
	if !ok {
		bal = map[common.Address]*big.Int{}
		c.balances[token] = bal
	}
	return bal
}

func (c *Chain) tokenAllowances(token common.Address) map[allowanceKey]*big.Int {
	allowances, ok := c.allowances[token]
	if !ok {
		allowances = map[allowanceKey]*big.Int{}
		c.allowances[token] = allowances
	}
	return allowances
}

func decodeCall(data []byte) (*abi.Method, []any, bool) {
	if len(data) < 4 {
		return nil, nil, false
	}
	for _, parsed := range knownABIs {
		method, err := parsed.MethodById(data[:4])
		if err != nil {
			continue
		}
		args, err := method.Inputs.Unpack(data[4:])
		if err != nil {
			return nil, nil, false
		}
		return method, args, true
	}
	return nil, nil, false
}

func packUint(method *abi.Method, v *big.Int) (any, *rpcError) {
	out, err := method.Outputs.Pack(v)
	if err != nil {
		return nil, &rpcError{Code: -32603, Message: err.Error()}
	}
	return hexutil.Encode(out), nil
}

// EncodeRevertReason builds Error(string) revert data.
func EncodeRevertReason(reason string) []byte {
	stringTy, _ := abi.NewType("string", "", nil)
	encoded, err := abi.Arguments{{Type: stringTy}}.Pack(reason)
	if err != nil {
		panic(err)
	}
	return append(common.FromHex("0x08c379a0"), encoded...)
}

func revertError(reason string) *rpcError {
	return &rpcError{
		Code:    3,
		Message: "execution reverted: " + reason,
		Data:    hexutil.Encode(EncodeRevertReason(reason)),
	}
}

func param(req rpcRequest, i int, out any) *rpcError {
	if len(req.Params) <= i {
		return &rpcError{Code: -32602, Message: fmt.Sprintf("missing param %d", i)}
	}
	if err := json.Unmarshal(req.Params[i], out); err != nil {
		return &rpcError{Code: -32602, Message: fmt.Sprintf("invalid param %d: %v", i, err)}
	}
	return nil
}

func decodeID(raw json.RawMessage) any {
	if len(raw) == 0 {
		return 1
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return 1
	}
	return out
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
