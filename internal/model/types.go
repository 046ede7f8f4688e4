package model

import (
	"time"

	"github.com/ggonzalez94/rise-pilot/internal/execution"
)

const EnvelopeVersion = "v1"

type Envelope struct {
	Version  string       `json:"version"`
	Success  bool         `json:"success"`
	Data     any          `json:"data,omitempty"`
	Error    *ErrorBody   `json:"error"`
	Warnings []string     `json:"warnings,omitempty"`
	Meta     EnvelopeMeta `json:"meta"`
}

type ErrorBody struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

type EnvelopeMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Command   string    `json:"command"`
	Chain     string    `json:"chain,omitempty"`
	Partial   bool      `json:"partial"`
}

// RunReport summarizes one run over all accounts.
type RunReport struct {
	Chain       string          `json:"chain"`
	Actions     []string        `json:"actions"`
	StartedAt   time.Time       `json:"started_at"`
	Duration    string          `json:"duration"`
	Succeeded   int             `json:"succeeded"`
	Failed      int             `json:"failed"`
	NothingToDo int             `json:"nothing_to_do"`
	Accounts    []AccountReport `json:"accounts"`
}

type AccountReport struct {
	Index   int            `json:"index"`
	Address string         `json:"address"`
	Proxy   string         `json:"proxy"`
	Actions []ActionReport `json:"actions"`
	Error   *ErrorBody     `json:"error,omitempty"`
}

type ActionReport struct {
	Action       string              `json:"action"`
	NothingToDo  bool                `json:"nothing_to_do"`
	Token        string              `json:"token,omitempty"`
	Amount       string              `json:"amount,omitempty"`
	Transactions []execution.Outcome `json:"transactions,omitempty"`
	Error        *ErrorBody          `json:"error,omitempty"`
}

type AccountListing struct {
	Index   int    `json:"index"`
	Address string `json:"address"`
	Proxy   string `json:"proxy"`
}

type ChainStatus struct {
	Name        string `json:"name"`
	ChainID     int64  `json:"chain_id"`
	RPCURL      string `json:"rpc_url"`
	Proxy       string `json:"proxy"`
	BlockNumber uint64 `json:"block_number"`
	Symbol      string `json:"symbol"`
}
