package entity

import (
	"math/big"
	"time"

	"github.com/google/uuid"
)

// TransferMode selects what a batch sends.
type TransferMode string

const (
	NativeTransfer TransferMode = "native"
	TokenTransfer  TransferMode = "token"
)

// Valid reports whether the mode is one of the known values.
func (m TransferMode) Valid() bool {
	return m == NativeTransfer || m == TokenTransfer
}

// TransferStatus is the lifecycle stage of a single transfer.
type TransferStatus string

const (
	TransferPending TransferStatus = "pending"
	TransferSuccess TransferStatus = "success"
	TransferFailed  TransferStatus = "failed"
)

// TxRequest is an unsigned transaction handed to the wallet provider.
// Value is nil for contract calls without value.
type TxRequest struct {
	To    string
	Value *big.Int
	Data  []byte
}

// TransferResult tracks one recipient through submission and confirmation.
type TransferResult struct {
	Index           int            `json:"index"`
	Address         string         `json:"address"`
	Amount          string         `json:"amount"`
	Status          TransferStatus `json:"status"`
	TransactionHash string         `json:"transactionHash,omitempty"`
	ExplorerURL     string         `json:"explorerUrl,omitempty"`
	Error           string         `json:"error,omitempty"`
}

// Settled reports whether the result reached a terminal status.
func (r TransferResult) Settled() bool {
	return r.Status == TransferSuccess || r.Status == TransferFailed
}

// BatchReport is the outcome of one executor invocation.
type BatchReport struct {
	ID             uuid.UUID        `json:"id"`
	Mode           TransferMode     `json:"mode"`
	ChainID        uint64           `json:"chainId"`
	From           string           `json:"from"`
	Token          *TokenInfo       `json:"token,omitempty"`
	Results        []TransferResult `json:"results"`
	Succeeded      int              `json:"succeeded"`
	Failed         int              `json:"failed"`
	AbortReason    string           `json:"abortReason,omitempty"`
	FundingBalance *BalanceEntry    `json:"fundingBalance,omitempty"`
	RefreshError   string           `json:"refreshError,omitempty"`
	StartedAt      time.Time        `json:"startedAt"`
	FinishedAt     time.Time        `json:"finishedAt"`
}

// Tally recomputes the success and failure counters from Results.
func (r *BatchReport) Tally() {
	r.Succeeded, r.Failed = 0, 0
	for _, res := range r.Results {
		switch res.Status {
		case TransferSuccess:
			r.Succeeded++
		case TransferFailed:
			r.Failed++
		}
	}
}
