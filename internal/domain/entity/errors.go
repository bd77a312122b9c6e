package entity

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedNetwork    = errors.New("unsupported network")
	ErrInvalidContract       = errors.New("invalid token contract address")
	ErrContractRead          = errors.New("token contract read failed")
	ErrNoWallet              = errors.New("no wallet provider available")
	ErrNoAccounts            = errors.New("wallet returned no accounts")
	ErrConnectInProgress     = errors.New("wallet connection already in progress")
	ErrNotConnected          = errors.New("wallet is not connected")
	ErrStaleContext          = errors.New("connection context changed")
	ErrEmptyRecipients       = errors.New("recipient list is empty")
	ErrTokenContractRequired = errors.New("token mode requires a token contract address")
	ErrInvalidMode           = errors.New("unknown transfer mode")
	ErrBatchInFlight         = errors.New("a batch is already in flight")
	ErrRPCUnavailable        = errors.New("rpc endpoint unavailable")
)

// UnsupportedNetworkError is returned by the network registry for unknown chains.
type UnsupportedNetworkError struct {
	ChainID    uint64
	Identifier string
}

func (e *UnsupportedNetworkError) Error() string {
	if e.Identifier != "" {
		return fmt.Sprintf("unsupported network %q", e.Identifier)
	}
	return fmt.Sprintf("unsupported network: chain id %d", e.ChainID)
}

func (e *UnsupportedNetworkError) Unwrap() error { return ErrUnsupportedNetwork }

// InvalidContractError reports a token contract that is not address-shaped.
type InvalidContractError struct {
	Address string
}

func (e *InvalidContractError) Error() string {
	return fmt.Sprintf("invalid token contract address %q", e.Address)
}

func (e *InvalidContractError) Unwrap() error { return ErrInvalidContract }

// ContractReadError reports a failed symbol/decimals read.
type ContractReadError struct {
	Address string
	Method  string
	Err     error
}

func (e *ContractReadError) Error() string {
	return fmt.Sprintf("failed to read %s() from %s: %v", e.Method, e.Address, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *ContractReadError) Unwrap() []error { return []error{ErrContractRead, e.Err} }
