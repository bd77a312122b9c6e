package entity

import "math/big"

// BalanceRequestType defines the type of balance request.
type BalanceRequestType int

const (
	// NativeBalanceRequest requests the native balance of a wallet.
	NativeBalanceRequest BalanceRequestType = iota
	// TokenBalanceRequest requests the balance of a specific token for a wallet.
	TokenBalanceRequest
)

// Balance markers used in place of a formatted amount.
const (
	InvalidAddressMarker = "Invalid Address"
	ErrorMarker          = "Error"
)

// BalanceRequestItem represents a single item in a batch request for balances.
type BalanceRequestItem struct {
	Type          BalanceRequestType
	WalletAddress string
	TokenAddress  string
}

// BalanceResultItem represents the result of a single balance request from a batch.
// Error is per item; the batch call itself may still succeed.
type BalanceResultItem struct {
	WalletAddress string
	TokenAddress  string
	Balance       *big.Int
	Error         error
}

// BalanceEntry is one row of a balance check, either a formatted amount or one of the markers.
type BalanceEntry struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
	Symbol  string `json:"symbol"`
}

// OK reports whether the entry holds an actual balance.
func (e BalanceEntry) OK() bool {
	return e.Balance != InvalidAddressMarker && e.Balance != ErrorMarker
}
