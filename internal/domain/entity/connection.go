package entity

// ConnectionState is the state of the wallet connection.
type ConnectionState string

const (
	Disconnected ConnectionState = "disconnected"
	Connecting   ConnectionState = "connecting"
	Connected    ConnectionState = "connected"
)

// ConnectionContext is the data part of an active wallet connection.
// Epoch changes on every mutation (account switch, chain switch, disconnect),
// so holders of an older copy can detect that they are stale.
type ConnectionContext struct {
	State   ConnectionState    `json:"state"`
	Account string             `json:"account,omitempty"`
	ChainID uint64             `json:"chainId,omitempty"`
	Network *NetworkDefinition `json:"network,omitempty"`
	Balance *BalanceEntry      `json:"balance,omitempty"`
	Epoch   uint64             `json:"epoch"`
}

// WalletEventKind distinguishes wallet notifications.
type WalletEventKind int

const (
	AccountsChanged WalletEventKind = iota
	ChainChanged
)

// WalletEvent is a notification pushed by the wallet provider.
type WalletEvent struct {
	Kind     WalletEventKind
	Accounts []string
	ChainID  uint64
}
