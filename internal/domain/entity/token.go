package entity

// TokenInfo holds the details of a fungible token contract needed to format and parse amounts.
// Resolved once per contract per session and treated as immutable afterwards.
type TokenInfo struct {
	ChainID  uint64 `json:"chainId"`
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}
