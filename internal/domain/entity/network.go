package entity

import "strings"

// NetworkDefinition holds the configuration for a specific blockchain network.
// This structure is defined at the domain level to be used across application and infrastructure layers.
type NetworkDefinition struct {
	ChainID          uint64   `json:"chainId" yaml:"chainId"`
	Name             string   `json:"name" yaml:"name"`
	Identifier       string   `json:"identifier" yaml:"identifier"` // short lowercase key, e.g. "ethereum", "bsc"
	NativeSymbol     string   `json:"nativeSymbol" yaml:"nativeSymbol"`
	Decimals         uint8    `json:"decimals" yaml:"decimals"`
	PrimaryRPCURL    string   `json:"primaryRpcUrl" yaml:"primaryRpcUrl"`
	FallbackRPCURLs  []string `json:"fallbackRpcUrls,omitempty" yaml:"fallbackRpcUrls,omitempty"`
	BlockExplorerURL string   `json:"blockExplorerUrl" yaml:"blockExplorerUrl"`
}

// RPCURLs returns the primary endpoint followed by the fallbacks.
func (n NetworkDefinition) RPCURLs() []string {
	urls := make([]string, 0, 1+len(n.FallbackRPCURLs))
	if n.PrimaryRPCURL != "" {
		urls = append(urls, n.PrimaryRPCURL)
	}
	return append(urls, n.FallbackRPCURLs...)
}

// TxURL returns the block explorer link for a transaction hash.
func (n NetworkDefinition) TxURL(txHash string) string {
	if n.BlockExplorerURL == "" || txHash == "" {
		return ""
	}
	return strings.TrimRight(n.BlockExplorerURL, "/") + "/tx/" + txHash
}

// AddressURL returns the block explorer link for an account or contract.
func (n NetworkDefinition) AddressURL(address string) string {
	if n.BlockExplorerURL == "" || address == "" {
		return ""
	}
	return strings.TrimRight(n.BlockExplorerURL, "/") + "/address/" + address
}
