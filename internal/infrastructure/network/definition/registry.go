package networkdefinition

import (
	"fmt"
	"sort"
	"strings"

	"airdrop_multisend/internal/app/port"
	"airdrop_multisend/internal/domain/entity"
)

// Predefined network definitions
var ( //nolint:gochecknoglobals // Global for definitions
	Ethereum = entity.NetworkDefinition{
		ChainID:          1,
		Name:             "Ethereum",
		Identifier:       "ethereum",
		NativeSymbol:     "ETH",
		Decimals:         18,
		PrimaryRPCURL:    "https://eth.llamarpc.com",
		FallbackRPCURLs:  []string{"https://ethereum-rpc.publicnode.com", "https://rpc.ankr.com/eth"},
		BlockExplorerURL: "https://etherscan.io",
	}
	BSC = entity.NetworkDefinition{
		ChainID:          56,
		Name:             "BSC",
		Identifier:       "bsc",
		NativeSymbol:     "BNB",
		Decimals:         18,
		PrimaryRPCURL:    "https://bsc-dataseed.binance.org",
		FallbackRPCURLs:  []string{"https://bsc-dataseed2.binance.org", "https://bsc.publicnode.com"},
		BlockExplorerURL: "https://bscscan.com",
	}
	Polygon = entity.NetworkDefinition{
		ChainID:          137,
		Name:             "Polygon",
		Identifier:       "polygon",
		NativeSymbol:     "MATIC",
		Decimals:         18,
		PrimaryRPCURL:    "https://polygon-rpc.com",
		FallbackRPCURLs:  []string{"https://polygon.publicnode.com", "https://rpc.ankr.com/polygon"},
		BlockExplorerURL: "https://polygonscan.com",
	}
	Arbitrum = entity.NetworkDefinition{
		ChainID:          42161,
		Name:             "Arbitrum",
		Identifier:       "arbitrum",
		NativeSymbol:     "ETH",
		Decimals:         18,
		PrimaryRPCURL:    "https://arb1.arbitrum.io/rpc",
		FallbackRPCURLs:  []string{"https://arbitrum-one.publicnode.com"},
		BlockExplorerURL: "https://arbiscan.io",
	}
	Optimism = entity.NetworkDefinition{
		ChainID:          10,
		Name:             "Optimism",
		Identifier:       "optimism",
		NativeSymbol:     "ETH",
		Decimals:         18,
		PrimaryRPCURL:    "https://mainnet.optimism.io",
		FallbackRPCURLs:  []string{"https://op-pokt.nodies.app"},
		BlockExplorerURL: "https://optimistic.etherscan.io",
	}
	Base = entity.NetworkDefinition{
		ChainID:          8453,
		Name:             "Base",
		Identifier:       "base",
		NativeSymbol:     "ETH",
		Decimals:         18,
		PrimaryRPCURL:    "https://mainnet.base.org",
		FallbackRPCURLs:  []string{"https://1rpc.io/base"},
		BlockExplorerURL: "https://basescan.org",
	}
	Avalanche = entity.NetworkDefinition{
		ChainID:          43114,
		Name:             "Avalanche",
		Identifier:       "avalanche",
		NativeSymbol:     "AVAX",
		Decimals:         18,
		PrimaryRPCURL:    "https://api.avax.network/ext/bc/C/rpc",
		FallbackRPCURLs:  []string{"https://avalanche-c-chain-rpc.publicnode.com"},
		BlockExplorerURL: "https://snowtrace.io",
	}
	Fantom = entity.NetworkDefinition{
		ChainID:          250,
		Name:             "Fantom",
		Identifier:       "fantom",
		NativeSymbol:     "FTM",
		Decimals:         18,
		PrimaryRPCURL:    "https://rpc.ftm.tools",
		FallbackRPCURLs:  []string{"https://1rpc.io/ftm"},
		BlockExplorerURL: "https://ftmscan.com",
	}
	Linea = entity.NetworkDefinition{
		ChainID:          59144,
		Name:             "Linea",
		Identifier:       "linea",
		NativeSymbol:     "ETH",
		Decimals:         18,
		PrimaryRPCURL:    "https://rpc.linea.build",
		BlockExplorerURL: "https://lineascan.build",
	}
	Scroll = entity.NetworkDefinition{
		ChainID:          534352,
		Name:             "Scroll",
		Identifier:       "scroll",
		NativeSymbol:     "ETH",
		Decimals:         18,
		PrimaryRPCURL:    "https://rpc.scroll.io",
		BlockExplorerURL: "https://scrollscan.com",
	}
	ZkSync = entity.NetworkDefinition{ // zkSync Era
		ChainID:          324,
		Name:             "zkSync Era",
		Identifier:       "zksync",
		NativeSymbol:     "ETH",
		Decimals:         18,
		PrimaryRPCURL:    "https://mainnet.era.zksync.io",
		BlockExplorerURL: "https://explorer.zksync.io",
	}
)

// DefaultDefinitions returns the built-in table.
func DefaultDefinitions() []entity.NetworkDefinition {
	return []entity.NetworkDefinition{
		Ethereum, BSC, Polygon, Arbitrum, Optimism, Base, Avalanche, Fantom,
		Linea, Scroll, ZkSync,
	}
}

// RPCOverride replaces the endpoints of one network, typically from config.
type RPCOverride struct {
	ChainID         uint64
	PrimaryRPCURL   string
	FallbackRPCURLs []string
}

// Registry is an immutable chain id -> network table.
type Registry struct {
	byChainID    map[uint64]entity.NetworkDefinition
	byIdentifier map[string]uint64
}

var _ port.NetworkRegistry = (*Registry)(nil)

// NewRegistry builds a registry from defs and applies overrides. Overrides for unknown
// chain ids and duplicate definitions are reported as errors.
func NewRegistry(defs []entity.NetworkDefinition, overrides []RPCOverride) (*Registry, error) {
	r := &Registry{
		byChainID:    make(map[uint64]entity.NetworkDefinition, len(defs)),
		byIdentifier: make(map[string]uint64, len(defs)),
	}
	for _, def := range defs {
		if _, dup := r.byChainID[def.ChainID]; dup {
			return nil, fmt.Errorf("duplicate network definition for chain id %d", def.ChainID)
		}
		def.FallbackRPCURLs = append([]string(nil), def.FallbackRPCURLs...)
		r.byChainID[def.ChainID] = def
		r.byIdentifier[strings.ToLower(def.Identifier)] = def.ChainID
	}

	for _, o := range overrides {
		def, ok := r.byChainID[o.ChainID]
		if !ok {
			return nil, fmt.Errorf("rpc override for chain id %d: %w", o.ChainID, &entity.UnsupportedNetworkError{ChainID: o.ChainID})
		}
		if o.PrimaryRPCURL != "" {
			def.PrimaryRPCURL = o.PrimaryRPCURL
		}
		if len(o.FallbackRPCURLs) > 0 {
			def.FallbackRPCURLs = append([]string(nil), o.FallbackRPCURLs...)
		}
		r.byChainID[o.ChainID] = def
	}
	return r, nil
}

// NewDefaultRegistry returns the built-in table with overrides applied.
func NewDefaultRegistry(overrides []RPCOverride) (*Registry, error) {
	return NewRegistry(DefaultDefinitions(), overrides)
}

// Lookup returns the network for chainID or an *entity.UnsupportedNetworkError.
func (r *Registry) Lookup(chainID uint64) (entity.NetworkDefinition, error) {
	def, ok := r.byChainID[chainID]
	if !ok {
		return entity.NetworkDefinition{}, &entity.UnsupportedNetworkError{ChainID: chainID}
	}
	return copyDef(def), nil
}

// LookupByIdentifier resolves a network by its short name, case-insensitively.
func (r *Registry) LookupByIdentifier(identifier string) (entity.NetworkDefinition, error) {
	chainID, ok := r.byIdentifier[strings.ToLower(strings.TrimSpace(identifier))]
	if !ok {
		return entity.NetworkDefinition{}, &entity.UnsupportedNetworkError{Identifier: identifier}
	}
	return r.Lookup(chainID)
}

// All returns every network ordered by chain id.
func (r *Registry) All() []entity.NetworkDefinition {
	defs := make([]entity.NetworkDefinition, 0, len(r.byChainID))
	for _, def := range r.byChainID {
		defs = append(defs, copyDef(def))
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ChainID < defs[j].ChainID })
	return defs
}

func copyDef(def entity.NetworkDefinition) entity.NetworkDefinition {
	def.FallbackRPCURLs = append([]string(nil), def.FallbackRPCURLs...)
	return def
}
