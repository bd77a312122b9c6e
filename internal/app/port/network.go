package port

import (
	"context"
	"math/big"

	"airdrop_multisend/internal/domain/entity"
)

// BlockchainClient is the chain read boundary of one network.
// Implementations will be specific to network types; only EVM chains exist today.
type BlockchainClient interface {
	// GetNativeBalance fetches the native currency balance (e.g., ETH, BNB) for a wallet.
	GetNativeBalance(ctx context.Context, walletAddress string) (*big.Int, error)

	// GetTokenBalance calls balanceOf on tokenAddress for walletAddress.
	GetTokenBalance(ctx context.Context, tokenAddress string, walletAddress string) (*big.Int, error)

	// GetBalances fetches many balances in one round trip. Per-item failures are
	// reported in the item; the error is for the round trip as a whole.
	GetBalances(ctx context.Context, requests []entity.BalanceRequestItem) ([]entity.BalanceResultItem, error)

	TokenSymbol(ctx context.Context, tokenAddress string) (string, error)
	TokenDecimals(ctx context.Context, tokenAddress string) (uint8, error)

	// HasCode reports whether a contract is deployed at address.
	HasCode(ctx context.Context, address string) (bool, error)

	BlockNumber(ctx context.Context) (uint64, error)

	// WaitMined blocks until the transaction is included and fails if it reverted.
	WaitMined(ctx context.Context, txHash string) error

	// Definition returns the network definition associated with this client.
	Definition() entity.NetworkDefinition
}

// NetworkRegistry resolves network definitions.
type NetworkRegistry interface {
	Lookup(chainID uint64) (entity.NetworkDefinition, error)
	LookupByIdentifier(identifier string) (entity.NetworkDefinition, error)
	All() []entity.NetworkDefinition
}

// BlockchainClientProvider hands out clients, one per network.
type BlockchainClientProvider interface {
	GetClient(networkDefinition entity.NetworkDefinition) (BlockchainClient, error)
}

// TransferEncoder builds the calldata of a token transfer to `to`.
type TransferEncoder func(to string, amount *big.Int) ([]byte, error)
