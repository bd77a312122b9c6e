package port

import (
	"context"

	"airdrop_multisend/internal/domain/entity"
)

// WalletProvider is the signing boundary: an external wallet that owns the keys.
type WalletProvider interface {
	// RequestAccounts asks the wallet for account access. An empty result means no access.
	RequestAccounts(ctx context.Context) ([]string, error)
	// ChainID reports the chain the wallet is currently on.
	ChainID(ctx context.Context) (uint64, error)
	// SendTransaction signs and broadcasts tx from the given account and returns its hash.
	SendTransaction(ctx context.Context, from string, tx entity.TxRequest) (string, error)
	// Events delivers account and chain change notifications.
	Events() <-chan entity.WalletEvent
}

// ChainSwitcher is implemented by wallets that can be asked to change chains.
type ChainSwitcher interface {
	SwitchChain(ctx context.Context, chainID uint64) error
}
