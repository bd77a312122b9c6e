package port

import "airdrop_multisend/internal/domain/entity"

// Session is a borrowed, read-only view of an active connection. It stays valid only
// while Validate(Epoch) succeeds.
type Session struct {
	entity.ConnectionContext
	Signer WalletProvider
	Reader BlockchainClient
}

// SessionSource hands out the current session and detects stale copies.
type SessionSource interface {
	// Session fails with entity.ErrNotConnected unless a wallet is connected.
	Session() (Session, error)
	// Validate fails with entity.ErrStaleContext once the connection changed after epoch.
	Validate(epoch uint64) error
	// RecordBalance stores the funding balance if epoch is still current.
	RecordBalance(epoch uint64, entry entity.BalanceEntry)
}
