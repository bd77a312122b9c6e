package connection

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"airdrop_multisend/internal/app/port"
	"airdrop_multisend/internal/domain/entity"
	"airdrop_multisend/internal/pkg/utils"
)

// ErrSwitchUnsupported is returned when the wallet cannot be asked to change chains.
var ErrSwitchUnsupported = errors.New("wallet does not support chain switching")

// BalanceFunc reads the funding balance of a session.
type BalanceFunc func(ctx context.Context, session port.Session) (entity.BalanceEntry, error)

// Manager owns the connection context. It is the only writer of the context; every
// change of state, account or chain bumps the epoch.
type Manager struct {
	mu sync.Mutex

	wallet   port.WalletProvider
	registry port.NetworkRegistry
	clients  port.BlockchainClientProvider
	logger   port.Logger

	state  entity.ConnectionContext
	reader port.BlockchainClient

	onReset []func()
	balance BalanceFunc
}

// NewManager creates a disconnected manager. wallet may be nil, in which case Connect
// fails with entity.ErrNoWallet.
func NewManager(wallet port.WalletProvider, registry port.NetworkRegistry, clients port.BlockchainClientProvider, logger port.Logger) *Manager {
	return &Manager{
		wallet:   wallet,
		registry: registry,
		clients:  clients,
		logger:   logger,
		state:    entity.ConnectionContext{State: entity.Disconnected},
	}
}

// OnReset registers fn to run whenever chain dependent state must be dropped
// (disconnect or chain change).
func (m *Manager) OnReset(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReset = append(m.onReset, fn)
}

// SetBalanceFunc enables funding balance refreshes after connect and context changes.
func (m *Manager) SetBalanceFunc(fn BalanceFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balance = fn
}

// Context returns a copy of the current connection context.
func (m *Manager) Context() entity.ConnectionContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

// Session returns the active session, or entity.ErrNotConnected.
func (m *Manager) Session() (port.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.State != entity.Connected {
		return port.Session{}, entity.ErrNotConnected
	}
	return port.Session{ConnectionContext: m.snapshot(), Signer: m.wallet, Reader: m.reader}, nil
}

// Validate reports entity.ErrStaleContext if the context changed since epoch.
func (m *Manager) Validate(epoch uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Epoch != epoch || m.state.State != entity.Connected {
		return entity.ErrStaleContext
	}
	return nil
}

// RecordBalance stores entry as the funding balance if epoch is still current.
func (m *Manager) RecordBalance(epoch uint64, entry entity.BalanceEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Epoch != epoch || m.state.State != entity.Connected {
		return
	}
	m.state.Balance = &entry
}

// Connect asks the wallet for an account and captures the active chain.
// Connecting while already connected returns the current context unchanged.
func (m *Manager) Connect(ctx context.Context) (entity.ConnectionContext, error) {
	m.mu.Lock()
	if m.wallet == nil {
		m.mu.Unlock()
		return entity.ConnectionContext{State: entity.Disconnected}, entity.ErrNoWallet
	}
	switch m.state.State {
	case entity.Connecting:
		m.mu.Unlock()
		return entity.ConnectionContext{}, entity.ErrConnectInProgress
	case entity.Connected:
		current := m.snapshot()
		m.mu.Unlock()
		return current, nil
	}
	m.state = entity.ConnectionContext{State: entity.Connecting, Epoch: m.state.Epoch + 1}
	attempt := m.state.Epoch
	m.mu.Unlock()

	accounts, err := m.wallet.RequestAccounts(ctx)
	if err == nil && len(accounts) == 0 {
		err = entity.ErrNoAccounts
	}
	var chainID uint64
	if err == nil {
		chainID, err = m.wallet.ChainID(ctx)
	}
	var account string
	if err == nil {
		var ok bool
		if account, ok = utils.NormalizeAddress(accounts[0]); !ok {
			err = fmt.Errorf("wallet returned malformed account %q", accounts[0])
		}
	}

	var (
		network *entity.NetworkDefinition
		reader  port.BlockchainClient
	)
	if err == nil {
		network, reader = m.resolveChain(chainID)
	}

	m.mu.Lock()
	if m.state.State != entity.Connecting || m.state.Epoch != attempt {
		m.mu.Unlock()
		return entity.ConnectionContext{}, entity.ErrStaleContext
	}
	if err != nil {
		m.state = entity.ConnectionContext{State: entity.Disconnected, Epoch: m.state.Epoch + 1}
		m.mu.Unlock()
		m.logger.Warn("Wallet connection failed", "error", err)
		return entity.ConnectionContext{State: entity.Disconnected}, fmt.Errorf("connect wallet: %w", err)
	}

	m.state.State = entity.Connected
	m.state.Account = account
	m.state.ChainID = chainID
	m.state.Network = network
	m.state.Epoch++
	m.reader = reader
	m.mu.Unlock()

	m.logger.Info("Wallet connected", "account", account, "chain_id", chainID)
	m.refreshBalance(ctx)
	return m.Context(), nil
}

// Disconnect clears the context and drops all chain dependent state.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	wasConnected := m.state.State != entity.Disconnected
	m.state = entity.ConnectionContext{State: entity.Disconnected, Epoch: m.state.Epoch + 1}
	m.reader = nil
	hooks := append([]func(){}, m.onReset...)
	m.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	if wasConnected {
		m.logger.Info("Wallet disconnected")
	}
}

// SwitchChain asks the wallet to move to chainID and applies the change right away.
func (m *Manager) SwitchChain(ctx context.Context, chainID uint64) (entity.ConnectionContext, error) {
	if _, err := m.registry.Lookup(chainID); err != nil {
		return m.Context(), err
	}
	switcher, ok := m.wallet.(port.ChainSwitcher)
	if !ok {
		return m.Context(), ErrSwitchUnsupported
	}
	if m.Context().State != entity.Connected {
		return m.Context(), entity.ErrNotConnected
	}
	if err := switcher.SwitchChain(ctx, chainID); err != nil {
		return m.Context(), fmt.Errorf("switch chain: %w", err)
	}
	m.HandleEvent(ctx, entity.WalletEvent{Kind: entity.ChainChanged, ChainID: chainID})
	return m.Context(), nil
}

// Watch applies wallet events until ctx is done or the event channel closes.
func (m *Manager) Watch(ctx context.Context) {
	if m.wallet == nil {
		return
	}
	events := m.wallet.Events()
	if events == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			m.HandleEvent(ctx, ev)
		}
	}
}

// HandleEvent applies one wallet notification. Events are ignored unless connected.
func (m *Manager) HandleEvent(ctx context.Context, ev entity.WalletEvent) {
	m.mu.Lock()
	if m.state.State != entity.Connected {
		m.mu.Unlock()
		m.logger.Debug("Wallet event ignored while not connected", "kind", ev.Kind)
		return
	}

	switch ev.Kind {
	case entity.AccountsChanged:
		if len(ev.Accounts) == 0 {
			m.mu.Unlock()
			m.logger.Info("Wallet revoked all accounts")
			m.Disconnect()
			return
		}
		account, ok := utils.NormalizeAddress(ev.Accounts[0])
		if !ok {
			m.mu.Unlock()
			m.logger.Warn("Ignoring malformed account from wallet", "account", ev.Accounts[0])
			return
		}
		if account == m.state.Account {
			m.mu.Unlock()
			return
		}
		m.state.Account = account
		m.state.Balance = nil
		m.state.Epoch++
		m.mu.Unlock()
		m.logger.Info("Wallet account changed", "account", account)

	case entity.ChainChanged:
		if ev.ChainID == m.state.ChainID {
			m.mu.Unlock()
			return
		}
		m.state.Epoch++
		m.state.ChainID = ev.ChainID
		m.state.Network = nil
		m.state.Balance = nil
		m.reader = nil
		epoch := m.state.Epoch
		hooks := append([]func(){}, m.onReset...)
		m.mu.Unlock()
		for _, fn := range hooks {
			fn()
		}

		network, reader := m.resolveChain(ev.ChainID)
		m.mu.Lock()
		if m.state.State != entity.Connected || m.state.Epoch != epoch {
			m.mu.Unlock()
			return
		}
		m.state.Network = network
		m.reader = reader
		m.mu.Unlock()
		m.logger.Info("Wallet chain changed", "chain_id", ev.ChainID)

	default:
		m.mu.Unlock()
		return
	}

	m.refreshBalance(ctx)
}

// resolveChain looks chainID up and dials its client. An unsupported chain or an
// unreachable RPC yields no network or no reader. Dialing can take the connect timeout
// of every endpoint, so m.mu must not be held.
func (m *Manager) resolveChain(chainID uint64) (*entity.NetworkDefinition, port.BlockchainClient) {
	def, err := m.registry.Lookup(chainID)
	if err != nil {
		m.logger.Warn("Wallet is on an unsupported network", "chain_id", chainID)
		return nil, nil
	}
	reader, err := m.clients.GetClient(def)
	if err != nil {
		m.logger.Error("Failed to create client for network", "network", def.Name, "error", err)
		return &def, nil
	}
	return &def, reader
}

func (m *Manager) refreshBalance(ctx context.Context) {
	m.mu.Lock()
	fn := m.balance
	m.mu.Unlock()
	if fn == nil {
		return
	}
	session, err := m.Session()
	if err != nil || session.Reader == nil {
		return
	}
	entry, err := fn(ctx, session)
	if err != nil {
		m.logger.Warn("Failed to refresh funding balance", "account", session.Account, "error", err)
		return
	}
	m.RecordBalance(session.Epoch, entry)
}

// snapshot copies the context so callers never share the network pointer.
func (m *Manager) snapshot() entity.ConnectionContext {
	out := m.state
	if m.state.Network != nil {
		def := *m.state.Network
		out.Network = &def
	}
	if m.state.Balance != nil {
		b := *m.state.Balance
		out.Balance = &b
	}
	return out
}
