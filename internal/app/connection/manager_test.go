package connection

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"airdrop_multisend/internal/app/port"
	"airdrop_multisend/internal/domain/entity"
	networkdefinition "airdrop_multisend/internal/infrastructure/network/definition"
	"airdrop_multisend/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	accountA = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"
	accountB = "0xde0B295669a9FD93d5F28D9Ec85E40f4cb697BAe"
)

type stubWallet struct {
	mu        sync.Mutex
	accounts  []string
	chainID   uint64
	err       error
	gate      chan struct{}
	events    chan entity.WalletEvent
	switchErr error
	switched  []uint64
}

func newStubWallet() *stubWallet {
	return &stubWallet{accounts: []string{strings.ToLower(accountA)}, chainID: 1, events: make(chan entity.WalletEvent, 4)}
}

func (w *stubWallet) RequestAccounts(ctx context.Context) ([]string, error) {
	if w.gate != nil {
		select {
		case <-w.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.accounts, w.err
}

func (w *stubWallet) ChainID(context.Context) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.chainID, nil
}

func (w *stubWallet) SendTransaction(context.Context, string, entity.TxRequest) (string, error) {
	return "", errors.New("not used")
}

func (w *stubWallet) Events() <-chan entity.WalletEvent { return w.events }

func (w *stubWallet) SwitchChain(_ context.Context, chainID uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.switchErr != nil {
		return w.switchErr
	}
	w.chainID = chainID
	w.switched = append(w.switched, chainID)
	return nil
}

// stubReader only reports its network; the manager never reads through it.
type stubReader struct {
	port.BlockchainClient
	def entity.NetworkDefinition
}

func (r stubReader) Definition() entity.NetworkDefinition { return r.def }

type stubClients struct{}

func (stubClients) GetClient(def entity.NetworkDefinition) (port.BlockchainClient, error) {
	return stubReader{def: def}, nil
}

// gatedClients holds GetClient for one chain until release is closed.
type gatedClients struct {
	chainID uint64
	entered chan struct{}
	release chan struct{}
}

func (c *gatedClients) GetClient(def entity.NetworkDefinition) (port.BlockchainClient, error) {
	if def.ChainID == c.chainID {
		close(c.entered)
		<-c.release
	}
	return stubReader{def: def}, nil
}

func newTestManager(t *testing.T, wallet port.WalletProvider) *Manager {
	t.Helper()
	registry, err := networkdefinition.NewDefaultRegistry(nil)
	require.NoError(t, err)
	return NewManager(wallet, registry, stubClients{}, logger.NewDiscardAdapter())
}

func TestManager_ConnectWithoutWallet(t *testing.T) {
	m := newTestManager(t, nil)

	cc, err := m.Connect(context.Background())
	assert.ErrorIs(t, err, entity.ErrNoWallet)
	assert.Equal(t, entity.Disconnected, cc.State)
	assert.Equal(t, entity.Disconnected, m.Context().State)
}

func TestManager_Connect(t *testing.T) {
	m := newTestManager(t, newStubWallet())

	cc, err := m.Connect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, entity.Connected, cc.State)
	assert.Equal(t, accountA, cc.Account)
	assert.Equal(t, uint64(1), cc.ChainID)
	require.NotNil(t, cc.Network)
	assert.Equal(t, "ETH", cc.Network.NativeSymbol)

	session, err := m.Session()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), session.Reader.Definition().ChainID)
	assert.NoError(t, m.Validate(session.Epoch))

	again, err := m.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cc.Epoch, again.Epoch)
}

func TestManager_ConnectRejected(t *testing.T) {
	for name, setup := range map[string]func(w *stubWallet){
		"user rejected": func(w *stubWallet) { w.err = errors.New("user rejected the request") },
		"no accounts":   func(w *stubWallet) { w.accounts = nil },
	} {
		t.Run(name, func(t *testing.T) {
			w := newStubWallet()
			setup(w)
			m := newTestManager(t, w)

			_, err := m.Connect(context.Background())
			require.Error(t, err)
			assert.Equal(t, entity.Disconnected, m.Context().State)

			_, err = m.Session()
			assert.ErrorIs(t, err, entity.ErrNotConnected)
		})
	}
}

func TestManager_ConnectInProgress(t *testing.T) {
	w := newStubWallet()
	w.gate = make(chan struct{})
	m := newTestManager(t, w)

	done := make(chan error, 1)
	go func() {
		_, err := m.Connect(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool { return m.Context().State == entity.Connecting }, time.Second, 5*time.Millisecond)
	_, err := m.Connect(context.Background())
	assert.ErrorIs(t, err, entity.ErrConnectInProgress)

	close(w.gate)
	require.NoError(t, <-done)
	assert.Equal(t, entity.Connected, m.Context().State)
}

func TestManager_DisconnectDuringConnect(t *testing.T) {
	w := newStubWallet()
	w.gate = make(chan struct{})
	m := newTestManager(t, w)

	done := make(chan error, 1)
	go func() {
		_, err := m.Connect(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return m.Context().State == entity.Connecting }, time.Second, 5*time.Millisecond)

	m.Disconnect()
	close(w.gate)

	assert.ErrorIs(t, <-done, entity.ErrStaleContext)
	assert.Equal(t, entity.Disconnected, m.Context().State)
}

func TestManager_AccountsChanged(t *testing.T) {
	m := newTestManager(t, newStubWallet())
	_, err := m.Connect(context.Background())
	require.NoError(t, err)
	before := m.Context()

	m.HandleEvent(context.Background(), entity.WalletEvent{Kind: entity.AccountsChanged, Accounts: []string{accountB}})
	after := m.Context()
	assert.Equal(t, entity.Connected, after.State)
	assert.Equal(t, accountB, after.Account)
	assert.Equal(t, before.ChainID, after.ChainID)
	assert.Greater(t, after.Epoch, before.Epoch)
	assert.ErrorIs(t, m.Validate(before.Epoch), entity.ErrStaleContext)

	m.HandleEvent(context.Background(), entity.WalletEvent{Kind: entity.AccountsChanged, Accounts: []string{accountB}})
	assert.Equal(t, after.Epoch, m.Context().Epoch, "same account is not a change")
}

func TestManager_AccountsRevoked(t *testing.T) {
	m := newTestManager(t, newStubWallet())
	resets := 0
	m.OnReset(func() { resets++ })
	_, err := m.Connect(context.Background())
	require.NoError(t, err)

	m.HandleEvent(context.Background(), entity.WalletEvent{Kind: entity.AccountsChanged})

	cc := m.Context()
	assert.Equal(t, entity.Disconnected, cc.State)
	assert.Empty(t, cc.Account)
	assert.Zero(t, cc.ChainID)
	assert.Equal(t, 1, resets)
}

func TestManager_ChainChanged(t *testing.T) {
	m := newTestManager(t, newStubWallet())
	resets := 0
	m.OnReset(func() { resets++ })
	_, err := m.Connect(context.Background())
	require.NoError(t, err)
	before := m.Context()
	m.RecordBalance(before.Epoch, entity.BalanceEntry{Address: accountA, Balance: "1.000000", Symbol: "ETH"})
	require.NotNil(t, m.Context().Balance)

	m.HandleEvent(context.Background(), entity.WalletEvent{Kind: entity.ChainChanged, ChainID: 137})

	after := m.Context()
	assert.Equal(t, uint64(137), after.ChainID)
	require.NotNil(t, after.Network)
	assert.Equal(t, "MATIC", after.Network.NativeSymbol)
	assert.Nil(t, after.Balance, "funding balance belongs to the old chain")
	assert.Equal(t, 1, resets)
	assert.ErrorIs(t, m.Validate(before.Epoch), entity.ErrStaleContext)

	// a balance read against the old epoch must not land on the new chain
	m.RecordBalance(before.Epoch, entity.BalanceEntry{Address: accountA, Balance: "9.000000"})
	assert.Nil(t, m.Context().Balance)
}

func TestManager_ChainChangedToUnsupported(t *testing.T) {
	m := newTestManager(t, newStubWallet())
	_, err := m.Connect(context.Background())
	require.NoError(t, err)

	m.HandleEvent(context.Background(), entity.WalletEvent{Kind: entity.ChainChanged, ChainID: 31337})

	session, err := m.Session()
	require.NoError(t, err)
	assert.Equal(t, uint64(31337), session.ChainID)
	assert.Nil(t, session.Network)
	assert.Nil(t, session.Reader)
}

func TestManager_EventsIgnoredWhenDisconnected(t *testing.T) {
	m := newTestManager(t, newStubWallet())
	m.HandleEvent(context.Background(), entity.WalletEvent{Kind: entity.ChainChanged, ChainID: 56})
	assert.Equal(t, entity.ConnectionContext{State: entity.Disconnected}, m.Context())
}

func TestManager_Disconnect(t *testing.T) {
	m := newTestManager(t, newStubWallet())
	resets := 0
	m.OnReset(func() { resets++ })
	_, err := m.Connect(context.Background())
	require.NoError(t, err)
	epoch := m.Context().Epoch

	m.Disconnect()

	cc := m.Context()
	assert.Equal(t, entity.Disconnected, cc.State)
	assert.Empty(t, cc.Account)
	assert.Nil(t, cc.Network)
	assert.Nil(t, cc.Balance)
	assert.Equal(t, 1, resets)
	assert.ErrorIs(t, m.Validate(epoch), entity.ErrStaleContext)
}

func TestManager_BalanceRefresh(t *testing.T) {
	m := newTestManager(t, newStubWallet())
	m.SetBalanceFunc(func(_ context.Context, s port.Session) (entity.BalanceEntry, error) {
		wei := new(big.Int).SetUint64(s.ChainID)
		return entity.BalanceEntry{Address: s.Account, Balance: wei.String(), Symbol: s.Network.NativeSymbol}, nil
	})

	_, err := m.Connect(context.Background())
	require.NoError(t, err)
	require.NotNil(t, m.Context().Balance)
	assert.Equal(t, "1", m.Context().Balance.Balance)

	m.HandleEvent(context.Background(), entity.WalletEvent{Kind: entity.ChainChanged, ChainID: 56})
	require.NotNil(t, m.Context().Balance)
	assert.Equal(t, "56", m.Context().Balance.Balance)
	assert.Equal(t, "BNB", m.Context().Balance.Symbol)
}

func TestManager_SwitchChain(t *testing.T) {
	w := newStubWallet()
	m := newTestManager(t, w)
	_, err := m.Connect(context.Background())
	require.NoError(t, err)

	cc, err := m.SwitchChain(context.Background(), 8453)
	require.NoError(t, err)
	assert.Equal(t, uint64(8453), cc.ChainID)
	assert.Equal(t, []uint64{8453}, w.switched)

	_, err = m.SwitchChain(context.Background(), 424242)
	assert.ErrorIs(t, err, entity.ErrUnsupportedNetwork)
	assert.Equal(t, uint64(8453), m.Context().ChainID)
}

func TestManager_Watch(t *testing.T) {
	w := newStubWallet()
	m := newTestManager(t, w)
	_, err := m.Connect(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		m.Watch(ctx)
		close(stopped)
	}()

	w.events <- entity.WalletEvent{Kind: entity.ChainChanged, ChainID: 10}
	require.Eventually(t, func() bool { return m.Context().ChainID == 10 }, time.Second, 5*time.Millisecond)

	w.events <- entity.WalletEvent{Kind: entity.AccountsChanged, Accounts: []string{}}
	require.Eventually(t, func() bool { return m.Context().State == entity.Disconnected }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Watch did not stop after cancel")
	}
}

func TestManager_ChainChangeDoesNotHoldLockWhileDialing(t *testing.T) {
	registry, err := networkdefinition.NewDefaultRegistry(nil)
	require.NoError(t, err)
	clients := &gatedClients{chainID: 137, entered: make(chan struct{}), release: make(chan struct{})}
	m := NewManager(newStubWallet(), registry, clients, logger.NewDiscardAdapter())
	_, err = m.Connect(context.Background())
	require.NoError(t, err)
	before := m.Context()

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.HandleEvent(context.Background(), entity.WalletEvent{Kind: entity.ChainChanged, ChainID: 137})
	}()
	<-clients.entered

	reads := make(chan entity.ConnectionContext, 1)
	go func() {
		assert.ErrorIs(t, m.Validate(before.Epoch), entity.ErrStaleContext)
		reads <- m.Context()
	}()
	select {
	case cc := <-reads:
		assert.Equal(t, uint64(137), cc.ChainID)
		assert.Nil(t, cc.Network, "network is bound once the client is ready")
	case <-time.After(time.Second):
		t.Fatal("context reads blocked while the client was being created")
	}

	close(clients.release)
	<-done
	session, err := m.Session()
	require.NoError(t, err)
	require.NotNil(t, session.Network)
	assert.Equal(t, "MATIC", session.Network.NativeSymbol)
	assert.Equal(t, uint64(137), session.Reader.Definition().ChainID)
}

func TestManager_ChainChangeSupersededWhileDialing(t *testing.T) {
	registry, err := networkdefinition.NewDefaultRegistry(nil)
	require.NoError(t, err)
	clients := &gatedClients{chainID: 137, entered: make(chan struct{}), release: make(chan struct{})}
	m := NewManager(newStubWallet(), registry, clients, logger.NewDiscardAdapter())
	_, err = m.Connect(context.Background())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.HandleEvent(context.Background(), entity.WalletEvent{Kind: entity.ChainChanged, ChainID: 137})
	}()
	<-clients.entered
	m.Disconnect()
	close(clients.release)
	<-done

	cc := m.Context()
	assert.Equal(t, entity.Disconnected, cc.State)
	assert.Nil(t, cc.Network)
	_, err = m.Session()
	assert.ErrorIs(t, err, entity.ErrNotConnected)
}
