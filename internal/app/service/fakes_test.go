package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"airdrop_multisend/internal/app/port"
	"airdrop_multisend/internal/domain/entity"
)

const (
	addrA = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"
	addrB = "0xde0B295669a9FD93d5F28D9Ec85E40f4cb697BAe"
	addrC = "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"

	usdcAddr = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
)

var (
	testNetwork = entity.NetworkDefinition{
		ChainID:          1,
		Name:             "Ethereum",
		Identifier:       "ethereum",
		NativeSymbol:     "ETH",
		Decimals:         18,
		PrimaryRPCURL:    "http://rpc.invalid",
		BlockExplorerURL: "https://etherscan.io",
	}
	errRPCDown = errors.New("connection refused")
)

type fakeToken struct {
	symbol      string
	decimals    uint8
	symbolErr   error
	decimalsErr error
}

// fakeChain is an in-memory port.BlockchainClient.
type fakeChain struct {
	mu sync.Mutex

	def      entity.NetworkDefinition
	native   map[string]*big.Int
	tokenBal map[string]*big.Int // key: lower(token)+"/"+lower(wallet)
	tokens   map[string]*fakeToken
	code     map[string]bool
	failAddr map[string]bool

	blockErr  error
	batchErr  error
	nativeErr error
	waitErr   map[string]error
	waitHook  func(hash string)

	decimalsCalls int
	batchSizes    []int
	waited        []string
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		def:      testNetwork,
		native:   map[string]*big.Int{},
		tokenBal: map[string]*big.Int{},
		tokens:   map[string]*fakeToken{},
		code:     map[string]bool{},
		failAddr: map[string]bool{},
		waitErr:  map[string]error{},
	}
}

func (f *fakeChain) setNative(addr string, wei string) {
	v, _ := new(big.Int).SetString(wei, 10)
	f.native[strings.ToLower(addr)] = v
}

func (f *fakeChain) setToken(addr, symbol string, decimals uint8) *fakeToken {
	t := &fakeToken{symbol: symbol, decimals: decimals}
	f.tokens[strings.ToLower(addr)] = t
	f.code[strings.ToLower(addr)] = true
	return t
}

func (f *fakeChain) setTokenBalance(token, wallet, units string) {
	v, _ := new(big.Int).SetString(units, 10)
	f.tokenBal[strings.ToLower(token)+"/"+strings.ToLower(wallet)] = v
}

func (f *fakeChain) GetNativeBalance(_ context.Context, wallet string) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.nativeErr != nil {
		return nil, f.nativeErr
	}
	if f.failAddr[strings.ToLower(wallet)] {
		return nil, errRPCDown
	}
	if v, ok := f.native[strings.ToLower(wallet)]; ok {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

func (f *fakeChain) GetTokenBalance(_ context.Context, token, wallet string) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAddr[strings.ToLower(wallet)] {
		return nil, errRPCDown
	}
	if v, ok := f.tokenBal[strings.ToLower(token)+"/"+strings.ToLower(wallet)]; ok {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

func (f *fakeChain) GetBalances(ctx context.Context, requests []entity.BalanceRequestItem) ([]entity.BalanceResultItem, error) {
	f.mu.Lock()
	f.batchSizes = append(f.batchSizes, len(requests))
	batchErr := f.batchErr
	f.mu.Unlock()
	if batchErr != nil {
		return nil, batchErr
	}

	results := make([]entity.BalanceResultItem, len(requests))
	for i, req := range requests {
		results[i] = entity.BalanceResultItem{WalletAddress: req.WalletAddress, TokenAddress: req.TokenAddress}
		var err error
		if req.Type == entity.TokenBalanceRequest {
			results[i].Balance, err = f.GetTokenBalance(ctx, req.TokenAddress, req.WalletAddress)
		} else {
			results[i].Balance, err = f.GetNativeBalance(ctx, req.WalletAddress)
		}
		results[i].Error = err
	}
	return results, nil
}

func (f *fakeChain) TokenSymbol(_ context.Context, token string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[strings.ToLower(token)]
	if !ok {
		return "", errors.New("execution reverted")
	}
	return t.symbol, t.symbolErr
}

func (f *fakeChain) TokenDecimals(_ context.Context, token string) (uint8, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decimalsCalls++
	t, ok := f.tokens[strings.ToLower(token)]
	if !ok {
		return 0, errors.New("abi: attempting to unmarshal an empty string")
	}
	return t.decimals, t.decimalsErr
}

func (f *fakeChain) HasCode(_ context.Context, addr string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.code[strings.ToLower(addr)], nil
}

func (f *fakeChain) BlockNumber(context.Context) (uint64, error) {
	if f.blockErr != nil {
		return 0, f.blockErr
	}
	return 19_000_000, nil
}

func (f *fakeChain) WaitMined(ctx context.Context, hash string) error {
	f.mu.Lock()
	f.waited = append(f.waited, hash)
	hook := f.waitHook
	err := f.waitErr[hash]
	f.mu.Unlock()
	if hook != nil {
		hook(hash)
	}
	if err != nil {
		return err
	}
	return ctx.Err()
}

func (f *fakeChain) Definition() entity.NetworkDefinition { return f.def }

// fakeRegistry knows a fixed set of chains.
type fakeRegistry struct {
	defs map[uint64]entity.NetworkDefinition
}

func (r fakeRegistry) Lookup(chainID uint64) (entity.NetworkDefinition, error) {
	def, ok := r.defs[chainID]
	if !ok {
		return entity.NetworkDefinition{}, &entity.UnsupportedNetworkError{ChainID: chainID}
	}
	return def, nil
}

func (r fakeRegistry) LookupByIdentifier(id string) (entity.NetworkDefinition, error) {
	for _, def := range r.defs {
		if def.Identifier == id {
			return def, nil
		}
	}
	return entity.NetworkDefinition{}, &entity.UnsupportedNetworkError{Identifier: id}
}

func (r fakeRegistry) All() []entity.NetworkDefinition {
	out := make([]entity.NetworkDefinition, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, def)
	}
	return out
}

// fakeProvider returns the same chain for every definition it knows.
type fakeProvider struct {
	chains map[uint64]*fakeChain
	err    error
}

func (p fakeProvider) GetClient(def entity.NetworkDefinition) (port.BlockchainClient, error) {
	if p.err != nil {
		return nil, p.err
	}
	c, ok := p.chains[def.ChainID]
	if !ok {
		return nil, fmt.Errorf("no client for chain %d", def.ChainID)
	}
	return c, nil
}

// fakeSigner records transactions and answers with sequential hashes.
type fakeSigner struct {
	mu      sync.Mutex
	sent    []entity.TxRequest
	sendErr map[int]error // by submission number
	onSend  func(n int)
}

func (s *fakeSigner) RequestAccounts(context.Context) ([]string, error) { return []string{addrA}, nil }
func (s *fakeSigner) ChainID(context.Context) (uint64, error)            { return testNetwork.ChainID, nil }
func (s *fakeSigner) Events() <-chan entity.WalletEvent                  { return nil }

func (s *fakeSigner) SendTransaction(_ context.Context, _ string, tx entity.TxRequest) (string, error) {
	s.mu.Lock()
	n := len(s.sent)
	s.sent = append(s.sent, tx)
	err := s.sendErr[n]
	hook := s.onSend
	s.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	if err != nil {
		return "", err
	}
	return txHash(n), nil
}

func txHash(n int) string {
	return fmt.Sprintf("0x%064x", n+1)
}

// fakeSessions is a port.SessionSource with a controllable epoch.
type fakeSessions struct {
	mu       sync.Mutex
	session  port.Session
	epoch    uint64
	balances []entity.BalanceEntry
}

func newFakeSessions(chain *fakeChain, signer *fakeSigner) *fakeSessions {
	def := chain.def
	return &fakeSessions{
		session: port.Session{
			ConnectionContext: entity.ConnectionContext{
				State:   entity.Connected,
				Account: addrA,
				ChainID: def.ChainID,
				Network: &def,
				Epoch:   1,
			},
			Signer: signer,
			Reader: chain,
		},
		epoch: 1,
	}
}

func (s *fakeSessions) Session() (port.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.State != entity.Connected {
		return port.Session{}, entity.ErrNotConnected
	}
	return s.session, nil
}

func (s *fakeSessions) Validate(epoch uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return entity.ErrStaleContext
	}
	return nil
}

func (s *fakeSessions) RecordBalance(epoch uint64, entry entity.BalanceEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch == s.epoch {
		s.balances = append(s.balances, entry)
	}
}

func (s *fakeSessions) bump() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
}

func (s *fakeSessions) disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.State = entity.Disconnected
	s.epoch++
}
