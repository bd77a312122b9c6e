package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"sync"

	"airdrop_multisend/internal/app/port"
	"airdrop_multisend/internal/domain/entity"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
)

const eventBuffer = 16

// ErrMissingKey is returned when the signing key is not configured.
var ErrMissingKey = errors.New("signing key is not configured")

// Backend is the subset of ethclient.Client used to build and broadcast transactions.
type Backend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// BackendResolver returns the backend of a chain.
type BackendResolver func(chainID uint64) (Backend, error)

// KeyedWallet is a port.WalletProvider holding one private key. It plays the role of
// a browser wallet for headless use: it grants its single account on request and
// announces account and chain changes on its event channel.
type KeyedWallet struct {
	mu       sync.Mutex
	sendMu   sync.Mutex
	key      *ecdsa.PrivateKey
	address  common.Address
	chainID  uint64
	revoked  bool
	backends BackendResolver
	events   chan entity.WalletEvent
	logger   port.Logger
}

var (
	_ port.WalletProvider = (*KeyedWallet)(nil)
	_ port.ChainSwitcher  = (*KeyedWallet)(nil)
)

// KeyFromEnv reads a hex private key from the named environment variable.
func KeyFromEnv(name string) (string, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrMissingKey, name)
	}
	return v, nil
}

// NewKeyedWallet parses privateKeyHex (with or without 0x) and starts on chainID.
func NewKeyedWallet(privateKeyHex string, chainID uint64, backends BackendResolver, logger port.Logger) (*KeyedWallet, error) {
	prv, err := gethcrypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("bad private key: %w", err)
	}
	return &KeyedWallet{
		key:      prv,
		address:  gethcrypto.PubkeyToAddress(prv.PublicKey),
		chainID:  chainID,
		backends: backends,
		events:   make(chan entity.WalletEvent, eventBuffer),
		logger:   logger,
	}, nil
}

// Address returns the checksummed account of the key.
func (w *KeyedWallet) Address() string {
	return w.address.Hex()
}

// RequestAccounts grants the key's account, also after a Revoke.
func (w *KeyedWallet) RequestAccounts(context.Context) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.revoked = false
	return []string{w.address.Hex()}, nil
}

func (w *KeyedWallet) ChainID(context.Context) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.chainID, nil
}

func (w *KeyedWallet) Events() <-chan entity.WalletEvent {
	return w.events
}

// Revoke withdraws account access and announces an empty account list.
func (w *KeyedWallet) Revoke() {
	w.mu.Lock()
	w.revoked = true
	w.mu.Unlock()
	w.emit(entity.WalletEvent{Kind: entity.AccountsChanged, Accounts: []string{}})
}

// SwitchChain moves the wallet to chainID if a backend exists for it.
func (w *KeyedWallet) SwitchChain(_ context.Context, chainID uint64) error {
	if _, err := w.backends(chainID); err != nil {
		return fmt.Errorf("chain %d: %w", chainID, err)
	}
	w.mu.Lock()
	changed := w.chainID != chainID
	w.chainID = chainID
	w.mu.Unlock()
	if changed {
		w.emit(entity.WalletEvent{Kind: entity.ChainChanged, ChainID: chainID})
	}
	return nil
}

// SendTransaction signs tx with the key and broadcasts it on the current chain.
// EIP-1559 fees are used when the chain reports a base fee, legacy gas price otherwise.
func (w *KeyedWallet) SendTransaction(ctx context.Context, from string, req entity.TxRequest) (string, error) {
	w.mu.Lock()
	chainID, revoked := w.chainID, w.revoked
	w.mu.Unlock()

	if revoked {
		return "", errors.New("account access revoked")
	}
	if !strings.EqualFold(from, w.address.Hex()) {
		return "", fmt.Errorf("wallet cannot sign for %s", from)
	}
	if !common.IsHexAddress(req.To) {
		return "", fmt.Errorf("invalid recipient %q", req.To)
	}
	backend, err := w.backends(chainID)
	if err != nil {
		return "", err
	}

	// nonce lookup and broadcast must not interleave between two sends
	w.sendMu.Lock()
	defer w.sendMu.Unlock()

	to := common.HexToAddress(req.To)
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	nonce, err := backend.PendingNonceAt(ctx, w.address)
	if err != nil {
		return "", fmt.Errorf("pending nonce: %w", err)
	}
	gas, err := backend.EstimateGas(ctx, ethereum.CallMsg{From: w.address, To: &to, Value: value, Data: req.Data})
	if err != nil {
		return "", fmt.Errorf("estimate gas: %w", err)
	}

	chain := new(big.Int).SetUint64(chainID)
	tx, err := w.buildTx(ctx, backend, chain, nonce, &to, value, gas, req.Data)
	if err != nil {
		return "", err
	}
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chain), w.key)
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	if err := backend.SendTransaction(ctx, signed); err != nil {
		return "", err
	}

	hash := signed.Hash().Hex()
	w.logger.Debug("Transaction broadcast", "chain_id", chainID, "to", to.Hex(), "nonce", nonce, "tx", hash)
	return hash, nil
}

func (w *KeyedWallet) buildTx(
	ctx context.Context,
	backend Backend,
	chain *big.Int,
	nonce uint64,
	to *common.Address,
	value *big.Int,
	gas uint64,
	data []byte,
) (*types.Transaction, error) {
	head, err := backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("latest header: %w", err)
	}

	if head.BaseFee == nil {
		gasPrice, err := backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("gas price: %w", err)
		}
		return types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      gas,
			To:       to,
			Value:    value,
			Data:     data,
		}), nil
	}

	tip, err := backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("gas tip: %w", err)
	}
	// 2*baseFee + tip survives several full blocks of base fee growth
	feeCap := new(big.Int).Add(new(big.Int).Mul(head.BaseFee, big.NewInt(2)), tip)
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   chain,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        to,
		Value:     value,
		Data:      data,
	}), nil
}

func (w *KeyedWallet) emit(ev entity.WalletEvent) {
	select {
	case w.events <- ev:
	default:
		w.logger.Warn("Wallet event dropped, nobody is listening", "kind", ev.Kind)
	}
}
