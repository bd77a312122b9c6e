package client

import (
	"fmt"
	"sync"
	"time"

	"airdrop_multisend/internal/app/port"
	"airdrop_multisend/internal/domain/entity"
)

const defaultProviderConnectionTimeout = 10 * time.Second

// EVMClientProvider implements port.BlockchainClientProvider with one cached client per chain id.
type EVMClientProvider struct {
	clients           map[uint64]*EVMClient
	mu                sync.Mutex
	logger            port.Logger
	connectionTimeout time.Duration
	rpcCallTimeout    time.Duration
	pollInterval      time.Duration
}

var _ port.BlockchainClientProvider = (*EVMClientProvider)(nil)

// NewEVMClientProvider creates a new EVMClientProvider. Zero timeouts fall back to defaults.
func NewEVMClientProvider(connectionTimeout, rpcCallTimeout, receiptPollInterval time.Duration, logger port.Logger) *EVMClientProvider {
	if connectionTimeout <= 0 {
		connectionTimeout = defaultProviderConnectionTimeout
	}
	return &EVMClientProvider{
		clients:           make(map[uint64]*EVMClient),
		logger:            logger,
		connectionTimeout: connectionTimeout,
		rpcCallTimeout:    rpcCallTimeout,
		pollInterval:      receiptPollInterval,
	}
}

// GetClient retrieves a blockchain client for the given network definition.
func (p *EVMClientProvider) GetClient(netDef entity.NetworkDefinition) (port.BlockchainClient, error) {
	c, err := p.GetEVMClient(netDef)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetEVMClient is GetClient returning the concrete type, for callers that need the raw backend.
// It caches clients to avoid reconnecting repeatedly.
func (p *EVMClientProvider) GetEVMClient(netDef entity.NetworkDefinition) (*EVMClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, exists := p.clients[netDef.ChainID]; exists {
		return c, nil
	}

	p.logger.Info("Creating new EVM client", "network", netDef.Name, "chain_id", netDef.ChainID, "rpc_primary", netDef.PrimaryRPCURL)
	c, err := NewEVMClient(netDef, p.connectionTimeout, p.rpcCallTimeout)
	if err != nil {
		p.logger.Error("Failed to create EVM client", "network", netDef.Name, "error", err)
		return nil, fmt.Errorf("failed to create EVM client for %s: %w", netDef.Name, err)
	}
	c.SetReceiptPollInterval(p.pollInterval)

	p.clients[netDef.ChainID] = c
	return c, nil
}

// Close closes every cached client.
func (p *EVMClientProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, c := range p.clients {
		c.Close()
		delete(p.clients, id)
	}
}
