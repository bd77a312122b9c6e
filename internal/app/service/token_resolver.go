package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"airdrop_multisend/internal/app/port"
	"airdrop_multisend/internal/domain/entity"
	"airdrop_multisend/internal/pkg/metrics"
	"airdrop_multisend/internal/pkg/utils"

	"github.com/patrickmn/go-cache"
)

const (
	defaultTokenCacheTTL     = 6 * time.Hour
	defaultTokenCacheCleanup = 30 * time.Minute
)

// TokenResolver resolves symbol and decimals of ERC-20 contracts. Only successful
// resolutions are cached, so a retry after a transient failure goes to the chain again.
type TokenResolver struct {
	cache   *cache.Cache
	logger  port.Logger
	metrics *metrics.Collector
}

// NewTokenResolver creates a resolver with a session cache of the given TTL.
func NewTokenResolver(ttl time.Duration, logger port.Logger, m *metrics.Collector) *TokenResolver {
	if ttl <= 0 {
		ttl = defaultTokenCacheTTL
	}
	return &TokenResolver{
		cache:   cache.New(ttl, defaultTokenCacheCleanup),
		logger:  logger,
		metrics: m,
	}
}

func tokenCacheKey(chainID uint64, contract string) string {
	return fmt.Sprintf("%d_%s", chainID, strings.ToLower(contract))
}

// Resolve returns the TokenInfo of contract on the reader's network.
func (r *TokenResolver) Resolve(ctx context.Context, contract string, reader port.BlockchainClient) (entity.TokenInfo, error) {
	contract = strings.TrimSpace(contract)
	normalized, ok := utils.NormalizeAddress(contract)
	if !ok {
		r.metrics.TokenResolution("failed")
		return entity.TokenInfo{}, &entity.InvalidContractError{Address: contract}
	}

	chainID := reader.Definition().ChainID
	key := tokenCacheKey(chainID, normalized)
	if cached, found := r.cache.Get(key); found {
		r.metrics.TokenResolution("cached")
		return cached.(entity.TokenInfo), nil
	}

	decimals, err := reader.TokenDecimals(ctx, normalized)
	if err != nil {
		r.metrics.TokenResolution("failed")
		return entity.TokenInfo{}, r.readError(ctx, reader, normalized, "decimals", err)
	}
	symbol, err := reader.TokenSymbol(ctx, normalized)
	if err != nil {
		r.metrics.TokenResolution("failed")
		return entity.TokenInfo{}, r.readError(ctx, reader, normalized, "symbol", err)
	}

	info := entity.TokenInfo{ChainID: chainID, Address: normalized, Symbol: symbol, Decimals: decimals}
	r.cache.Set(key, info, cache.DefaultExpiration)
	r.metrics.TokenResolution("resolved")
	r.logger.Debug("Token metadata resolved", "chain_id", chainID, "token", normalized, "symbol", symbol, "decimals", decimals)
	return info, nil
}

// readError builds a ContractReadError, noting when the address holds no code at all.
func (r *TokenResolver) readError(ctx context.Context, reader port.BlockchainClient, contract, method string, cause error) error {
	if hasCode, codeErr := reader.HasCode(ctx, contract); codeErr == nil && !hasCode {
		cause = fmt.Errorf("no contract code at address: %w", cause)
	}
	r.logger.Warn("Token metadata read failed", "token", contract, "method", method, "error", cause)
	return &entity.ContractReadError{Address: contract, Method: method, Err: cause}
}

// Flush drops every cached resolution.
func (r *TokenResolver) Flush() {
	r.cache.Flush()
}
