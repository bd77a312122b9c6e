package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"airdrop_multisend/internal/domain/entity"
	"airdrop_multisend/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver() *TokenResolver {
	return NewTokenResolver(0, logger.NewDiscardAdapter(), nil)
}

func TestTokenResolver_ResolveCachesSuccess(t *testing.T) {
	chain := newFakeChain()
	chain.setToken(usdcAddr, "USDC", 6)
	r := newTestResolver()

	info, err := r.Resolve(context.Background(), strings.ToLower(usdcAddr), chain)
	require.NoError(t, err)
	assert.Equal(t, entity.TokenInfo{ChainID: 1, Address: usdcAddr, Symbol: "USDC", Decimals: 6}, info)

	again, err := r.Resolve(context.Background(), usdcAddr, chain)
	require.NoError(t, err)
	assert.Equal(t, info, again)
	assert.Equal(t, 1, chain.decimalsCalls, "second resolve should come from cache")
}

func TestTokenResolver_CacheIsPerChain(t *testing.T) {
	mainnet := newFakeChain()
	mainnet.setToken(usdcAddr, "USDC", 6)
	other := newFakeChain()
	other.def.ChainID = 56
	other.setToken(usdcAddr, "BUSDC", 18)
	r := newTestResolver()

	a, err := r.Resolve(context.Background(), usdcAddr, mainnet)
	require.NoError(t, err)
	b, err := r.Resolve(context.Background(), usdcAddr, other)
	require.NoError(t, err)

	assert.Equal(t, uint8(6), a.Decimals)
	assert.Equal(t, uint8(18), b.Decimals)
	assert.Equal(t, uint64(56), b.ChainID)
}

func TestTokenResolver_InvalidContract(t *testing.T) {
	r := newTestResolver()
	for _, contract := range []string{"", "0x123", "not-an-address", "742d35Cc6634C0532925a3b844Bc454e4438f44e"} {
		_, err := r.Resolve(context.Background(), contract, newFakeChain())
		require.Error(t, err, contract)
		assert.ErrorIs(t, err, entity.ErrInvalidContract, contract)

		var invalid *entity.InvalidContractError
		assert.True(t, errors.As(err, &invalid))
	}
}

func TestTokenResolver_NoCodeAtAddress(t *testing.T) {
	r := newTestResolver()

	_, err := r.Resolve(context.Background(), addrB, newFakeChain())
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrContractRead)
	assert.Contains(t, err.Error(), "no contract code")

	var readErr *entity.ContractReadError
	require.True(t, errors.As(err, &readErr))
	assert.Equal(t, "decimals", readErr.Method)
	assert.Equal(t, addrB, readErr.Address)
}

func TestTokenResolver_FailureIsNotCached(t *testing.T) {
	chain := newFakeChain()
	token := chain.setToken(usdcAddr, "USDC", 6)
	token.symbolErr = errors.New("i/o timeout")
	r := newTestResolver()

	_, err := r.Resolve(context.Background(), usdcAddr, chain)
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrContractRead)
	assert.NotContains(t, err.Error(), "no contract code")

	token.symbolErr = nil
	info, err := r.Resolve(context.Background(), usdcAddr, chain)
	require.NoError(t, err)
	assert.Equal(t, "USDC", info.Symbol)
	assert.Equal(t, 2, chain.decimalsCalls)
}

func TestTokenResolver_Flush(t *testing.T) {
	chain := newFakeChain()
	chain.setToken(usdcAddr, "USDC", 6)
	r := newTestResolver()

	_, err := r.Resolve(context.Background(), usdcAddr, chain)
	require.NoError(t, err)
	r.Flush()
	_, err = r.Resolve(context.Background(), usdcAddr, chain)
	require.NoError(t, err)

	assert.Equal(t, 2, chain.decimalsCalls)
}
