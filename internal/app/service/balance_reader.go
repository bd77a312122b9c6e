package service

import (
	"context"
	"fmt"
	"strings"

	"airdrop_multisend/internal/app/port"
	"airdrop_multisend/internal/domain/entity"
	"airdrop_multisend/internal/pkg/metrics"
	"airdrop_multisend/internal/pkg/utils"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	defaultBalanceBatchSize = 5
	defaultDisplayDecimals  = 6
)

// BalanceReaderConfig tunes how balances are fetched.
type BalanceReaderConfig struct {
	BatchSize       int     // addresses per JSON-RPC batch
	MaxConcurrent   int     // batches in flight
	RateLimit       float64 // batches per second, <= 0 means unlimited
	Burst           int
	DisplayDecimals int
	HealthCheck     bool // eth_blockNumber before any lookup
}

// BalanceReport is the result of a balance check on a fixed network.
type BalanceReport struct {
	Network entity.NetworkDefinition `json:"network"`
	Token   *entity.TokenInfo        `json:"token,omitempty"`
	Entries []entity.BalanceEntry    `json:"entries"`
}

// BalanceReader reads native or token balances for address lists. Every input address
// produces exactly one entry, in input order, whatever happens to individual lookups.
type BalanceReader struct {
	registry port.NetworkRegistry
	clients  port.BlockchainClientProvider
	tokens   *TokenResolver
	limiter  *rate.Limiter
	cfg      BalanceReaderConfig
	logger   port.Logger
	metrics  *metrics.Collector
}

// NewBalanceReader creates a BalanceReader.
func NewBalanceReader(
	registry port.NetworkRegistry,
	clients port.BlockchainClientProvider,
	tokens *TokenResolver,
	cfg BalanceReaderConfig,
	logger port.Logger,
	m *metrics.Collector,
) *BalanceReader {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBalanceBatchSize
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.DisplayDecimals <= 0 {
		cfg.DisplayDecimals = defaultDisplayDecimals
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &BalanceReader{
		registry: registry,
		clients:  clients,
		tokens:   tokens,
		limiter:  rate.NewLimiter(limit, cfg.Burst),
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
	}
}

// ReadOnNetwork resolves chainID through the registry and reads native balances, or
// token balances when tokenContract is set.
func (r *BalanceReader) ReadOnNetwork(ctx context.Context, chainID uint64, addresses []string, tokenContract string) (BalanceReport, error) {
	def, err := r.registry.Lookup(chainID)
	if err != nil {
		return BalanceReport{}, err
	}
	reader, err := r.clients.GetClient(def)
	if err != nil {
		return BalanceReport{}, fmt.Errorf("%w: %v", entity.ErrRPCUnavailable, err)
	}

	report := BalanceReport{Network: def}
	if strings.TrimSpace(tokenContract) == "" {
		report.Entries, err = r.ReadNativeBalances(ctx, reader, addresses)
		return report, err
	}
	entries, info, err := r.ReadTokenBalances(ctx, reader, addresses, tokenContract)
	if entries != nil {
		report.Token = &info
		report.Entries = entries
	}
	return report, err
}

// ReadNativeBalances reads the native balance of every address. The entries are returned
// even when err is set: a failed RPC health check marks every valid address Error and
// comes back as entity.ErrRPCUnavailable.
func (r *BalanceReader) ReadNativeBalances(ctx context.Context, reader port.BlockchainClient, addresses []string) ([]entity.BalanceEntry, error) {
	def := reader.Definition()
	return r.read(ctx, reader, addresses, nil, def.NativeSymbol, def.Decimals)
}

// ReadTokenBalances resolves the token once and then reads balanceOf for every address.
// A resolution failure is returned before any balance is read.
func (r *BalanceReader) ReadTokenBalances(ctx context.Context, reader port.BlockchainClient, addresses []string, tokenContract string) ([]entity.BalanceEntry, entity.TokenInfo, error) {
	info, err := r.tokens.Resolve(ctx, tokenContract, reader)
	if err != nil {
		return nil, entity.TokenInfo{}, err
	}
	entries, err := r.read(ctx, reader, addresses, &info, info.Symbol, info.Decimals)
	return entries, info, err
}

// ReadFundingBalance reads the native balance of the session account. Unlike the list
// reads it reports a failed lookup as an error.
func (r *BalanceReader) ReadFundingBalance(ctx context.Context, session port.Session) (entity.BalanceEntry, error) {
	return r.ReadAccountBalance(ctx, session, nil)
}

// ReadAccountBalance reads the session account's balance of token, or its native
// balance when token is nil.
func (r *BalanceReader) ReadAccountBalance(ctx context.Context, session port.Session, token *entity.TokenInfo) (entity.BalanceEntry, error) {
	if session.Reader == nil || session.Account == "" {
		return entity.BalanceEntry{}, entity.ErrNotConnected
	}
	if token != nil {
		balance, err := session.Reader.GetTokenBalance(ctx, token.Address, session.Account)
		if err != nil {
			return entity.BalanceEntry{}, err
		}
		return entity.BalanceEntry{
			Address: session.Account,
			Balance: utils.FormatFixed(balance, token.Decimals, r.cfg.DisplayDecimals),
			Symbol:  token.Symbol,
		}, nil
	}

	def := session.Reader.Definition()
	balance, err := session.Reader.GetNativeBalance(ctx, session.Account)
	if err != nil {
		return entity.BalanceEntry{}, err
	}
	return entity.BalanceEntry{
		Address: session.Account,
		Balance: utils.FormatFixed(balance, def.Decimals, r.cfg.DisplayDecimals),
		Symbol:  def.NativeSymbol,
	}, nil
}

type balanceJob struct {
	index   int
	address string
}

func (r *BalanceReader) read(
	ctx context.Context,
	reader port.BlockchainClient,
	addresses []string,
	token *entity.TokenInfo,
	symbol string,
	decimals uint8,
) ([]entity.BalanceEntry, error) {
	def := reader.Definition()
	entries := make([]entity.BalanceEntry, len(addresses))
	jobs := make([]balanceJob, 0, len(addresses))

	for i, raw := range addresses {
		addr := strings.TrimSpace(raw)
		normalized, ok := utils.NormalizeAddress(addr)
		if !ok {
			entries[i] = entity.BalanceEntry{Address: addr, Balance: entity.InvalidAddressMarker, Symbol: symbol}
			continue
		}
		entries[i] = entity.BalanceEntry{Address: normalized, Symbol: symbol}
		jobs = append(jobs, balanceJob{index: i, address: normalized})
	}

	if len(jobs) > 0 && r.cfg.HealthCheck {
		if _, err := reader.BlockNumber(ctx); err != nil {
			r.logger.Error("RPC health check failed", "network", def.Name, "error", err)
			markChunk(entries, jobs, entity.ErrorMarker)
			r.recordLookups(def, entries)
			return entries, fmt.Errorf("%w: %s: %v", entity.ErrRPCUnavailable, def.Name, err)
		}
	}

	var g errgroup.Group
	g.SetLimit(r.cfg.MaxConcurrent)

	chunks := utils.Chunk(jobs, r.cfg.BatchSize)
	for n, chunk := range chunks {
		n, chunk := n, chunk
		g.Go(func() error {
			// each chunk owns distinct indexes of entries, so no locking is needed
			if err := r.limiter.Wait(ctx); err != nil {
				markChunk(entries, chunk, entity.ErrorMarker)
				return nil
			}

			requests := make([]entity.BalanceRequestItem, len(chunk))
			for k, job := range chunk {
				requests[k] = entity.BalanceRequestItem{Type: entity.NativeBalanceRequest, WalletAddress: job.address}
				if token != nil {
					requests[k].Type = entity.TokenBalanceRequest
					requests[k].TokenAddress = token.Address
				}
			}

			results, err := reader.GetBalances(ctx, requests)
			if err != nil || len(results) != len(chunk) {
				r.logger.Warn("Balance batch failed", "network", def.Name, "batch", n+1, "of", len(chunks), "error", err)
				markChunk(entries, chunk, entity.ErrorMarker)
				return nil
			}
			for k, res := range results {
				idx := chunk[k].index
				if res.Error != nil || res.Balance == nil {
					r.logger.Debug("Balance lookup failed", "network", def.Name, "address", chunk[k].address, "error", res.Error)
					entries[idx].Balance = entity.ErrorMarker
					continue
				}
				entries[idx].Balance = utils.FormatFixed(res.Balance, decimals, r.cfg.DisplayDecimals)
			}
			return nil
		})
	}
	_ = g.Wait()

	r.recordLookups(def, entries)
	r.logger.Info("Balances checked", "network", def.Name, "addresses", len(addresses), "batches", len(chunks))

	return entries, ctx.Err()
}

func (r *BalanceReader) recordLookups(def entity.NetworkDefinition, entries []entity.BalanceEntry) {
	for _, e := range entries {
		switch e.Balance {
		case entity.InvalidAddressMarker:
			r.metrics.BalanceLookup(def.Identifier, "invalid_address")
		case entity.ErrorMarker:
			r.metrics.BalanceLookup(def.Identifier, "error")
		default:
			r.metrics.BalanceLookup(def.Identifier, "ok")
		}
	}
}

func markChunk(entries []entity.BalanceEntry, chunk []balanceJob, marker string) {
	for _, job := range chunk {
		entries[job.index].Balance = marker
	}
}
