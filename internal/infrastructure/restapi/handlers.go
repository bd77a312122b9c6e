package restapi

import (
	"airdrop_multisend/internal/app/connection"
	"airdrop_multisend/internal/app/port"
	"airdrop_multisend/internal/app/service"
	"airdrop_multisend/internal/infrastructure/recipientloader"
)

// Handler обрабатывает HTTP запросы API v1.
type Handler struct {
	registry   port.NetworkRegistry
	clients    port.BlockchainClientProvider
	recipients *recipientloader.Loader
	tokens     *service.TokenResolver
	balances   *service.BalanceReader
	wallet     *connection.Manager
	executor   *service.BatchExecutor
	projects   port.ProjectStore
	logger     port.Logger
}

// Deps bundles everything the handlers need.
type Deps struct {
	Registry   port.NetworkRegistry
	Clients    port.BlockchainClientProvider
	Recipients *recipientloader.Loader
	Tokens     *service.TokenResolver
	Balances   *service.BalanceReader
	Wallet     *connection.Manager
	Executor   *service.BatchExecutor
	Projects   port.ProjectStore
	Logger     port.Logger
}

// NewHandler создает новый экземпляр Handler.
func NewHandler(d Deps) *Handler {
	return &Handler{
		registry:   d.Registry,
		clients:    d.Clients,
		recipients: d.Recipients,
		tokens:     d.Tokens,
		balances:   d.Balances,
		wallet:     d.Wallet,
		executor:   d.Executor,
		projects:   d.Projects,
		logger:     d.Logger,
	}
}
