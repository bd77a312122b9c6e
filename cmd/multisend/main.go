package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"airdrop_multisend/docs"
	"airdrop_multisend/internal/app/connection"
	"airdrop_multisend/internal/app/port"
	"airdrop_multisend/internal/app/service"
	"airdrop_multisend/internal/infrastructure/configloader"
	clientprovider "airdrop_multisend/internal/infrastructure/network/client"
	networkdefinition "airdrop_multisend/internal/infrastructure/network/definition"
	"airdrop_multisend/internal/infrastructure/projectstore"
	"airdrop_multisend/internal/infrastructure/recipientloader"
	"airdrop_multisend/internal/infrastructure/restapi"
	"airdrop_multisend/internal/infrastructure/wallet"
	"airdrop_multisend/internal/pkg/logger"
	"airdrop_multisend/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// .env необязателен; переменные окружения имеют приоритет
	_ = godotenv.Load()

	cfgPath := configloader.PathFromEnv()
	cfg, err := configloader.LoadOrDefault(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: failed to load configuration %s: %v\n", cfgPath, err)
		os.Exit(1)
	}

	zapLogger := logger.NewZap(logger.Options{
		Level:       cfg.Logging.Level,
		File:        cfg.Logging.File,
		MaxSizeMB:   cfg.Logging.MaxSizeMB,
		MaxBackups:  cfg.Logging.MaxBackups,
		MaxAgeDays:  cfg.Logging.MaxAgeDays,
		Development: cfg.Logging.Development,
	})
	defer func() { _ = zapLogger.Sync() }()
	logger.Init(zapLogger, cfg.Logging.Level)
	zapLogger.Info("Configuration loaded", zap.String("path", cfgPath))

	appLogger := logger.NewSlogAdapter()
	collector := metrics.New(prometheus.DefaultRegisterer)

	overrides := make([]networkdefinition.RPCOverride, 0, len(cfg.Networks))
	for _, n := range cfg.Networks {
		overrides = append(overrides, networkdefinition.RPCOverride{
			ChainID:         n.ChainID,
			PrimaryRPCURL:   n.RPCURL,
			FallbackRPCURLs: n.FallbackRPCURLs,
		})
	}
	registry, err := networkdefinition.NewDefaultRegistry(overrides)
	if err != nil {
		logger.Fatal("Не удалось построить реестр сетей", "error", err)
	}
	logger.Info("Network registry ready", "networks", len(registry.All()))

	clients := clientprovider.NewEVMClientProvider(
		cfg.Performance.RPCConnectTimeout(),
		cfg.Performance.RPCCallTimeout(),
		cfg.Multisend.ReceiptPollInterval(),
		appLogger,
	)
	defer clients.Close()

	tokens := service.NewTokenResolver(cfg.TokenCache.TTL(), appLogger, collector)
	balances := service.NewBalanceReader(registry, clients, tokens, service.BalanceReaderConfig{
		BatchSize:     cfg.Performance.BalanceBatchSize,
		MaxConcurrent: cfg.Performance.MaxConcurrentRoutines,
		RateLimit:     cfg.Performance.BatchesPerSecond,
		Burst:         1,
		HealthCheck:   *cfg.Performance.HealthCheck,
	}, appLogger, collector)

	walletProvider := newWallet(cfg, registry, clients, appLogger)
	manager := connection.NewManager(walletProvider, registry, clients, appLogger)
	manager.OnReset(tokens.Flush)
	manager.SetBalanceFunc(balances.ReadFundingBalance)
	go manager.Watch(ctx)

	executor := service.NewBatchExecutor(manager, tokens, balances, clientprovider.EncodeERC20Transfer, service.ExecutorConfig{
		SubmitTimeout:  cfg.Multisend.SubmitTimeout(),
		ConfirmTimeout: cfg.Multisend.ConfirmTimeout(),
	}, appLogger, collector)

	projects := projectstore.NewClient(cfg.ProjectStore.URL, cfg.ProjectStore.RequestTimeout(), appLogger)
	if cfg.ProjectStore.URL == "" {
		logger.Warn("Project store URL is empty, /projects endpoints will answer 503")
	}

	handler := restapi.NewHandler(restapi.Deps{
		Registry:   registry,
		Clients:    clients,
		Recipients: recipientloader.NewLoader(appLogger),
		Tokens:     tokens,
		Balances:   balances,
		Wallet:     manager,
		Executor:   executor,
		Projects:   projects,
		Logger:     appLogger,
	})

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := restapi.SetupRouter(handler, restapi.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Metrics:        promhttp.Handler(),
		OpenAPISpec:    docs.SwaggerYAML,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Запуск HTTP сервера", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Не удалось запустить HTTP сервер", "error", err)
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	<-signalChan

	logger.Info("Получен сигнал завершения. Завершение работы HTTP сервера...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ошибка при Graceful Shutdown HTTP сервера", "error", err)
	} else {
		logger.Info("HTTP сервер успешно остановлен.")
	}
	cancel()
}

// newWallet builds the keyed wallet, or returns nil when no key is configured so that
// connect requests fail with "no wallet".
func newWallet(cfg *configloader.Config, registry *networkdefinition.Registry, clients *clientprovider.EVMClientProvider, log port.Logger) port.WalletProvider {
	key, err := wallet.KeyFromEnv(cfg.Wallet.PrivateKeyEnv)
	if err != nil {
		logger.Warn("No signing key configured, multisend is disabled", "env", cfg.Wallet.PrivateKeyEnv)
		return nil
	}
	backends := func(chainID uint64) (wallet.Backend, error) {
		def, err := registry.Lookup(chainID)
		if err != nil {
			return nil, err
		}
		c, err := clients.GetEVMClient(def)
		if err != nil {
			return nil, err
		}
		return c.Backend(), nil
	}
	w, err := wallet.NewKeyedWallet(key, cfg.Wallet.DefaultChainID, backends, log)
	if err != nil {
		logger.Fatal("Не удалось загрузить ключ кошелька", "env", cfg.Wallet.PrivateKeyEnv, "error", err)
	}
	logger.Info("Keyed wallet loaded", "account", w.Address(), "chain_id", cfg.Wallet.DefaultChainID)
	return w
}
