package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"airdrop_multisend/internal/app/port"
	"airdrop_multisend/internal/app/service"
	"airdrop_multisend/internal/infrastructure/configloader"
	clientprovider "airdrop_multisend/internal/infrastructure/network/client"
	networkdefinition "airdrop_multisend/internal/infrastructure/network/definition"
	"airdrop_multisend/internal/infrastructure/recipientloader"
	"airdrop_multisend/internal/pkg/logger"
	"airdrop_multisend/internal/pkg/metrics"

	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
)

func main() {
	var (
		chainID    = flag.Uint64("chain", 1, "chain id of the network to query")
		file       = flag.String("file", "", "file with one address per line")
		recipients = flag.String("recipients", "", "multisend list (address,amount per line) to check before sending")
		addresses  = flag.String("addresses", "", "addresses separated by commas, spaces or newlines")
		token      = flag.String("token", "", "ERC-20 contract; native balance when empty")
		cfgPath    = flag.String("config", "", "config file (defaults to $"+configloader.EnvConfigPath+")")
		asJSON     = flag.Bool("json", false, "print the report as JSON")
	)
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.InfoLevel)

	_ = godotenv.Load()

	path := *cfgPath
	if path == "" {
		path = configloader.PathFromEnv()
	}
	cfg, err := configloader.LoadOrDefault(path)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		log.SetLevel(level)
	} else {
		log.Warnf("Invalid log level in config: %s. Defaulting to Info.", cfg.Logging.Level)
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize zap logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()
	logger.SetDefault(slog.New(zapslog.NewHandler(zapLogger.Core(), zapslog.WithCaller(true))))
	appLogger := logger.NewSlogAdapter()

	list, err := collectAddresses(*file, *addresses, appLogger)
	if err != nil {
		log.Fatalf("Failed to read addresses: %v", err)
	}
	var plan *recipientloader.ParseResult
	if *recipients != "" {
		res, err := recipientloader.NewLoader(appLogger).LoadFile(*recipients)
		if err != nil {
			log.Fatalf("Failed to read recipients: %v", err)
		}
		for _, r := range res.Recipients {
			list = append(list, r.Address)
		}
		plan = &res
	}
	if len(list) == 0 {
		log.Fatal("No addresses given, use -file, -addresses or -recipients")
	}

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
		log.Fatalf("Failed to build network registry: %v", err)
	}

	clients := clientprovider.NewEVMClientProvider(
		cfg.Performance.RPCConnectTimeout(),
		cfg.Performance.RPCCallTimeout(),
		cfg.Multisend.ReceiptPollInterval(),
		appLogger,
	)
	defer clients.Close()

	collector := metrics.New(prometheus.NewRegistry())
	tokens := service.NewTokenResolver(cfg.TokenCache.TTL(), appLogger, collector)
	reader := service.NewBalanceReader(registry, clients, tokens, service.BalanceReaderConfig{
		BatchSize:     cfg.Performance.BalanceBatchSize,
		MaxConcurrent: cfg.Performance.MaxConcurrentRoutines,
		RateLimit:     cfg.Performance.BatchesPerSecond,
		HealthCheck:   *cfg.Performance.HealthCheck,
	}, appLogger, collector)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(logrus.Fields{"chain_id": *chainID, "addresses": len(list), "token": *token}).Info("Checking balances")
	report, err := reader.ReadOnNetwork(ctx, *chainID, list, *token)
	if err != nil && len(report.Entries) == 0 {
		log.Fatalf("Balance check failed: %v", err)
	}
	if err != nil {
		log.WithError(err).Error("Balance check incomplete")
	}

	if *asJSON {
		enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			log.Fatalf("Failed to encode report: %v", err)
		}
	} else {
		printReport(report)
		if plan != nil {
			printPlan(report, *plan)
		}
	}
	if err != nil {
		stop()
		_ = zapLogger.Sync()
		os.Exit(1)
	}
}

func collectAddresses(file, inline string, log port.Logger) ([]string, error) {
	var list []string
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		list = append(list, recipientloader.ParseAddressList(string(data))...)
		log.Info("Addresses loaded from file", "file", file, "count", len(list))
	}
	if inline != "" {
		list = append(list, recipientloader.ParseAddressList(inline)...)
	}
	return list, nil
}

func printReport(report service.BalanceReport) {
	symbol := report.Network.NativeSymbol
	if report.Token != nil {
		symbol = report.Token.Symbol
	}
	fmt.Printf("%s (chain %d), asset %s\n", report.Network.Name, report.Network.ChainID, symbol)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ADDRESS\tBALANCE\tSYMBOL")
	for _, e := range report.Entries {
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.Address, e.Balance, e.Symbol)
	}
	_ = w.Flush()

	failed := 0
	for _, e := range report.Entries {
		if !e.OK() {
			failed++
		}
	}
	if failed > 0 {
		fmt.Println(strings.Repeat("-", 20))
		fmt.Printf("%d of %d addresses without a balance\n", failed, len(report.Entries))
	}
}

// printPlan shows what the multisend list would cost in the checked asset.
func printPlan(report service.BalanceReport, plan recipientloader.ParseResult) {
	symbol, decimals := report.Network.NativeSymbol, report.Network.Decimals
	if report.Token != nil {
		symbol, decimals = report.Token.Symbol, report.Token.Decimals
	}
	total, rejected := recipientloader.SendTotal(plan.Recipients, decimals)

	fmt.Println(strings.Repeat("-", 20))
	fmt.Printf("%d recipients (%d lines skipped), total to send %s %s\n", len(plan.Recipients), plan.Skipped, total, symbol)
	for _, i := range rejected {
		r := plan.Recipients[i]
		fmt.Printf("  %s: amount %s has more than %d decimals\n", r.Address, r.Amount, decimals)
	}
}
