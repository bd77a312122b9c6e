package configloader

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable holding the config file path.
const EnvConfigPath = "MULTISEND_CONFIG"

// DefaultPath is used when EnvConfigPath is not set.
const DefaultPath = "config/config.yml"

// ServerConfig holds server-specific configurations.
type ServerConfig struct {
	Port                string   `yaml:"port"`
	AllowedOrigins      []string `yaml:"allowedOrigins"`
	ShutdownTimeoutSecs int      `yaml:"shutdownTimeoutSeconds"`
}

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	File        string `yaml:"file"` // rotated with lumberjack when set
	MaxSizeMB   int    `yaml:"maxSizeMB"`
	MaxBackups  int    `yaml:"maxBackups"`
	MaxAgeDays  int    `yaml:"maxAgeDays"`
	Development bool   `yaml:"development"`
}

// PerformanceConfig holds performance-related configurations.
type PerformanceConfig struct {
	MaxConcurrentRoutines    int     `yaml:"max_concurrent_routines"`
	RPCCallTimeoutSeconds    int     `yaml:"rpc_call_timeout_seconds"`
	RPCConnectTimeoutSeconds int     `yaml:"rpc_connect_timeout_seconds"`
	BalanceBatchSize         int     `yaml:"balanceBatchSize"`
	BatchesPerSecond         float64 `yaml:"batchesPerSecond"` // 0 disables the limiter
	HealthCheck              *bool   `yaml:"healthCheck"`
}

// MultisendConfig holds the per-transfer deadlines of the batch executor.
type MultisendConfig struct {
	SubmitTimeoutSeconds      int `yaml:"submitTimeoutSeconds"`
	ConfirmTimeoutSeconds     int `yaml:"confirmTimeoutSeconds"`
	ReceiptPollIntervalMillis int `yaml:"receiptPollIntervalMillis"`
}

// TokenCacheConfig configures the token metadata cache.
type TokenCacheConfig struct {
	TTLMinutes int `yaml:"ttlMinutes"`
}

// WalletConfig configures the keyed wallet.
type WalletConfig struct {
	PrivateKeyEnv  string `yaml:"privateKeyEnv"`
	DefaultChainID uint64 `yaml:"defaultChainId"`
}

// ProjectStoreConfig points at the tracker sheet script.
type ProjectStoreConfig struct {
	URL                  string `yaml:"url"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
}

// NetworkOverride replaces the RPC endpoints of a built-in network.
type NetworkOverride struct {
	ChainID         uint64   `yaml:"chainID"`
	RPCURL          string   `yaml:"rpcURL"`
	FallbackRPCURLs []string `yaml:"fallbackRPCURLs"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Logging      LoggingConfig      `yaml:"logging"`
	Performance  PerformanceConfig  `yaml:"performance"`
	Multisend    MultisendConfig    `yaml:"multisend"`
	TokenCache   TokenCacheConfig   `yaml:"tokenCache"`
	Wallet       WalletConfig       `yaml:"wallet"`
	ProjectStore ProjectStoreConfig `yaml:"projectStore"`
	Networks     []NetworkOverride  `yaml:"networks"`
}

// PathFromEnv returns the config path from EnvConfigPath or DefaultPath.
func PathFromEnv() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads the YAML configuration file from the given path and unmarshals it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but returns the defaults when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Parse(nil)
	}
	return cfg, err
}

// Parse decodes YAML data, fills defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config data: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Server.ShutdownTimeoutSecs <= 0 {
		c.Server.ShutdownTimeoutSecs = 10
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = 50
	}
	if c.Logging.MaxBackups <= 0 {
		c.Logging.MaxBackups = 3
	}
	if c.Logging.MaxAgeDays <= 0 {
		c.Logging.MaxAgeDays = 14
	}

	// Default values for performance if not set
	if c.Performance.MaxConcurrentRoutines <= 0 {
		c.Performance.MaxConcurrentRoutines = 10
	}
	if c.Performance.RPCCallTimeoutSeconds <= 0 {
		c.Performance.RPCCallTimeoutSeconds = 10
	}
	if c.Performance.RPCConnectTimeoutSeconds <= 0 {
		c.Performance.RPCConnectTimeoutSeconds = 5
	}
	if c.Performance.BalanceBatchSize <= 0 {
		c.Performance.BalanceBatchSize = 5
	}
	if c.Performance.BatchesPerSecond < 0 {
		c.Performance.BatchesPerSecond = 0
	}
	if c.Performance.HealthCheck == nil {
		enabled := true
		c.Performance.HealthCheck = &enabled
	}

	if c.Multisend.SubmitTimeoutSeconds <= 0 {
		c.Multisend.SubmitTimeoutSeconds = 120
	}
	if c.Multisend.ConfirmTimeoutSeconds <= 0 {
		c.Multisend.ConfirmTimeoutSeconds = 600
	}
	if c.Multisend.ReceiptPollIntervalMillis <= 0 {
		c.Multisend.ReceiptPollIntervalMillis = 1000
	}

	if c.TokenCache.TTLMinutes <= 0 {
		c.TokenCache.TTLMinutes = 360
	}

	if c.Wallet.PrivateKeyEnv == "" {
		c.Wallet.PrivateKeyEnv = "MULTISEND_PRIVATE_KEY"
	}
	if c.Wallet.DefaultChainID == 0 {
		c.Wallet.DefaultChainID = 1
	}

	if c.ProjectStore.RequestTimeoutMillis <= 0 {
		c.ProjectStore.RequestTimeoutMillis = 10000
	}
}

func (c *Config) validate() error {
	lvl := strings.ToLower(c.Logging.Level)
	switch lvl {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown logging level %q", c.Logging.Level)
	}

	seen := make(map[uint64]bool, len(c.Networks))
	for i, n := range c.Networks {
		if n.ChainID == 0 {
			return fmt.Errorf("networks[%d]: chainID is required", i)
		}
		if strings.TrimSpace(n.RPCURL) == "" {
			return fmt.Errorf("networks[%d]: rpcURL is required for chain %d", i, n.ChainID)
		}
		if seen[n.ChainID] {
			return fmt.Errorf("networks[%d]: duplicate override for chain %d", i, n.ChainID)
		}
		seen[n.ChainID] = true
	}
	return nil
}

// RPCCallTimeout returns the per-call RPC deadline.
func (p PerformanceConfig) RPCCallTimeout() time.Duration {
	return time.Duration(p.RPCCallTimeoutSeconds) * time.Second
}

// RPCConnectTimeout returns the dial deadline.
func (p PerformanceConfig) RPCConnectTimeout() time.Duration {
	return time.Duration(p.RPCConnectTimeoutSeconds) * time.Second
}

func (m MultisendConfig) SubmitTimeout() time.Duration {
	return time.Duration(m.SubmitTimeoutSeconds) * time.Second
}

func (m MultisendConfig) ConfirmTimeout() time.Duration {
	return time.Duration(m.ConfirmTimeoutSeconds) * time.Second
}

func (m MultisendConfig) ReceiptPollInterval() time.Duration {
	return time.Duration(m.ReceiptPollIntervalMillis) * time.Millisecond
}

func (t TokenCacheConfig) TTL() time.Duration {
	return time.Duration(t.TTLMinutes) * time.Minute
}

func (p ProjectStoreConfig) RequestTimeout() time.Duration {
	return time.Duration(p.RequestTimeoutMillis) * time.Millisecond
}

func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSecs) * time.Second
}
