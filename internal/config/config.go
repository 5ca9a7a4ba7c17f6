// config.go - Configuration management for the shielded actions services
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"shieldedactions/internal/resource"
)

// Config represents the application configuration shared by proverd and shieldctl
type Config struct {
	// Protocol settings
	HashScheme     resource.Scheme `json:"hash_scheme"`
	Assets         []Asset         `json:"assets"`
	AdapterAddress common.Address  `json:"adapter_address"`
	SwapForwarder  common.Address  `json:"swap_forwarder"`
	SwapRouter     common.Address  `json:"swap_router"`
	PoolFee        uint32          `json:"pool_fee"`

	// Prover client
	ProverURL             string `json:"prover_url"`
	PollIntervalMillis    int    `json:"poll_interval_ms"`
	MaxPollAttempts       int    `json:"max_poll_attempts"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`

	// Prover daemon
	ListenAddr       string  `json:"listen_addr"`
	Workers          int     `json:"workers"`
	ProveDelayMillis int     `json:"prove_delay_ms"`
	RateLimitPerSec  float64 `json:"rate_limit_per_sec"`
	RateLimitBurst   int     `json:"rate_limit_burst"`

	// File paths
	LedgerPath string `json:"ledger_path"`

	// Logging
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`

	// Security
	EnableAudit  bool   `json:"enable_audit"`
	AuditLogPath string `json:"audit_log_path"`
}

// DefaultConfig returns the default configuration (Sepolia deployment, local prover)
func DefaultConfig() *Config {
	return &Config{
		HashScheme:            resource.SchemeSHA256,
		Assets:                SepoliaAssets(),
		AdapterAddress:        common.HexToAddress("0x08c3bdc46B115cDc71Df076d9De96EeEBaa98525"),
		SwapForwarder:         common.HexToAddress("0x9335Fa4A31E552378Ed29b94704c52b5635cd1AA"),
		SwapRouter:            common.HexToAddress("0x3bFA4769FB09eefC5a80d6E87c3B9C650f7Ae48E"),
		PoolFee:               3000,
		ProverURL:             "http://localhost:3001",
		PollIntervalMillis:    2000,
		MaxPollAttempts:       300,
		RequestTimeoutSeconds: 10,
		ListenAddr:            ":3001",
		Workers:               2,
		ProveDelayMillis:      0,
		RateLimitPerSec:       5,
		RateLimitBurst:        10,
		LedgerPath:            "ledger.json",
		LogLevel:              "info",
		LogFile:               "",
		EnableAudit:           false,
		AuditLogPath:          "audit.log",
	}
}

// LoadConfig loads configuration from file or creates default
func LoadConfig(configPath string) (*Config, error) {
	// Try to load from file
	if _, err := os.Stat(configPath); err == nil {
		file, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer file.Close()

		config := DefaultConfig()
		if err := json.NewDecoder(file).Decode(config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}

		return config, nil
	}

	// Create default config and save it
	config := DefaultConfig()
	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save default config: %w", err)
	}

	return config, nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := resource.NewCodec(c.HashScheme); err != nil {
		return err
	}
	if len(c.Assets) == 0 {
		return fmt.Errorf("assets must not be empty")
	}
	if _, err := c.AssetTable(); err != nil {
		return err
	}
	if c.AdapterAddress == (common.Address{}) {
		return fmt.Errorf("adapter_address must be set")
	}
	if c.PoolFee == 0 || c.PoolFee >= 1<<24 {
		return fmt.Errorf("pool_fee must fit in uint24 and be positive")
	}
	if c.ProverURL != "" {
		if _, err := url.ParseRequestURI(c.ProverURL); err != nil {
			return fmt.Errorf("invalid prover_url: %w", err)
		}
	}
	if c.PollIntervalMillis <= 0 {
		return fmt.Errorf("poll_interval_ms must be positive")
	}
	if c.MaxPollAttempts <= 0 {
		return fmt.Errorf("max_poll_attempts must be positive")
	}
	if c.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("request_timeout_seconds must be positive")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.ProveDelayMillis < 0 {
		return fmt.Errorf("prove_delay_ms must not be negative")
	}
	if c.RateLimitPerSec < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("rate limit settings must not be negative")
	}
	return nil
}

// AssetTable builds the lookup table for the configured assets
func (c *Config) AssetTable() (*AssetTable, error) {
	return NewAssetTable(c.Assets...)
}

// Codec returns the resource codec for the configured hash scheme
func (c *Config) Codec() (*resource.Codec, error) {
	return resource.NewCodec(c.HashScheme)
}

// PollInterval returns the prover polling interval
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMillis) * time.Millisecond
}

// RequestTimeout returns the per-request HTTP timeout for the prover client
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// ProveDelay returns the artificial proving delay used by the mock engine
func (c *Config) ProveDelay() time.Duration {
	return time.Duration(c.ProveDelayMillis) * time.Millisecond
}
