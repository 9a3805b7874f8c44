// Package config loads the gift core configuration. Configuration is read
// exactly once at construction time; no component reads ambient settings
// mid-operation.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	configSubdir   = "config"
	configFileName = "giftrail_config.json"
)

// Config is the full configuration of the gift core.
type Config struct {
	// Log Config
	LogLevel   int    `json:"log_level"`   // e.g., 0 = debug, 1 = info, etc.
	LogFormat  string `json:"log_format"`  // "json" or "console"
	LogSampler bool   `json:"log_sampler"` // if true, samples logs (e.g., 1 in 5)

	// Storage
	DataDir string `json:"data_dir"` // Directory holding the SQLite database

	// Claim URLs handed back to callers embed the claim code as a path segment.
	ClaimBaseURL string `json:"claim_base_url"`

	// StableDecimals is the fixed decimal precision of the stable currency.
	StableDecimals int32 `json:"stable_decimals"`

	// HoldingAccounts maps a source network to the custodial holding account
	// that escrows funds for gifts on that network.
	HoldingAccounts map[string]string `json:"holding_accounts"`

	// Custodial wallet provider
	WalletProviderURL string `json:"wallet_provider_url"`
	WalletProviderKey string `json:"wallet_provider_key"` // overridable via WALLET_PROVIDER_KEY

	// GatewayURLs maps a network to its settlement gateway endpoint. The
	// gateways share the wallet provider credential.
	GatewayURLs map[string]string `json:"gateway_urls"`

	// Attestation service
	AttesterURL string `json:"attester_url"`

	// Query Server Config
	QueryServerPort int `json:"query_server_port"` // Port for HTTP query server (default: 8080)

	// Settlement polling
	AttestationPollMaxAttempts     int     `json:"attestation_poll_max_attempts"`     // Give up after this many polls (default: 20)
	AttestationPollIntervalSeconds int     `json:"attestation_poll_interval_seconds"` // Base poll spacing (default: 2)
	AttestationPollBackoffFactor   float64 `json:"attestation_poll_backoff_factor"`   // Exponential factor (default: 1.5)
	AttestationPollMaxSeconds      int     `json:"attestation_poll_max_seconds"`      // Cap on spacing (default: 15)
	BurnMaxRetries                 int     `json:"burn_max_retries"`                  // Transient-error retries before a confirmed burn (default: 3)
	MintMaxRetries                 int     `json:"mint_max_retries"`                  // Mint is idempotent per attestation (default: 5)

	// Background jobs
	ExpirySweepIntervalSeconds  int `json:"expiry_sweep_interval_seconds"`  // Hygiene sweep spacing (default: 300)
	ScheduleTickIntervalSeconds int `json:"schedule_tick_interval_seconds"` // Recurring-gift tick spacing (default: 60)
}

func validateConfig(cfg *Config) error {
	if cfg.LogLevel < 0 || cfg.LogLevel > 5 {
		return fmt.Errorf("log level must be between 0 and 5")
	}

	if cfg.LogFormat == "" {
		cfg.LogFormat = "console"
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return fmt.Errorf("log format must be 'json' or 'console'")
	}

	if cfg.ClaimBaseURL == "" {
		cfg.ClaimBaseURL = "https://gift.local/claim"
	}
	if cfg.StableDecimals == 0 {
		cfg.StableDecimals = 6
	}
	if cfg.HoldingAccounts == nil {
		cfg.HoldingAccounts = make(map[string]string)
	}
	if cfg.GatewayURLs == nil {
		cfg.GatewayURLs = make(map[string]string)
	}

	if cfg.QueryServerPort == 0 {
		cfg.QueryServerPort = 8080
	}

	if cfg.AttestationPollMaxAttempts == 0 {
		cfg.AttestationPollMaxAttempts = 20
	}
	if cfg.AttestationPollIntervalSeconds == 0 {
		cfg.AttestationPollIntervalSeconds = 2
	}
	if cfg.AttestationPollBackoffFactor == 0 {
		cfg.AttestationPollBackoffFactor = 1.5
	}
	if cfg.AttestationPollMaxSeconds == 0 {
		cfg.AttestationPollMaxSeconds = 15
	}
	if cfg.BurnMaxRetries == 0 {
		cfg.BurnMaxRetries = 3
	}
	if cfg.MintMaxRetries == 0 {
		cfg.MintMaxRetries = 5
	}

	if cfg.ExpirySweepIntervalSeconds == 0 {
		cfg.ExpirySweepIntervalSeconds = 300
	}
	if cfg.ScheduleTickIntervalSeconds == 0 {
		cfg.ScheduleTickIntervalSeconds = 60
	}

	return nil
}

// Save writes the given config to <basePath>/config/giftrail_config.json.
func Save(cfg *Config, basePath string) error {
	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	configDir := filepath.Join(basePath, configSubdir)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := filepath.Join(configDir, configFileName)
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Load reads the config from <basePath>/config/giftrail_config.json, applies
// environment overrides, and fills defaults.
func Load(basePath string) (Config, error) {
	configFile := filepath.Join(basePath, configSubdir, configFileName)
	data, err := os.ReadFile(filepath.Clean(configFile))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Default returns a configuration with all defaults filled in.
func Default() Config {
	var cfg Config
	_ = validateConfig(&cfg)
	return cfg
}

// applyEnvOverrides lets secrets stay out of the config file. A .env file is
// honored when present; missing .env is not an error.
func applyEnvOverrides(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("WALLET_PROVIDER_KEY"); v != "" {
		cfg.WalletProviderKey = v
	}
	if v := os.Getenv("WALLET_PROVIDER_URL"); v != "" {
		cfg.WalletProviderURL = v
	}
	if v := os.Getenv("ATTESTER_URL"); v != "" {
		cfg.AttesterURL = v
	}
}
