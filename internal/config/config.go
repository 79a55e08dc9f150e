// Package config provides application configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends understood by StorageConfig.Backend.
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

var codeRe = regexp.MustCompile(`^[A-Z]{2,5}$`)

// Config holds the complete application configuration.
type Config struct {
	Server      ServerConfig
	Log         LogConfig
	Rates       RatesConfig
	Currencies  CurrenciesConfig
	Storage     StorageConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Crypto      CryptoConfig      `mapstructure:"crypto"`
	Fiat        FiatConfig        `mapstructure:"fiat"`
	Frankfurter FrankfurterConfig `mapstructure:"frankfurter"`
	Provider    ProviderConfig
	Scheduler   SchedulerConfig
	Worker      WorkerConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port          int  `mapstructure:"port"`
	ServeSwagger  bool `mapstructure:"serve_swagger"`
	ServeAsynqmon bool `mapstructure:"serve_asynqmon"`
	ServeMetrics  bool `mapstructure:"serve_metrics"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// RatesConfig holds resolver settings.
type RatesConfig struct {
	TTLSeconds          int    `mapstructure:"ttl_seconds"`
	DefaultBaseCurrency string `mapstructure:"default_base_currency"`
}

// CurrenciesConfig lists the codes known to the currency registry.
type CurrenciesConfig struct {
	Fiat   []string `mapstructure:"fiat"`
	Crypto []string `mapstructure:"crypto"`
}

// StorageConfig selects where the rate cache and history live.
type StorageConfig struct {
	Backend string            `mapstructure:"backend"`
	File    FileStorageConfig `mapstructure:"file"`
}

// FileStorageConfig holds paths for the JSON file backend.
type FileStorageConfig struct {
	CachePath   string `mapstructure:"cache_path"`
	HistoryPath string `mapstructure:"history_path"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	Name               string `mapstructure:"name"`
	SSLMode            string `mapstructure:"sslmode"`
	MaxOpenConns       int    `mapstructure:"max_open_conns"`
	MaxIdleConns       int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSec int    `mapstructure:"conn_max_lifetime_sec"`
	DSN                string
}

// RedisConfig holds connection settings for both Redis instances.
type RedisConfig struct {
	AsynqAddr string `mapstructure:"asynq_addr"` // Redis instance for the Asynq task queue.
	CacheAddr string `mapstructure:"cache_addr"` // Redis instance for the rate store and provider cache.
}

// CryptoConfig holds settings for the CoinGecko crypto feed.
type CryptoConfig struct {
	Enabled           bool              `mapstructure:"enabled"`
	BaseURL           string            `mapstructure:"base_url"`
	APIKey            string            `mapstructure:"api_key"`
	IDs               map[string]string `mapstructure:"ids"` // currency code -> coin id
	Timeout           int               `mapstructure:"timeout_sec"`
	RequestsPerMinute int               `mapstructure:"requests_per_minute"`
}

// FiatConfig holds settings for the ExchangeRate-API fiat feed.
type FiatConfig struct {
	Enabled           bool     `mapstructure:"enabled"`
	BaseURL           string   `mapstructure:"base_url"`
	APIKey            string   `mapstructure:"api_key"`
	Base              string   `mapstructure:"base"`
	Currencies        []string `mapstructure:"currencies"`
	Timeout           int      `mapstructure:"timeout_sec"`
	RequestsPerMinute int      `mapstructure:"requests_per_minute"`
}

// FrankfurterConfig holds settings for the keyless fiat fallback. An empty BaseURL disables it.
type FrankfurterConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout_sec"`
}

// ProviderConfig holds settings shared by all upstream adapters.
type ProviderConfig struct {
	CacheTTLSec int `mapstructure:"cache_ttl_sec"`
}

// SchedulerConfig holds periodic refresh settings.
type SchedulerConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	IntervalSec int  `mapstructure:"interval_sec"`
}

// WorkerConfig holds background worker and task queue settings.
type WorkerConfig struct {
	Enabled          bool `mapstructure:"enabled"`
	Concurrency      int  `mapstructure:"concurrency"`
	MaxRetry         int  `mapstructure:"max_retry"`
	TimeoutSec       int  `mapstructure:"timeout_sec"`
	CheckIntervalSec int  `mapstructure:"check_interval_sec"`
}

// LoadConfig reads configuration from config files, environment variables, and defaults.
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		fmt.Printf("No .env file found or error loading it: %v\n", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Config search paths
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./internal/config")

	v.SetEnvPrefix("RATESVC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// It's okay if no config file, we have defaults and env
		fmt.Printf("Config file not found: %v\n", err)
	}

	return load(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.serve_swagger", true)
	v.SetDefault("server.serve_asynqmon", true)
	v.SetDefault("server.serve_metrics", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("rates.ttl_seconds", 300)
	v.SetDefault("rates.default_base_currency", "USD")
	v.SetDefault("currencies.fiat", []string{"USD", "EUR", "GBP", "RUB"})
	v.SetDefault("currencies.crypto", []string{"BTC", "ETH", "SOL"})
	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.file.cache_path", "data/rates.json")
	v.SetDefault("storage.file.history_path", "data/exchange_rates.json")
	v.SetDefault("database.host", "db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "ratesdb")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime_sec", 300)
	v.SetDefault("redis.asynq_addr", "redis_asynq:6380")
	v.SetDefault("redis.cache_addr", "redis_cache:6381")
	v.SetDefault("crypto.enabled", true)
	v.SetDefault("crypto.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("crypto.api_key", "")
	v.SetDefault("crypto.ids", map[string]string{"BTC": "bitcoin", "ETH": "ethereum", "SOL": "solana"})
	v.SetDefault("crypto.timeout_sec", 10)
	v.SetDefault("crypto.requests_per_minute", 30)
	v.SetDefault("fiat.enabled", true)
	v.SetDefault("fiat.base_url", "https://v6.exchangerate-api.com/v6")
	v.SetDefault("fiat.api_key", "")
	v.SetDefault("fiat.base", "USD")
	v.SetDefault("fiat.currencies", []string{"EUR", "GBP", "RUB"})
	v.SetDefault("fiat.timeout_sec", 10)
	v.SetDefault("fiat.requests_per_minute", 60)
	v.SetDefault("frankfurter.base_url", "https://api.frankfurter.dev/v1")
	v.SetDefault("frankfurter.timeout_sec", 10)
	v.SetDefault("provider.cache_ttl_sec", 30)
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval_sec", 60)
	v.SetDefault("worker.enabled", true)
	v.SetDefault("worker.concurrency", 1)
	v.SetDefault("worker.max_retry", 1)
	v.SetDefault("worker.timeout_sec", 30)
	v.SetDefault("worker.check_interval_sec", 5)
}

func load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg.Database.DSN = fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.User, cfg.Database.Password,
		cfg.Database.Host, cfg.Database.Port,
		cfg.Database.Name, cfg.Database.SSLMode)

	return &cfg, nil
}

// normalize upper-cases currency codes; viper lower-cases map keys.
func (c *Config) normalize() {
	c.Rates.DefaultBaseCurrency = strings.ToUpper(strings.TrimSpace(c.Rates.DefaultBaseCurrency))
	c.Fiat.Base = strings.ToUpper(strings.TrimSpace(c.Fiat.Base))
	c.Currencies.Fiat = upperAll(c.Currencies.Fiat)
	c.Currencies.Crypto = upperAll(c.Currencies.Crypto)
	c.Fiat.Currencies = upperAll(c.Fiat.Currencies)

	ids := make(map[string]string, len(c.Crypto.IDs))
	for code, id := range c.Crypto.IDs {
		ids[strings.ToUpper(code)] = id
	}
	c.Crypto.IDs = ids
	c.Storage.Backend = strings.ToLower(c.Storage.Backend)

	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetimeSec <= 0 {
		c.Database.ConnMaxLifetimeSec = 300
	}
}

func upperAll(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// Validate checks that all required configuration fields are set and valid.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be positive, got %d", c.Server.Port))
	}

	if c.Rates.TTLSeconds <= 0 {
		errs = append(errs, fmt.Errorf("rates.ttl_seconds must be positive, got %d", c.Rates.TTLSeconds))
	}
	if !codeRe.MatchString(c.Rates.DefaultBaseCurrency) {
		errs = append(errs, fmt.Errorf("rates.default_base_currency %q is not a currency code", c.Rates.DefaultBaseCurrency))
	}
	if len(c.Currencies.Fiat)+len(c.Currencies.Crypto) == 0 {
		errs = append(errs, errors.New("currencies.fiat and currencies.crypto are both empty"))
	}
	for _, code := range append(append([]string{}, c.Currencies.Fiat...), c.Currencies.Crypto...) {
		if !codeRe.MatchString(code) {
			errs = append(errs, fmt.Errorf("currency code %q must be 2-5 upper-case letters", code))
		}
	}
	// every stored pair is quoted against USD
	if !slices.Contains(c.Currencies.Fiat, "USD") {
		errs = append(errs, errors.New("currencies.fiat must include USD"))
	}
	if !slices.Contains(c.Currencies.Fiat, c.Rates.DefaultBaseCurrency) &&
		!slices.Contains(c.Currencies.Crypto, c.Rates.DefaultBaseCurrency) {
		errs = append(errs, fmt.Errorf("rates.default_base_currency %q is not in currencies.fiat or currencies.crypto", c.Rates.DefaultBaseCurrency))
	}

	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.File.CachePath == "" || c.Storage.File.HistoryPath == "" {
			errs = append(errs, errors.New("storage.file.cache_path and storage.file.history_path are required"))
		}
	case BackendRedis:
		if c.Redis.CacheAddr == "" {
			errs = append(errs, errors.New("redis.cache_addr is required for the redis backend (set RATESVC_REDIS_CACHE_ADDR)"))
		}
	case BackendPostgres:
		if c.Database.Host == "" {
			errs = append(errs, errors.New("database.host is required"))
		}
		if c.Database.Port <= 0 {
			errs = append(errs, fmt.Errorf("database.port must be positive, got %d", c.Database.Port))
		}
		if c.Database.User == "" {
			errs = append(errs, errors.New("database.user is required"))
		}
		if c.Database.Name == "" {
			errs = append(errs, errors.New("database.name is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be one of file, redis, postgres, got %q", c.Storage.Backend))
	}

	if c.Crypto.Enabled {
		if c.Crypto.BaseURL == "" {
			errs = append(errs, errors.New("crypto.base_url is required when crypto feed is enabled"))
		}
		if len(c.Crypto.IDs) == 0 {
			errs = append(errs, errors.New("crypto.ids must map at least one code to a coin id"))
		}
		if c.Crypto.Timeout <= 0 {
			errs = append(errs, fmt.Errorf("crypto.timeout_sec must be positive, got %d", c.Crypto.Timeout))
		}
	}
	if c.Fiat.Enabled {
		if c.Fiat.BaseURL == "" {
			errs = append(errs, errors.New("fiat.base_url is required when fiat feed is enabled"))
		}
		if !codeRe.MatchString(c.Fiat.Base) {
			errs = append(errs, fmt.Errorf("fiat.base %q is not a currency code", c.Fiat.Base))
		}
		if c.Fiat.Timeout <= 0 {
			errs = append(errs, fmt.Errorf("fiat.timeout_sec must be positive, got %d", c.Fiat.Timeout))
		}
	}
	if c.Provider.CacheTTLSec < 0 {
		errs = append(errs, fmt.Errorf("provider.cache_ttl_sec must be non-negative, got %d", c.Provider.CacheTTLSec))
	}

	if c.Scheduler.Enabled && c.Scheduler.IntervalSec <= 0 {
		errs = append(errs, fmt.Errorf("scheduler.interval_sec must be positive, got %d", c.Scheduler.IntervalSec))
	}

	if c.Worker.Enabled {
		if c.Redis.AsynqAddr == "" {
			errs = append(errs, errors.New("redis.asynq_addr is required when worker is enabled (set RATESVC_REDIS_ASYNQ_ADDR)"))
		}
		if c.Worker.Concurrency <= 0 {
			errs = append(errs, fmt.Errorf("worker.concurrency must be positive, got %d", c.Worker.Concurrency))
		}
		if c.Worker.MaxRetry < 0 {
			errs = append(errs, fmt.Errorf("worker.max_retry must be non-negative, got %d", c.Worker.MaxRetry))
		}
		if c.Worker.TimeoutSec <= 0 {
			errs = append(errs, fmt.Errorf("worker.timeout_sec must be positive, got %d", c.Worker.TimeoutSec))
		}
		if c.Worker.CheckIntervalSec <= 0 {
			errs = append(errs, fmt.Errorf("worker.check_interval_sec must be positive, got %d", c.Worker.CheckIntervalSec))
		}
	}

	return errors.Join(errs...)
}
