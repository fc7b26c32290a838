package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig represents database connection configuration. A DSN starting
// with "postgres://" selects PostgreSQL; anything else is treated as a SQLite
// file path (":memory:" included).
type DatabaseConfig struct {
	DSN             string `mapstructure:"dsn"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // seconds
}

// FinnhubConfig represents the external quote feed configuration.
type FinnhubConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	TokenHeader    string        `mapstructure:"token_header"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RetryAttempts  int           `mapstructure:"retry_attempts"`
}

// BrokerConfig represents settlement engine configuration. CommissionRate is
// kept as a string so it can be parsed into a decimal without float drift.
type BrokerConfig struct {
	CommissionRate string        `mapstructure:"commission_rate"`
	TickInterval   time.Duration `mapstructure:"tick_interval"`
}

// Rate parses the configured commission rate.
func (b BrokerConfig) Rate() (decimal.Decimal, error) {
	return decimal.NewFromString(b.CommissionRate)
}

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Finnhub  FinnhubConfig  `mapstructure:"finnhub"`
	Broker   BrokerConfig   `mapstructure:"broker"`
	LogLevel string         `mapstructure:"log_level"`
}

// LoadConfig loads the application configuration from config.yaml (optional)
// and STONKS_* environment variables on top of built-in defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	// Database defaults
	v.SetDefault("database.dsn", "stonks.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 3600)

	// Quote feed defaults. The api_key default registers the key with viper
	// so the environment override is picked up during Unmarshal.
	v.SetDefault("finnhub.base_url", "https://finnhub.io/api/v1/quote")
	v.SetDefault("finnhub.api_key", "")
	v.SetDefault("finnhub.token_header", "X-Finnhub-Token")
	v.SetDefault("finnhub.request_timeout", 10*time.Second)
	v.SetDefault("finnhub.retry_attempts", 3)

	// Broker defaults
	v.SetDefault("broker.commission_rate", "0.07")
	v.SetDefault("broker.tick_interval", time.Minute)

	v.SetDefault("log_level", "info")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("STONKS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional; anything else is a real error.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that required configuration is present and well formed.
// A missing quote feed API key is an unrecoverable startup error.
func (c *Config) Validate() error {
	if c.Finnhub.APIKey == "" {
		return fmt.Errorf("finnhub api key is not configured (set STONKS_FINNHUB_API_KEY)")
	}
	if c.Finnhub.RetryAttempts < 1 {
		return fmt.Errorf("finnhub retry attempts must be at least 1, got %d", c.Finnhub.RetryAttempts)
	}
	if c.Broker.TickInterval <= 0 {
		return fmt.Errorf("broker tick interval must be positive, got %s", c.Broker.TickInterval)
	}
	rate, err := c.Broker.Rate()
	if err != nil {
		return fmt.Errorf("invalid commission rate %q: %w", c.Broker.CommissionRate, err)
	}
	if rate.IsNegative() {
		return fmt.Errorf("commission rate must not be negative, got %s", rate)
	}
	return nil
}
