package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "parkflow/backend/libs/config"
)

const (
	defaultPort            = "8085"
	defaultStoreTimeout    = 10 * time.Second
	defaultQuoteTTL        = 15 * time.Minute
	defaultWalletMaxConns  = 5
	defaultShutdownTimeout = 10 * time.Second
)

// HTTPConfig is the public listener.
type HTTPConfig struct {
	Port            string        `yaml:"port" env:"PARKING_HTTP_PORT"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" env:"PARKING_HTTP_SHUTDOWN_TIMEOUT"`
}

// AuthConfig holds the JWT secret shared with the auth service.
type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret" env:"JWT_SECRET"`
}

// SessionStoreConfig points at the hosted session store.
type SessionStoreConfig struct {
	URL     string        `yaml:"url" env:"SESSION_STORE_URL"`
	APIKey  string        `yaml:"apiKey" env:"SESSION_STORE_API_KEY"`
	Timeout time.Duration `yaml:"timeout" env:"SESSION_STORE_TIMEOUT"`
}

// WalletConfig enables the direct wallet read model. Without a DSN balances are
// read through the session store.
type WalletConfig struct {
	DSN          string `yaml:"dsn" env:"WALLET_POSTGRES_DSN"`
	MaxOpenConns int    `yaml:"maxOpenConns" env:"WALLET_MAX_OPEN_CONNS"`
}

// RedisConfig enables the shared quote store. Without an address quotes are
// kept in process memory.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"PARKING_REDIS_ADDR"`
	Password string `yaml:"password" env:"PARKING_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"PARKING_REDIS_DB"`
}

// QuotesConfig controls how long an issued quote stays usable.
type QuotesConfig struct {
	TTL time.Duration `yaml:"ttl" env:"PARKING_QUOTE_TTL"`
}

// Config defines parking service configuration.
type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Auth         AuthConfig         `yaml:"auth"`
	SessionStore SessionStoreConfig `yaml:"sessionStore"`
	Wallet       WalletConfig       `yaml:"wallet"`
	Redis        RedisConfig        `yaml:"redis"`
	Quotes       QuotesConfig       `yaml:"quotes"`
}

// Load reads configuration via shared helper.
func Load() (*Config, error) {
	cfg := &Config{
		HTTP: HTTPConfig{
			Port:            defaultPort,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		SessionStore: SessionStoreConfig{
			Timeout: defaultStoreTimeout,
		},
		Wallet: WalletConfig{
			MaxOpenConns: defaultWalletMaxConns,
		},
		Quotes: QuotesConfig{
			TTL: defaultQuoteTTL,
		},
	}

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SessionStore.URL) == "" {
		return errors.New("config: session store url required")
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("config: jwt secret required")
	}
	if c.Quotes.TTL <= 0 {
		return errors.New("config: quote ttl must be positive")
	}
	return nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = defaultPort
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}
