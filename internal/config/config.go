package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

const defaultJWTSecret = "coinflip-dev-secret"

type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	RPCURL        string `env:"ETH_RPC_URL" envDefault:"http://localhost:8545"`
	TargetChainID int64  `env:"TARGET_CHAIN_ID" envDefault:"11155111"`

	// Amounts are in ether.
	DefaultBet   decimal.Decimal `env:"DEFAULT_BET" envDefault:"0.0001"`
	FaucetAmount decimal.Decimal `env:"FAUCET_AMOUNT" envDefault:"1.0"`

	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"2m"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`

	// An empty RedisURL runs without rate limiting and round history.
	RedisURL  string `env:"REDIS_URL"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	JWTSecret      string        `env:"JWT_SECRET" envDefault:"coinflip-dev-secret"`
	TokenTTL       time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	AppIdleTimeout time.Duration `env:"APP_IDLE_TIMEOUT" envDefault:"30m"`

	BetRateLimit   int `env:"BET_RATE_LIMIT" envDefault:"30"`   // bets per minute
	TokenRateLimit int `env:"TOKEN_RATE_LIMIT" envDefault:"10"` // new play sessions per IP per minute
	MaxSessions    int `env:"MAX_SESSIONS" envDefault:"10000"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) validate() error {
	if c.IsProduction() && c.JWTSecret == defaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	if !c.DefaultBet.IsPositive() {
		return fmt.Errorf("DEFAULT_BET must be positive, got %s", c.DefaultBet)
	}
	if !c.FaucetAmount.IsPositive() {
		return fmt.Errorf("FAUCET_AMOUNT must be positive, got %s", c.FaucetAmount)
	}
	if c.MaxSessions < 0 {
		return fmt.Errorf("MAX_SESSIONS must not be negative, got %d", c.MaxSessions)
	}
	if c.ConnectTimeout <= 0 || c.RequestTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}
