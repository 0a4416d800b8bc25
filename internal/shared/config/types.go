package config

import (
	"fmt"
	"math"
	"time"
)

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port" validate:"min=1,max=65535"`
	Mode           string   `mapstructure:"mode" validate:"oneof=debug release test"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret" validate:"required,min=32"`
	Issuer string `mapstructure:"issuer" validate:"required"`
}

type AuthConfig struct {
	JWT JWTConfig `mapstructure:"jwt"`
}

// SolanaConfig describes where payments are verified and what qualifies as one.
type SolanaConfig struct {
	RPCURL           string        `mapstructure:"rpc_url" validate:"required,url"`
	USDCMint         string        `mapstructure:"usdc_mint" validate:"required,min=32"`
	TreasuryWallet   string        `mapstructure:"treasury_wallet" validate:"required"`
	MinPaymentAmount float64       `mapstructure:"min_payment_amount" validate:"gt=0"`
	TokenDecimals    int           `mapstructure:"token_decimals" validate:"min=0,max=18"`
	RPCTimeout       time.Duration `mapstructure:"rpc_timeout" validate:"gt=0"`
}

// MinPaymentRaw is MinPaymentAmount in base units of the mint, rounded to the
// nearest unit.
func (s SolanaConfig) MinPaymentRaw() int64 {
	return int64(math.Round(s.MinPaymentAmount * math.Pow10(s.TokenDecimals)))
}

// LedgerConfig selects the unlock ledger backend.
// Driver is one of file, sqlite or redis.
type LedgerConfig struct {
	Driver   string `mapstructure:"driver" validate:"oneof=file sqlite redis"`
	Path     string `mapstructure:"path"`
	RedisKey string `mapstructure:"redis_key"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// UnlockChannel is the Pub/Sub channel unlock events are published on.
	// Empty disables publishing.
	UnlockChannel string `mapstructure:"unlock_channel"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Enabled reports whether a redis server has been configured.
func (r *RedisConfig) Enabled() bool {
	return r.Host != ""
}

type WebhookConfig struct {
	UnlockURL string        `mapstructure:"unlock_url" validate:"omitempty,url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type RateLimitConfig struct {
	PayLimit int           `mapstructure:"pay_limit"`
	Window   time.Duration `mapstructure:"window"`
}
