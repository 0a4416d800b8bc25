package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/payhole/payments/internal/application/payment/blockchain"
	sharedConfig "github.com/payhole/payments/internal/shared/config"
)

type Config struct {
	Server    sharedConfig.ServerConfig    `mapstructure:"server"`
	Logger    sharedConfig.LoggerConfig    `mapstructure:"logger"`
	Auth      sharedConfig.AuthConfig      `mapstructure:"auth"`
	Solana    sharedConfig.SolanaConfig    `mapstructure:"solana"`
	Ledger    sharedConfig.LedgerConfig    `mapstructure:"ledger"`
	Redis     sharedConfig.RedisConfig     `mapstructure:"redis"`
	Webhook   sharedConfig.WebhookConfig   `mapstructure:"webhook"`
	NATS      sharedConfig.NATSConfig      `mapstructure:"nats"`
	RateLimit sharedConfig.RateLimitConfig `mapstructure:"ratelimit"`
}

// legacyEnv maps the variable names used by existing deployments onto config keys.
var legacyEnv = map[string]string{
	"server.port":               "PORT",
	"auth.jwt.secret":           "JWT_SECRET",
	"solana.rpc_url":            "HELIUS_RPC_URL",
	"solana.usdc_mint":          "USDC_MINT_ADDRESS",
	"solana.treasury_wallet":    "TREASURY_WALLET",
	"solana.min_payment_amount": "MIN_PAYMENT_AMOUNT",
	"ledger.path":               "UNLOCK_DB_PATH",
	"webhook.unlock_url":        "PROXY_UNLOCK_WEBHOOK",
}

// Load builds a Config from an optional YAML file, PAYHOLE_* environment
// variables and the legacy variable names. An empty configFile searches the
// usual ./configs locations; a missing file is not an error.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	v.SetEnvPrefix("PAYHOLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "PAYHOLE_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the struct tags of every section.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Solana.MinPaymentRaw() <= 0 {
		return fmt.Errorf("invalid configuration: Config.Solana.MinPaymentAmount (base_unit): %v is below one base unit at %d decimals",
			c.Solana.MinPaymentAmount, c.Solana.TokenDecimals)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 4000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.trusted_proxies", []string{"127.0.0.1"})

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stdout")

	v.SetDefault("auth.jwt.issuer", "payhole-payments")

	v.SetDefault("solana.usdc_mint", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	v.SetDefault("solana.min_payment_amount", 5)
	v.SetDefault("solana.token_decimals", blockchain.USDCDecimals)
	v.SetDefault("solana.rpc_timeout", "10s")

	v.SetDefault("ledger.driver", "file")
	v.SetDefault("ledger.path", "data/unlocks.json")
	v.SetDefault("ledger.redis_key", "payhole:unlocks")

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.unlock_channel", "payhole:unlocks:granted")

	v.SetDefault("webhook.unlock_url", "")
	v.SetDefault("webhook.timeout", "5s")

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "payhole.unlocks.granted")

	v.SetDefault("ratelimit.pay_limit", 30)
	v.SetDefault("ratelimit.window", "1m")
}
