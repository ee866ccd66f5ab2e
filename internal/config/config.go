package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Routing   RoutingConfig   `mapstructure:"routing"`
	Intent    IntentConfig    `mapstructure:"intent"`
	Payment   PaymentConfig   `mapstructure:"payment"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr                 string `mapstructure:"addr"`
	Password             string `mapstructure:"password"`
	DB                   int    `mapstructure:"db"`
	QuoteCacheTTLSeconds int    `mapstructure:"quote_cache_ttl_seconds"`
	ClaimTTLSeconds      int    `mapstructure:"claim_ttl_seconds"`
}

// RoutingConfig carries every policy constant of the routing engine so
// none of them is hard-coded in the generator.
type RoutingConfig struct {
	CrossChainThreshold float64 `mapstructure:"cross_chain_threshold"` // growth % above which a bridge route is emitted
	BestPriceThreshold  float64 `mapstructure:"best_price_threshold"`  // aggregate impact below this flags best price
	SourceChain         string  `mapstructure:"source_chain"`
	TargetChain         string  `mapstructure:"target_chain"`
	SourceToken         string  `mapstructure:"source_token"`
	CrossChainFeeBps    int64   `mapstructure:"cross_chain_fee_bps"`
}

type IntentConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	TimeoutMs int    `mapstructure:"timeout_ms"`
	Retries   int    `mapstructure:"retries"`
}

// PaymentConfig gates premium features (MEV protection, cross-chain
// settlement) behind an x402-style payment header.
type PaymentConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Network string  `mapstructure:"network"`
	Asset   string  `mapstructure:"asset"`
	PayTo   string  `mapstructure:"pay_to"`
	Price   float64 `mapstructure:"price"`
}

type SchedulerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Spec    string `mapstructure:"spec"` // cron spec for the recurring-order sweep
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type RateLimitConfig struct {
	PerSecond float64 `mapstructure:"per_second"`
	Burst     int     `mapstructure:"burst"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	// Environment variables support
	// e.g. X402GATE_DATABASE_DSN
	viper.SetEnvPrefix("x402gate")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.quote_cache_ttl_seconds", 30)
	viper.SetDefault("redis.claim_ttl_seconds", 60)
	viper.SetDefault("routing.cross_chain_threshold", 30)
	viper.SetDefault("routing.best_price_threshold", 0.003)
	viper.SetDefault("routing.source_chain", "ethereum")
	viper.SetDefault("routing.target_chain", "base")
	viper.SetDefault("routing.source_token", "USDC")
	viper.SetDefault("routing.cross_chain_fee_bps", 10)
	viper.SetDefault("intent.base_url", "")
	viper.SetDefault("intent.model", "gpt-4o-mini")
	viper.SetDefault("intent.timeout_ms", 10000)
	viper.SetDefault("intent.retries", 2)
	viper.SetDefault("payment.enabled", false)
	viper.SetDefault("payment.network", "base")
	viper.SetDefault("payment.asset", "USDC")
	viper.SetDefault("payment.price", 0.10)
	viper.SetDefault("scheduler.enabled", true)
	viper.SetDefault("scheduler.spec", "0 * * * * *") // every minute, with seconds field
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
	viper.SetDefault("rate_limit.per_second", 20)
	viper.SetDefault("rate_limit.burst", 40)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
