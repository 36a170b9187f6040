package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the Lumo growth backend.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Growth     GrowthConfig     `mapstructure:"growth"`
	SMS        SMSConfig        `mapstructure:"sms"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port      int             `mapstructure:"port"`
	LogLevel  string          `mapstructure:"log_level"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig controls the per-client request limiter.
type RateLimitConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// AuthConfig captures token verification settings.
type AuthConfig struct {
	JWT JWTSettings `mapstructure:"jwt"`
}

// JWTSettings configures JWT access tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
}

// GrowthConfig tunes the referral engine: quotas, invitation lifetimes,
// message templating and suggestion ranking.
type GrowthConfig struct {
	DailyInviteLimit    int           `mapstructure:"daily_invite_limit"`
	InitialCredits      int           `mapstructure:"initial_credits"`
	InstallBonusCredits int           `mapstructure:"install_bonus_credits"`
	InviteExpiry        time.Duration `mapstructure:"invite_expiry"`
	SendMaxRetries      int           `mapstructure:"send_max_retries"`
	SendRetryDelay      time.Duration `mapstructure:"send_retry_delay"`
	SuggestionLimit     int           `mapstructure:"suggestion_limit"`
	DefaultCountryCode  string        `mapstructure:"default_country_code"`
	TrunkPrefix         string        `mapstructure:"trunk_prefix"`
	InviteBaseURL       string        `mapstructure:"invite_base_url"`
	InstallURL          string        `mapstructure:"install_url"`
}

// SMSConfig configures the outbound invitation channel.
type SMSConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("LUMO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.rate_limit.enabled", true)
	v.SetDefault("server.rate_limit.max_requests", 100)
	v.SetDefault("server.rate_limit.window", "1m")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/lumo-growth.sqlite")

	v.SetDefault("auth.jwt.issuer", "lumo")
	v.SetDefault("auth.jwt.access_token_ttl", "15m")

	v.SetDefault("growth.daily_invite_limit", 10)
	v.SetDefault("growth.initial_credits", 20)
	v.SetDefault("growth.install_bonus_credits", 5)
	v.SetDefault("growth.invite_expiry", "24h")
	v.SetDefault("growth.send_max_retries", 3)
	v.SetDefault("growth.send_retry_delay", "2s")
	v.SetDefault("growth.suggestion_limit", 100)
	v.SetDefault("growth.default_country_code", "+1")
	v.SetDefault("growth.trunk_prefix", "0")
	v.SetDefault("growth.invite_base_url", "https://lumo.app")
	v.SetDefault("growth.install_url", "https://lumo.app/get")

	v.SetDefault("sms.enabled", false)
	v.SetDefault("sms.rate_per_second", 5)
	v.SetDefault("sms.burst", 10)

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
