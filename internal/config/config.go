package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/validator"
)

// Configuration is the root of every knob the core reads at startup. Every
// section maps to one component; nothing here is read lazily from viper
// after NewConfig returns.
type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig   `validate:"required"`
	Sentry     SentryConfig     `validate:"omitempty"`
	Pyroscope  PyroscopeConfig  `validate:"omitempty"`
	Cache      CacheConfig      `validate:"required"`
	Task       TaskConfig       `validate:"required"`
	Webhook    Webhook          `validate:"required"`
	Sweeper    SweeperConfig    `validate:"required"`
	Payment    PaymentConfig    `validate:"required"`
	Commerce   CommerceConfig   `validate:"required"`
	Auth       AuthConfig       `validate:"required"`
}

// DeploymentConfig selects the runtime profile the process is started in.
type DeploymentConfig struct {
	Mode types.RunMode `mapstructure:"mode" validate:"required"`
}

// ServerConfig configures the admin/ops HTTP surface.
type ServerConfig struct {
	Address string `mapstructure:"address" validate:"required"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level types.LogLevel `mapstructure:"level" validate:"required"`
}

// PostgresConfig configures the single connection pool every store and the
// task queue share.
type PostgresConfig struct {
	Host                   string `mapstructure:"host" validate:"required"`
	Port                   int    `mapstructure:"port" validate:"required"`
	User                   string `mapstructure:"user" validate:"required"`
	Password               string `mapstructure:"password" validate:"required"`
	DBName                 string `mapstructure:"dbname" validate:"required"`
	SSLMode                string `mapstructure:"sslmode" validate:"required"`
	MaxOpenConns           int    `mapstructure:"max_open_conns" default:"20"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns" default:"5"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes" default:"60"`
	AutoMigrate            bool   `mapstructure:"auto_migrate" default:"false"`
}

// SentryConfig configures error reporting.
type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate" default:"1.0"`
}

// PyroscopeConfig configures continuous profiling.
type PyroscopeConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	ServerAddress   string   `mapstructure:"server_address"`
	ApplicationName string   `mapstructure:"application_name" default:"subscription-core"`
	BasicAuthUser   string   `mapstructure:"basic_auth_user"`
	BasicAuthPass   string   `mapstructure:"basic_auth_pass"`
	SampleRate      uint32   `mapstructure:"sample_rate" default:"100"`
	DisableGCRuns   bool     `mapstructure:"disable_gc_runs"`
	ProfileTypes    []string `mapstructure:"profile_types"`
}

// CacheConfig toggles the in-process plan/tenant lookup cache.
type CacheConfig struct {
	Enabled bool `mapstructure:"enabled" validate:"required"`
}

// TaskConfig governs the persistent task queue: how long a claim is held
// before another worker may reap it, how many rows a worker claims per
// poll, and the backoff schedule for tasks that fail transiently.
type TaskConfig struct {
	LeaseSeconds         int `mapstructure:"lease_seconds" default:"60"`
	BatchSize            int `mapstructure:"batch_size" default:"25"`
	DefaultMaxAttempts   int `mapstructure:"default_max_attempts" default:"8"`
	BackoffBaseSeconds   int `mapstructure:"backoff_base_seconds" default:"10"`
	PollIntervalSeconds  int `mapstructure:"poll_interval_seconds" default:"5"`
	Workers              int `mapstructure:"workers" default:"8"`
}

// SweeperConfig governs the periodic scan that enqueues renewal tasks for
// subscriptions whose current period has ended.
type SweeperConfig struct {
	Schedule        string `mapstructure:"schedule" default:"*/5 * * * *"`
	BatchSize       int    `mapstructure:"batch_size" default:"100"`
	IntervalSeconds int    `mapstructure:"interval_seconds" default:"60"`
}

// PaymentConfig selects which PaymentProvider implementation is wired at
// startup.
type PaymentConfig struct {
	ProviderName string `mapstructure:"provider_name" validate:"required" default:"sandbox"`
	StripeAPIKey string `mapstructure:"stripe_api_key"`
}

// CommerceConfig selects which CommerceProvider implementation is wired at
// startup.
type CommerceConfig struct {
	ProviderName string `mapstructure:"provider_name" validate:"required" default:"sandbox"`
	BaseURL      string `mapstructure:"base_url"`
}

// AuthConfig configures the bearer-token middleware guarding the admin
// HTTP surface.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required"`
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	_ = godotenv.Load()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("CORE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	tenantWebhookConfig := make(map[string]TenantWebhookConfig)
	if err := v.UnmarshalKey("webhook.endpoints", &tenantWebhookConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal webhook endpoints config: %w", err)
	}
	cfg.Webhook.Endpoints = tenantWebhookConfig

	return &cfg, nil
}

func (c Configuration) Validate() error {
	return validator.ValidateRequest(c)
}

// GetDefaultConfig returns a configuration suitable for local development
// and for tests that need a Configuration without reading config.yaml.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Task: TaskConfig{
			LeaseSeconds:        60,
			BatchSize:           25,
			DefaultMaxAttempts:  8,
			BackoffBaseSeconds:  10,
			PollIntervalSeconds: 5,
			Workers:             8,
		},
		Webhook: Webhook{
			MaxAttempts:             8,
			RetryBackoffBaseSeconds: 10,
			FanOutBatchSize:         100,
			DispatchBatchSize:       100,
			FanOutIntervalSeconds:   5,
			DispatchIntervalSeconds: 5,
		},
		Sweeper:  SweeperConfig{Schedule: "*/5 * * * *", BatchSize: 100, IntervalSeconds: 60},
		Payment:  PaymentConfig{ProviderName: "sandbox"},
		Commerce: CommerceConfig{ProviderName: "sandbox"},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}
