package config

// Webhook governs the outbox-to-endpoint relay: how many times a
// delivery is retried before it's marked failed, and the base of its
// exponential backoff schedule.
type Webhook struct {
	MaxAttempts             int                            `mapstructure:"max_attempts" default:"8"`
	RetryBackoffBaseSeconds int                            `mapstructure:"retry_backoff_base_seconds" default:"10"`
	FanOutBatchSize         int                            `mapstructure:"fan_out_batch_size" default:"100"`
	DispatchBatchSize       int                            `mapstructure:"dispatch_batch_size" default:"100"`
	FanOutIntervalSeconds   int                            `mapstructure:"fan_out_interval_seconds" default:"5"`
	DispatchIntervalSeconds int                            `mapstructure:"dispatch_interval_seconds" default:"5"`
	Endpoints               map[string]TenantWebhookConfig `mapstructure:"endpoints"`
}

// TenantWebhookConfig seeds a tenant's webhook endpoint from static
// configuration. Endpoints registered at runtime through the admin API
// live in the webhook_endpoints table instead; this only covers the
// bootstrap case of a single well-known endpoint per tenant.
type TenantWebhookConfig struct {
	URL            string            `mapstructure:"url"`
	Secret         string            `mapstructure:"secret"`
	Headers        map[string]string `mapstructure:"headers"`
	Enabled        bool              `mapstructure:"enabled"`
	ExcludedEvents []string          `mapstructure:"excluded_events"`
}
