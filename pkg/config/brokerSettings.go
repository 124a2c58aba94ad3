package config

// BrokerSettings holds configuration for the publish transport.
type BrokerSettings struct {
	Type      string `mapstructure:"type" validate:"required,oneof=rabbitmq gcp-pubsub"`
	URL       string `mapstructure:"url" validate:"required_if=Type rabbitmq"`
	Vhost     string `mapstructure:"vhost"` // Optional, overrides the vhost in URL for raw messages only
	ProjectID string `mapstructure:"project_id" validate:"required_if=Type gcp-pubsub"`
	PoolSize  int    `mapstructure:"pool_size" validate:"gte=0"` // Optional for RabbitMQ
}

// ManagementSettings holds configuration for the RabbitMQ management API.
type ManagementSettings struct {
	URL          string `mapstructure:"url" validate:"required,url"`
	Username     string `mapstructure:"username" validate:"required"`
	Password     string `mapstructure:"password"`
	Vhost        string `mapstructure:"vhost" validate:"required"`
	ExchangeType string `mapstructure:"exchange_type" validate:"omitempty,oneof=direct fanout topic headers"`
	DefaultQueue string `mapstructure:"default_queue"`
}

// DataTransport returns the broker settings for stream data. Data is always
// published into the management vhost, where its exchanges are checked and
// provisioned.
func (c *Settings) DataTransport() BrokerSettings {
	settings := c.Broker
	settings.Vhost = c.Management.Vhost
	return settings
}

// RawTransport returns the broker settings for raw messages, which honour the
// broker vhost override.
func (c *Settings) RawTransport() BrokerSettings {
	return c.Broker
}
