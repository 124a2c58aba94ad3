package config

import "time"

const (
	DefaultCacheMaxSize     = 1000
	DefaultCacheIdleTimeout = 30 * time.Minute
)

// CacheSettings bounds the exchange existence cache.
type CacheSettings struct {
	MaxSize         uint64        `mapstructure:"max_size" validate:"gt=0"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" validate:"gt=0"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval" validate:"gte=0"` // 0 disables periodic refresh
}
