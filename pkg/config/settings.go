package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const envPrefix = "DATABROKER"

type Settings struct {
	Broker        BrokerSettings     `mapstructure:"broker"`
	Management    ManagementSettings `mapstructure:"management"`
	Cache         CacheSettings      `mapstructure:"cache"`
	Server        ServerSettings     `mapstructure:"server"`
	Observability Observability      `mapstructure:"observability"`
	Log           LogSettings        `mapstructure:"log"`
}

func (c *Settings) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// LoadFromFile reads databroker.yaml from filePath (or the working directory),
// merges databroker.<ENVIRONMENT>.yaml on top when present and finally applies
// DATABROKER_* environment variables.
func LoadFromFile(filePath string) (*Settings, error) {
	env := getEnvWithDefaultLookup("ENVIRONMENT", "development")

	setDefaults()
	viper.SetConfigType("yaml")
	viper.SetConfigName("databroker")
	viper.AddConfigPath(filePath)
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := mergeConfig(filePath, "databroker."+env); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to merge %s config: %w", env, err)
		}
	}

	cfg := &Settings{}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Settings) LoadFromEnv() error {
	setDefaults()
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // env vars like DATABROKER_BROKER_URL

	for _, key := range []string{
		"broker.type",
		"broker.url",
		"broker.vhost",
		"broker.project_id",
		"broker.pool_size",
		"management.url",
		"management.username",
		"management.password",
		"management.vhost",
		"management.exchange_type",
		"management.default_queue",
		"cache.max_size",
		"cache.idle_timeout",
		"cache.refresh_interval",
		"server.addr",
		"observability.service_name",
		"observability.tracing_url",
		"observability.sample_ratio",
		"log.level",
		"log.format",
	} {
		if err := viper.BindEnv(key); err != nil {
			return err
		}
	}

	return viper.Unmarshal(c)
}

func setDefaults() {
	viper.SetDefault("broker.type", "rabbitmq")
	viper.SetDefault("broker.pool_size", 5)
	viper.SetDefault("management.exchange_type", "topic")
	viper.SetDefault("cache.max_size", DefaultCacheMaxSize)
	viper.SetDefault("cache.idle_timeout", DefaultCacheIdleTimeout)
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("observability.service_name", "go-databroker")
	viper.SetDefault("observability.sample_ratio", 1.0)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}

func mergeConfig(path string, name string) error {
	viper.SetConfigName(name)
	viper.AddConfigPath(path)
	return viper.MergeInConfig()
}

func getEnvWithDefaultLookup(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}
