package config

type Observability struct {
	ServiceName string  `mapstructure:"service_name" validate:"required"`
	TracingURL  string  `mapstructure:"tracing_url" validate:"omitempty,hostname_port|url"`
	SampleRatio float64 `mapstructure:"sample_ratio" validate:"gte=0,lte=1"`
}

type LogSettings struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=text json"`
}

type ServerSettings struct {
	Addr string `mapstructure:"addr" validate:"required"`
}
