package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds typed configuration for the api service.
type Config struct {
	LogLevel     string
	HTTPPort     string
	MetricsAddr  string
	OTelEndpoint string

	// TraceSampleRatio is the share of traces kept; 0 keeps them all.
	TraceSampleRatio float64

	Storage     string
	RedisAddr   string
	PostgresDSN string

	// KafkaBrokers is comma-separated; empty disables task event publishing.
	KafkaBrokers string

	GatewayURL  string
	BackendURL  string
	EditorDelay time.Duration

	PollInterval    time.Duration
	PollMaxAttempts int
	PollMaxDelay    time.Duration

	// OptimizeRate caps optimization runs per job per minute; zero disables it.
	OptimizeRate  int
	DaysToKeep    int
	TemplatesFile string
}

// Load reads all values from the given viper instance.
func Load(v *viper.Viper) Config {
	return Config{
		LogLevel:         v.GetString("log_level"),
		HTTPPort:         v.GetString("http_port"),
		MetricsAddr:      v.GetString("metrics_addr"),
		OTelEndpoint:     v.GetString("otel_endpoint"),
		TraceSampleRatio: v.GetFloat64("trace_sample_ratio"),
		Storage:          v.GetString("storage"),
		RedisAddr:        v.GetString("redis_addr"),
		PostgresDSN:      v.GetString("postgres_dsn"),
		KafkaBrokers:     v.GetString("kafka_brokers"),
		GatewayURL:       v.GetString("gateway_url"),
		BackendURL:       v.GetString("backend_url"),
		EditorDelay:      v.GetDuration("editor_delay"),
		PollInterval:     v.GetDuration("poll_interval"),
		PollMaxAttempts:  v.GetInt("poll_max_attempts"),
		PollMaxDelay:     v.GetDuration("poll_max_delay"),
		OptimizeRate:     v.GetInt("optimize_rate"),
		DaysToKeep:       v.GetInt("days_to_keep"),
		TemplatesFile:    v.GetString("templates_file"),
	}
}
