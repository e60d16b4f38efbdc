package config

import "github.com/spf13/viper"

// Config holds typed configuration for the sweeper service.
type Config struct {
	LogLevel     string
	Storage      string
	RedisAddr    string
	PostgresDSN  string
	Schedule     string
	DaysToKeep   int
	MetricsAddr  string
	OTelEndpoint string

	// TraceSampleRatio is the share of traces kept; 0 keeps them all.
	TraceSampleRatio float64
}

// Load reads all values from the given viper instance.
func Load(v *viper.Viper) Config {
	return Config{
		LogLevel:         v.GetString("log_level"),
		Storage:          v.GetString("storage"),
		RedisAddr:        v.GetString("redis_addr"),
		PostgresDSN:      v.GetString("postgres_dsn"),
		Schedule:         v.GetString("schedule"),
		DaysToKeep:       v.GetInt("days_to_keep"),
		MetricsAddr:      v.GetString("metrics_addr"),
		OTelEndpoint:     v.GetString("otel_endpoint"),
		TraceSampleRatio: v.GetFloat64("trace_sample_ratio"),
	}
}
