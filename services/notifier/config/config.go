package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds typed configuration for the notifier service.
type Config struct {
	LogLevel     string
	KafkaBrokers string
	RedisAddr    string
	RateLimit    int
	MetricsAddr  string
	OTelEndpoint string
	DeadLetter   bool

	// TraceSampleRatio is the share of traces kept; 0 keeps them all.
	TraceSampleRatio float64

	WebhookURL    string
	WebhookSecret string

	TelegramToken  string
	TelegramChatID int64

	SMTPHost     string
	SMTPPort     int
	SMTPFrom     string
	SMTPTo       []string
	SMTPUsername string
	SMTPPassword string
}

// Load reads all values from the given viper instance.
func Load(v *viper.Viper) Config {
	return Config{
		LogLevel:         v.GetString("log_level"),
		KafkaBrokers:     v.GetString("kafka_brokers"),
		RedisAddr:        v.GetString("redis_addr"),
		RateLimit:        v.GetInt("rate_limit"),
		MetricsAddr:      v.GetString("metrics_addr"),
		OTelEndpoint:     v.GetString("otel_endpoint"),
		TraceSampleRatio: v.GetFloat64("trace_sample_ratio"),
		DeadLetter:       v.GetBool("dead_letter"),
		WebhookURL:       v.GetString("webhook_url"),
		WebhookSecret:    v.GetString("webhook_secret"),
		TelegramToken:    v.GetString("telegram_token"),
		TelegramChatID:   v.GetInt64("telegram_chat_id"),
		SMTPHost:         v.GetString("smtp_host"),
		SMTPPort:         v.GetInt("smtp_port"),
		SMTPFrom:         v.GetString("smtp_from"),
		SMTPTo:         splitList(v.GetString("smtp_to")),
		SMTPUsername: v.GetString("smtp_username"),
		SMTPPassword: v.GetString("smtp_password"),
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
