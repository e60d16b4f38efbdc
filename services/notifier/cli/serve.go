package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ramiqadoumi/go-resume-flow/internal/kafka"
	"github.com/ramiqadoumi/go-resume-flow/internal/notify"
	redisstore "github.com/ramiqadoumi/go-resume-flow/internal/redis"
	"github.com/ramiqadoumi/go-resume-flow/pkg/telemetry"
	"github.com/ramiqadoumi/go-resume-flow/services/notifier"
	"github.com/ramiqadoumi/go-resume-flow/services/notifier/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start consuming task events",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("kafka-brokers", "localhost:9092", "comma-separated Kafka broker addresses")
	serveCmd.Flags().String("redis-addr", "localhost:6379", "Redis address (host:port)")
	serveCmd.Flags().Int("rate-limit", 5, "max notifications per job per minute (0 = disabled)")
	serveCmd.Flags().String("metrics-addr", ":9096", "Prometheus metrics server address")
	serveCmd.Flags().String("otel-endpoint", "", "OTLP HTTP endpoint for tracing (e.g. localhost:4318); empty disables tracing")
	serveCmd.Flags().Bool("dead-letter", true, "send events every sink rejected to "+notifier.TopicDLQ+" instead of retrying them")
	serveCmd.Flags().String("webhook-url", "", "POST notifications to this URL")

	bindFlag("kafka_brokers", serveCmd.Flags(), "kafka-brokers")
	bindFlag("redis_addr", serveCmd.Flags(), "redis-addr")
	bindFlag("rate_limit", serveCmd.Flags(), "rate-limit")
	bindFlag("metrics_addr", serveCmd.Flags(), "metrics-addr")
	bindFlag("otel_endpoint", serveCmd.Flags(), "otel-endpoint")
	bindFlag("dead_letter", serveCmd.Flags(), "dead-letter")
	bindFlag("webhook_url", serveCmd.Flags(), "webhook-url")
	_ = viper.BindEnv("otel_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg := config.Load(viper.GetViper())
	logger := buildLogger(cfg.LogLevel, "notifier")

	shutdownTracer, err := telemetry.InitTracer(context.Background(), telemetry.TracerConfig{
		Service:     "notifier",
		Endpoint:    cfg.OTelEndpoint,
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer shutdownTracer()

	sinks, err := buildSinks(cfg)
	if err != nil {
		return err
	}
	if sinks.Len() == 0 {
		logger.Warn("no notification sinks configured; events will be consumed and dropped")
	}
	for _, s := range sinks.All() {
		logger.Info("sink enabled", slog.String("sink", s.Name()))
	}

	consumer := kafka.NewConsumer(strings.Split(cfg.KafkaBrokers, ","), kafka.TopicTaskEvents, notifier.GroupID, logger)
	defer func() { _ = consumer.Close() }()

	checks := map[string]telemetry.Check{}
	var limiter redisstore.RateLimiter
	if cfg.RateLimit > 0 {
		redisClient := redisstore.NewClient(cfg.RedisAddr)
		defer func() { _ = redisClient.Close() }()
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		limiter = redisstore.NewRateLimiter(redisClient, "notify", cfg.RateLimit, time.Minute)
		logger.Info("rate limiter enabled", slog.Int("limit_per_minute", cfg.RateLimit))
	}

	n := notifier.NewNotifier(consumer, sinks, limiter, logger)
	if cfg.DeadLetter {
		producer := kafka.NewProducer(strings.Split(cfg.KafkaBrokers, ","))
		defer func() { _ = producer.Close() }()
		n.WithDeadLetter(producer)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	telemetry.StartMetricsServer(ctx, cfg.MetricsAddr, logger, checks)

	logger.Info("notifier starting", slog.String("topic", kafka.TopicTaskEvents))
	if err := n.Run(ctx); err != nil {
		return fmt.Errorf("notifier: %w", err)
	}
	logger.Info("stopped")
	return nil
}

func buildSinks(cfg config.Config) (*notify.Registry, error) {
	reg := notify.NewRegistry()
	if cfg.WebhookURL != "" {
		var headers map[string]string
		if cfg.WebhookSecret != "" {
			headers = map[string]string{"X-Webhook-Secret": cfg.WebhookSecret}
		}
		reg.Register(notify.NewWebhookSink(cfg.WebhookURL, headers))
	}
	if cfg.TelegramToken != "" {
		s, err := notify.NewTelegramSink(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			return nil, err
		}
		reg.Register(s)
	}
	if cfg.SMTPHost != "" {
		s, err := notify.NewEmailSink(notify.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			From:     cfg.SMTPFrom,
			To:       cfg.SMTPTo,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		})
		if err != nil {
			return nil, err
		}
		reg.Register(s)
	}
	return reg, nil
}
