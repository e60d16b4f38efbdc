package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	redisstore "github.com/ramiqadoumi/go-resume-flow/internal/redis"
	"github.com/ramiqadoumi/go-resume-flow/internal/storage"
	"github.com/ramiqadoumi/go-resume-flow/internal/tracker"
	"github.com/ramiqadoumi/go-resume-flow/pkg/telemetry"
	"github.com/ramiqadoumi/go-resume-flow/services/sweeper"
	"github.com/ramiqadoumi/go-resume-flow/services/sweeper/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the cleanup schedule",
	RunE:  runServe,
}

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single cleanup now, ignoring leader election",
	RunE:  runOnce,
}

func init() {
	for _, cmd := range []*cobra.Command{serveCmd, onceCmd} {
		cmd.Flags().String("storage", "redis", "task storage backend: redis | postgres")
		cmd.Flags().String("redis-addr", "localhost:6379", "Redis address (host:port)")
		cmd.Flags().String("postgres-dsn", "", "PostgreSQL DSN")
		cmd.Flags().Int("days-to-keep", 30, "delete completed tasks finished more than this many days ago")
	}
	serveCmd.Flags().String("schedule", "0 3 * * *", "cron schedule (standard 5-field syntax)")
	serveCmd.Flags().String("metrics-addr", ":9097", "Prometheus metrics server address")
	serveCmd.Flags().String("otel-endpoint", "", "OTLP HTTP endpoint for tracing (e.g. localhost:4318); empty disables tracing")

	bindFlag("storage", serveCmd.Flags(), "storage")
	bindFlag("redis_addr", serveCmd.Flags(), "redis-addr")
	bindFlag("postgres_dsn", serveCmd.Flags(), "postgres-dsn")
	bindFlag("days_to_keep", serveCmd.Flags(), "days-to-keep")
	bindFlag("schedule", serveCmd.Flags(), "schedule")
	bindFlag("metrics_addr", serveCmd.Flags(), "metrics-addr")
	bindFlag("otel_endpoint", serveCmd.Flags(), "otel-endpoint")
	_ = viper.BindEnv("otel_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
	_ = viper.BindEnv("postgres_dsn", "POSTGRES_DSN")

	rootCmd.AddCommand(onceCmd)
}

func openTracker(ctx context.Context, cfg config.Config, logger *slog.Logger) (*tracker.Tracker, *storage.Storage, error) {
	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	st, err := storage.Open(initCtx, storage.Options{
		Backend:     cfg.Storage,
		RedisAddr:   cfg.RedisAddr,
		PostgresDSN: cfg.PostgresDSN,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("storage: %w", err)
	}
	if st.Backend() == storage.BackendMemory {
		logger.Warn("memory storage holds no tasks of other processes; sweeps will find nothing")
	}
	return tracker.New(st.Collection(storage.NamespaceTasks), tracker.WithLogger(logger)), st, nil
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg := config.Load(viper.GetViper())
	logger := buildLogger(cfg.LogLevel, "sweeper")
	instanceID := "sweeper-" + uuid.New().String()[:8]

	shutdownTracer, err := telemetry.InitTracer(context.Background(), telemetry.TracerConfig{
		Service:     "sweeper",
		Endpoint:    cfg.OTelEndpoint,
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer shutdownTracer()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	tr, st, err := openTracker(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	defer tr.Close()

	redisClient := redisstore.NewClient(cfg.RedisAddr)
	defer func() { _ = redisClient.Close() }()
	leader := redisstore.NewLeader(redisClient, sweeper.LeaderKey, instanceID, sweeper.LeaderTTL)

	telemetry.StartMetricsServer(ctx, cfg.MetricsAddr, logger, map[string]telemetry.Check{
		"storage": st.Ping,
		"redis":   func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	})

	s := sweeper.NewSweeper(tr, leader, cfg.Schedule, cfg.DaysToKeep, logger)
	logger.Info("sweeper starting", slog.String("instance_id", instanceID), slog.String("storage", st.Backend()))
	if err := s.Run(ctx); err != nil {
		return fmt.Errorf("sweeper: %w", err)
	}
	logger.Info("stopped")
	return nil
}

func runOnce(cmd *cobra.Command, _ []string) error {
	v := viper.New()
	for flag, key := range map[string]string{
		"storage": "storage", "redis-addr": "redis_addr", "postgres-dsn": "postgres_dsn", "days-to-keep": "days_to_keep",
	} {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return err
		}
	}
	_ = v.BindEnv("postgres_dsn", "POSTGRES_DSN")
	cfg := config.Load(v)
	cfg.LogLevel = viper.GetString("log_level")
	logger := buildLogger(cfg.LogLevel, "sweeper")

	tr, st, err := openTracker(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	defer tr.Close()

	n := sweeper.NewSweeper(tr, nil, "", cfg.DaysToKeep, logger).Sweep(cmd.Context())
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %d task(s)\n", n)
	return nil
}
