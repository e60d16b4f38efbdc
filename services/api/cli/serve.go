package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ramiqadoumi/go-resume-flow/internal/backend"
	"github.com/ramiqadoumi/go-resume-flow/internal/domain"
	"github.com/ramiqadoumi/go-resume-flow/internal/gateway"
	"github.com/ramiqadoumi/go-resume-flow/internal/kafka"
	redisstore "github.com/ramiqadoumi/go-resume-flow/internal/redis"
	"github.com/ramiqadoumi/go-resume-flow/internal/storage"
	"github.com/ramiqadoumi/go-resume-flow/internal/tracker"
	"github.com/ramiqadoumi/go-resume-flow/pkg/telemetry"
	"github.com/ramiqadoumi/go-resume-flow/services/api/config"
	"github.com/ramiqadoumi/go-resume-flow/services/api/handler"
	"github.com/ramiqadoumi/go-resume-flow/services/api/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST server",
	PreRun: func(cmd *cobra.Command, _ []string) {
		bindStorageFlags(cmd.Flags())
	},
	RunE: runServe,
}

func init() {
	addStorageFlags(serveCmd.Flags())
	serveCmd.Flags().String("http-port", "8080", "HTTP server port")
	serveCmd.Flags().String("metrics-addr", ":9095", "Prometheus metrics server address")
	serveCmd.Flags().String("kafka-brokers", "", "comma-separated Kafka broker addresses; empty disables task events")
	serveCmd.Flags().String("gateway-url", "", "optimization gateway base URL; empty disables optimization")
	serveCmd.Flags().String("backend-url", "", "job backend base URL; empty disables job editing")
	serveCmd.Flags().Duration("editor-delay", backend.DefaultEditDelay, "quiet period before a job edit is synced to the backend")
	serveCmd.Flags().Duration("poll-interval", tracker.DefaultPollConfig().Interval, "first delay between status polls")
	serveCmd.Flags().Int("poll-max-attempts", tracker.DefaultPollConfig().MaxAttempts, "status polls before a task is failed")
	serveCmd.Flags().Duration("poll-max-delay", tracker.DefaultPollConfig().MaxDelay, "cap on the delay between status polls")
	serveCmd.Flags().Int("optimize-rate", 3, "optimization runs per job per minute; 0 disables the limit")
	serveCmd.Flags().String("otel-endpoint", "", "OTLP HTTP endpoint for tracing (e.g. localhost:4318); empty disables tracing")

	bindFlag("http_port", serveCmd.Flags(), "http-port")
	bindFlag("metrics_addr", serveCmd.Flags(), "metrics-addr")
	bindFlag("kafka_brokers", serveCmd.Flags(), "kafka-brokers")
	bindFlag("gateway_url", serveCmd.Flags(), "gateway-url")
	bindFlag("backend_url", serveCmd.Flags(), "backend-url")
	bindFlag("editor_delay", serveCmd.Flags(), "editor-delay")
	bindFlag("poll_interval", serveCmd.Flags(), "poll-interval")
	bindFlag("poll_max_attempts", serveCmd.Flags(), "poll-max-attempts")
	bindFlag("poll_max_delay", serveCmd.Flags(), "poll-max-delay")
	bindFlag("optimize_rate", serveCmd.Flags(), "optimize-rate")
	bindFlag("otel_endpoint", serveCmd.Flags(), "otel-endpoint")
	_ = viper.BindEnv("otel_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg := config.Load(viper.GetViper())
	logger := buildLogger(cfg.LogLevel, "api")

	shutdownTracer, err := telemetry.InitTracer(context.Background(), telemetry.TracerConfig{
		Service:     "api",
		Endpoint:    cfg.OTelEndpoint,
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer shutdownTracer()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	deps := handler.Deps{
		Model:    a.model,
		Registry: a.registry,
		Catalog:  a.catalog,
		Document: a.doc,
		Ready:    a.storage.Ping,
	}

	opts := []tracker.Option{
		tracker.WithLogger(logger),
		tracker.WithResumeSource(a.doc.Snapshot),
		tracker.WithPollConfig(tracker.PollConfig{
			Interval:    cfg.PollInterval,
			MaxAttempts: cfg.PollMaxAttempts,
			MaxDelay:    cfg.PollMaxDelay,
		}),
	}
	if cfg.GatewayURL != "" {
		opts = append(opts, tracker.WithOptimizer(gateway.New(cfg.GatewayURL)))
	} else {
		logger.Warn("no gateway_url set; optimization is disabled")
	}
	if log := a.storage.TransitionLog(); log != nil {
		opts = append(opts, tracker.WithRecorder(log))
		deps.History = log
	}
	if cfg.KafkaBrokers != "" {
		producer := kafka.NewProducer(strings.Split(cfg.KafkaBrokers, ","))
		defer func() { _ = producer.Close() }()
		opts = append(opts, tracker.WithRecorder(kafka.NewEventPublisher(producer)))
	}
	tr := tracker.New(a.storage.Collection(storage.NamespaceTasks), opts...)
	defer tr.Close()
	deps.Tracker = tr

	if cfg.OptimizeRate > 0 && cfg.RedisAddr != "" {
		redisClient := redisstore.NewClient(cfg.RedisAddr)
		defer func() { _ = redisClient.Close() }()
		deps.Limiter = redisstore.NewRateLimiter(redisClient, "optimize", cfg.OptimizeRate, time.Minute)
	}

	if cfg.BackendURL != "" {
		editor := openJobEditor(ctx, cfg, logger)
		defer editor.Close()
		deps.Jobs = editor
	}

	restHandler := handler.NewREST(deps, logger)

	// ── HTTP server ───────────────────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1MB limit
	r.Get("/healthz", restHandler.Healthz)
	r.Get("/readyz", restHandler.Readyz)
	r.Route("/api/v1", restHandler.Mount)

	httpSrv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	telemetry.StartMetricsServer(ctx, cfg.MetricsAddr, logger, map[string]telemetry.Check{
		"storage": a.storage.Ping,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api HTTP starting",
			slog.String("addr", httpSrv.Addr),
			slog.String("storage", a.storage.Backend()),
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info("shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutCancel()
	if err := httpSrv.Shutdown(shutCtx); err != nil {
		logger.Error("HTTP shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("stopped")
	return nil
}

// openJobEditor loads the backend's jobs for local editing. An unreachable
// backend starts the editor empty rather than failing the server.
func openJobEditor(ctx context.Context, cfg config.Config, logger *slog.Logger) *backend.JobEditor {
	client := backend.New(cfg.BackendURL, nil)
	loadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	jobs, err := client.ListJobs(loadCtx)
	if err != nil {
		logger.Warn("could not load jobs from backend", slog.String("error", err.Error()))
		jobs = []domain.Job{}
	}
	logger.Info("jobs loaded", slog.Int("count", len(jobs)))
	return backend.NewJobEditor(client, jobs, cfg.EditorDelay, logger)
}
