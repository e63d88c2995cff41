// Package main implements the auto-transform decision service. It
// evaluates inbound chat messages against per-tenant rules and
// coordinates transformation of the messages that match.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/House-lovers7/tone-bridge/config"
	"github.com/House-lovers7/tone-bridge/engine"
	"github.com/House-lovers7/tone-bridge/metric"
	"github.com/House-lovers7/tone-bridge/natsclient"
	"github.com/House-lovers7/tone-bridge/pkg/cache"
	"github.com/House-lovers7/tone-bridge/pkg/ratelimit"
	"github.com/House-lovers7/tone-bridge/platform"
	"github.com/House-lovers7/tone-bridge/store"
	"github.com/House-lovers7/tone-bridge/transform"
	"github.com/House-lovers7/tone-bridge/types"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "autotransform"
)

const shutdownTimeout = 15 * time.Second

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}

type cliFlags struct {
	configPath  string
	showVersion bool
	validate    bool
}

func parseFlags() *cliFlags {
	flags := &cliFlags{}
	flag.StringVar(&flags.configPath, "config", "", "path to JSON config file")
	flag.BoolVar(&flags.showVersion, "version", false, "print version and exit")
	flag.BoolVar(&flags.validate, "validate", false, "validate config and exit")
	flag.Parse()
	return flags
}

func setupLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func run() error {
	flags := parseFlags()

	if flags.showVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if flags.validate {
		slog.Info("configuration is valid")
		return nil
	}

	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	logger.Info("starting auto-transform service",
		"version", Version,
		"nats_url", cfg.NATS.URL,
		"transform_url", cfg.Transform.ServiceURL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := metric.NewMetricsRegistry()
	metrics := registry.CoreMetrics()

	natsClient, err := connectNATS(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := natsClient.Close(closeCtx); err != nil {
			logger.Warn("NATS close failed", "error", err)
		}
	}()

	app, err := buildApplication(ctx, cfg, natsClient, registry, logger)
	if err != nil {
		return err
	}
	defer app.close()

	return serve(ctx, cfg, app, registry, logger)
}

func connectNATS(ctx context.Context, cfg *config.Config, logger *slog.Logger,
	metrics *metric.Metrics) (*natsclient.Client, error) {

	opts := []natsclient.ClientOption{
		natsclient.WithClientName(cfg.NATS.Name),
		natsclient.WithLogger(logger),
		natsclient.WithStatusCallback(func(status natsclient.ConnectionStatus) {
			metrics.RecordNATSStatus(status == natsclient.StatusConnected)
		}),
	}
	if cfg.NATS.Username != "" {
		opts = append(opts, natsclient.WithCredentials(cfg.NATS.Username, cfg.NATS.Password))
	}
	if cfg.NATS.Token != "" {
		opts = append(opts, natsclient.WithToken(cfg.NATS.Token))
	}

	client, err := natsclient.NewClient(cfg.NATS.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return client, nil
}

// application bundles the wired collaborators the HTTP server exposes.
type application struct {
	store       *store.CachedStore
	logs        store.LogStore
	usage       store.UsageStore
	engine      *engine.Engine
	coordinator *transform.Coordinator
	platforms   *platform.Registry
	limiter     *ratelimit.SendLimiter

	configCache cache.Cache[*types.TenantConfig]
	ruleCache   cache.Cache[[]types.Rule]
}

// RegisterAdapter installs a platform adapter and returns its throttled
// send path. Adapter integrations call this before serve starts.
func (a *application) RegisterAdapter(adapter platform.Adapter) (*platform.ThrottledSender, error) {
	sender, err := platform.NewThrottledSender(adapter, a.limiter)
	if err != nil {
		return nil, err
	}
	if err := a.platforms.Register(adapter); err != nil {
		return nil, err
	}
	return sender, nil
}

func (a *application) close() {
	a.coordinator.Close()
	_ = a.configCache.Close()
	_ = a.ruleCache.Close()
}

func buildApplication(ctx context.Context, cfg *config.Config, natsClient *natsclient.Client,
	registry *metric.MetricsRegistry, logger *slog.Logger) (*application, error) {

	configStore, err := store.NewKVConfigStore(ctx, natsClient)
	if err != nil {
		return nil, fmt.Errorf("create config store: %w", err)
	}
	ruleStore, err := store.NewKVRuleStore(ctx, natsClient)
	if err != nil {
		return nil, fmt.Errorf("create rule store: %w", err)
	}
	logStore, err := store.NewKVLogStore(ctx, natsClient, cfg.Logs.CorrelationWindow.Std())
	if err != nil {
		return nil, fmt.Errorf("create log store: %w", err)
	}
	usageStore, err := store.NewKVUsageStore(ctx, natsClient)
	if err != nil {
		return nil, fmt.Errorf("create usage store: %w", err)
	}

	configCache, err := cache.NewTTL[*types.TenantConfig](ctx,
		cfg.Cache.TTL.Std(), cfg.Cache.CleanupInterval.Std(),
		cache.WithMetrics[*types.TenantConfig](registry, "config_cache"))
	if err != nil {
		return nil, fmt.Errorf("create config cache: %w", err)
	}
	ruleCache, err := cache.NewTTL[[]types.Rule](ctx,
		cfg.Cache.TTL.Std(), cfg.Cache.CleanupInterval.Std(),
		cache.WithMetrics[[]types.Rule](registry, "rule_cache"))
	if err != nil {
		return nil, fmt.Errorf("create rule cache: %w", err)
	}

	cachedStore := store.NewCachedStore(configStore, ruleStore, configCache, ruleCache, logger)

	metrics := registry.CoreMetrics()

	eng, err := engine.New(cachedStore, cachedStore, logStore, engine.Options{
		Metrics: metrics,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	client, err := transform.NewClient(transform.ClientConfig{
		BaseURL: cfg.Transform.ServiceURL,
		Timeout: cfg.Transform.Timeout.Std(),
	})
	if err != nil {
		return nil, fmt.Errorf("create transform client: %w", err)
	}

	coordinator, err := transform.NewCoordinator(client, logStore, transform.CoordinatorOptions{
		Usage:   usageStore,
		Metrics: metrics,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create coordinator: %w", err)
	}

	limiter, err := ratelimit.NewSendLimiter(cfg.Send.MinInterval.Std())
	if err != nil {
		return nil, fmt.Errorf("create send limiter: %w", err)
	}

	return &application{
		store:       cachedStore,
		logs:        logStore,
		usage:       usageStore,
		engine:      eng,
		coordinator: coordinator,
		platforms:   platform.NewRegistry(),
		limiter:     limiter,
		configCache: configCache,
		ruleCache:   ruleCache,
	}, nil
}

func serve(ctx context.Context, cfg *config.Config, app *application,
	registry *metric.MetricsRegistry, logger *slog.Logger) error {

	apiServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newServer(app, logger).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(
		registry.PrometheusRegistry(), promhttp.HandlerOpts{}))
	metricsServer := &http.Server{
		Addr:              cfg.Server.MetricsAddr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("API server listening", "addr", cfg.Server.Addr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()
	go func() {
		logger.Info("metrics server listening", "addr", cfg.Server.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api server shutdown failed", "error", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics server shutdown failed", "error", err)
	}

	return nil
}
