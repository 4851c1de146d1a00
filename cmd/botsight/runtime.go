package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/crimson-sun/botsight/internal/config"
	"github.com/crimson-sun/botsight/internal/instrumentation"
	"github.com/crimson-sun/botsight/internal/logging"
	"github.com/crimson-sun/botsight/internal/metrics"
	"github.com/crimson-sun/botsight/internal/otelsetup"
	"github.com/crimson-sun/botsight/internal/output"
	"github.com/crimson-sun/botsight/internal/output/appinsights"
	"github.com/crimson-sun/botsight/internal/output/stdout"

	// Register sink implementations.
	_ "github.com/crimson-sun/botsight/internal/output/file"
	_ "github.com/crimson-sun/botsight/internal/output/kafka"
	_ "github.com/crimson-sun/botsight/internal/output/otellog"
	_ "github.com/crimson-sun/botsight/internal/output/webhook"
)

// runtime holds everything a subcommand needs to track activity.
type runtime struct {
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *metrics.Metrics
	providers *otelsetup.Providers
	inst      *instrumentation.Instrumentation
}

func newRuntime(ctx context.Context, cmd *cobra.Command) (*runtime, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	levelFlag, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get log-level flag: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if levelFlag != "" {
		cfg.LogLevel = levelFlag
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}

	level := logging.ParseLevel(cfg.LogLevel)
	logger, err := logging.Init(os.Stderr, cfg.LogFormat, level, printsToStdout(cfg.Destinations))
	if err != nil {
		return nil, err
	}
	if level <= slog.LevelDebug {
		appinsights.EnableDiagnostics(logger)
	}

	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.OTLPInsecure)
	if err != nil {
		return nil, err
	}
	providers.SetGlobal()

	settings, err := cfg.Settings()
	if err != nil {
		_ = providers.Shutdown(ctx)
		return nil, err
	}
	m := metrics.New()
	inst, err := instrumentation.New(settings,
		instrumentation.WithLogger(logger),
		instrumentation.WithMetrics(m),
	)
	if err != nil {
		_ = providers.Shutdown(ctx)
		return nil, err
	}

	logger.Info("botsight starting",
		"version", version,
		"destinations", len(cfg.Destinations),
		"event_naming", inst.Taxonomy().Name(),
		"sentiment", cfg.SentimentAPIKey != "",
	)
	return &runtime{cfg: cfg, logger: logger, metrics: m, providers: providers, inst: inst}, nil
}

// close flushes pending telemetry and shuts the providers down.
func (r *runtime) close(ctx context.Context) error {
	err := r.inst.Close()
	return multierr.Append(err, r.providers.Shutdown(ctx))
}

// printsToStdout reports whether any destination writes NDJSON to stdout.
func printsToStdout(keys []string) bool {
	for _, k := range keys {
		if scheme, _, _ := output.ParseKey(k); scheme == stdout.Scheme {
			return true
		}
	}
	return false
}
