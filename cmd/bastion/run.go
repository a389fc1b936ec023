package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"guardline-hq/bastion/pkg/api"
	"guardline-hq/bastion/pkg/api/handlers"
	"guardline-hq/bastion/pkg/audit"
	"guardline-hq/bastion/pkg/config"
	"guardline-hq/bastion/pkg/detector/builtin"
	"guardline-hq/bastion/pkg/rules"
	"guardline-hq/bastion/pkg/rules/source"
	"guardline-hq/bastion/pkg/telemetry/logging"
	"guardline-hq/bastion/pkg/telemetry/metrics"
	"guardline-hq/bastion/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Bastion scan server",
	Long: `Start the Bastion scan server with the specified configuration.

The server listens on the configured address and evaluates scan and rule
execution requests through the detector registry and the configured ruleset.

Examples:
  # Start with default config
  bastion run

  # Start with custom config
  bastion run --config /etc/bastion/config.yaml

  # Override listen address
  bastion run --listen 0.0.0.0:8642

  # Validate config without starting server
  bastion run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := config.GetConfig()

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	if _, err := logging.Setup(cfg.Telemetry.Logging); err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	printBanner(cfg)

	registry, err := builtin.BuildRegistry(cfg.Detectors)
	if err != nil {
		return fmt.Errorf("failed to build detector registry: %w", err)
	}
	fmt.Printf("✓ Detectors registered (%d)\n", registry.Len())

	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)

	tracer, err := tracing.New(cfg.Telemetry.Tracing)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		if err := tracer.Shutdown(context.Background()); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	}()

	executor := rules.NewExecutor(registry, cfg.Scan.RuleTimeout, collector.Scan())
	orchestrator := rules.NewOrchestrator(executor,
		rules.WithConcurrency(cfg.Scan.Concurrency),
		rules.WithScanTimeout(cfg.Scan.ScanTimeout),
		rules.WithMetrics(collector.Scan()),
		rules.WithTracer(tracer.Tracer()),
	)

	defaults := source.Defaults{
		Threshold: cfg.Scan.DefaultThreshold,
		Relation:  cfg.Scan.DefaultRelation,
	}

	var validator *source.Validator
	if cfg.Rules.Validation.Enabled {
		validator, err = source.NewValidator()
		if err != nil {
			return fmt.Errorf("failed to build ruleset validator: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := source.NewStore()
	requireRuleset := cfg.Rules.Mode != "" && cfg.Rules.Mode != "none"
	if requireRuleset {
		if err := startRulesetSource(ctx, cfg, defaults, validator, store); err != nil {
			return err
		}
		fmt.Println("✓ Ruleset loaded")
	}

	var recorder handlers.AuditRecorder
	if cfg.Audit.Enabled {
		auditStore, err := audit.NewStore(cfg.Audit.SQLite)
		if err != nil {
			return fmt.Errorf("failed to open audit store: %w", err)
		}
		defer auditStore.Close()
		recorder = auditStore

		pruner := audit.NewPruner(auditStore, cfg.Audit.Retention)
		scheduler := audit.NewScheduler(pruner, cfg.Audit.Retention.Schedule)
		if err := scheduler.Start(ctx); err != nil {
			slog.Warn("failed to start audit retention scheduler", "error", err)
		} else {
			defer scheduler.Stop()
		}
		fmt.Println("✓ Audit store initialized")
	}

	var metricsHandler http.Handler
	if collector.Enabled() {
		metricsHandler = collector.Handler()
	}

	handler := api.NewHandler(api.Routes{
		Execute:        handlers.NewExecuteHandler(executor, defaults),
		Scan:           handlers.NewScanHandler(orchestrator, store, defaults, recorder),
		Health:         handlers.NewHealthHandler(),
		Ready:          handlers.NewReadyHandler(registry, store, requireRuleset),
		Metrics:        metricsHandler,
		MetricsPath:    cfg.Telemetry.Metrics.Path,
		HTTPMetrics:    collector.HTTP(),
		RequestTimeout: cfg.Server.WriteTimeout,
	})

	srv := api.NewServer(cfg.Server, handler)

	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/status/healthz\n", cfg.Server.ListenAddress)
	if metricsHandler != nil {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	return srv.Start(ctx)
}

// startRulesetSource loads the default ruleset into the store and starts the
// configured reload mechanism: a filesystem watcher for file mode, a poll
// loop for git mode.
func startRulesetSource(ctx context.Context, cfg *config.Config, defaults source.Defaults, validator *source.Validator, store *source.Store) error {
	switch cfg.Rules.Mode {
	case "file":
		fileSource := source.NewFileSource(cfg.Rules.FilePath, defaults, validator, cfg.Rules.Validation.Strict)
		rs, err := fileSource.Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to load ruleset: %w", err)
		}
		store.Swap(rs)

		if cfg.Rules.Watch {
			watcher, err := source.NewWatcher(fileSource, store)
			if err != nil {
				slog.Warn("failed to start ruleset watcher", "error", err)
				return nil
			}
			go func() {
				if err := watcher.Watch(ctx); err != nil {
					slog.Error("ruleset watcher stopped", "error", err)
				}
			}()
		}
		return nil

	case "git":
		gitSource, err := source.NewGitSource(cfg.Rules.Git, defaults, validator, cfg.Rules.Validation.Strict)
		if err != nil {
			return fmt.Errorf("failed to create git ruleset source: %w", err)
		}
		rs, err := gitSource.Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to load ruleset: %w", err)
		}
		store.Swap(rs)

		go gitSource.Poll(ctx, func(pollCtx context.Context) {
			rs, err := gitSource.Load(pollCtx)
			if err != nil {
				slog.Error("ruleset refresh failed", "error", err)
				return
			}
			store.Swap(rs)
		})
		return nil

	default:
		return fmt.Errorf("unsupported rules mode: %s", cfg.Rules.Mode)
	}
}

func printBanner(cfg *config.Config) {
	fmt.Printf("Bastion v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")
}
