package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/compliops/internal/analyzer"
	"github.com/good-yellow-bee/compliops/internal/api"
	"github.com/good-yellow-bee/compliops/internal/api/health"
	"github.com/good-yellow-bee/compliops/internal/chat"
	"github.com/good-yellow-bee/compliops/internal/executor"
	"github.com/good-yellow-bee/compliops/internal/intel"
	"github.com/good-yellow-bee/compliops/internal/metrics"
	"github.com/good-yellow-bee/compliops/internal/models"
	"github.com/good-yellow-bee/compliops/internal/notifier"
	"github.com/good-yellow-bee/compliops/internal/storage"
	"github.com/good-yellow-bee/compliops/internal/watchtower"
	"github.com/good-yellow-bee/compliops/pkg/config"
)

var (
	configFile string
	httpAddr   string
	envFile    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "compliops-server",
	Short: "CompliOps Server - Regulatory change monitoring and reporting",
	Long: `CompliOps Server watches a regulatory source for changes, records an
impact-classified alert for every change, and generates compliance reports
for alerts on request.

Without GEMINI_API_KEY the server runs in mock mode: classifications, reports
and chat answers are produced deterministically from built-in templates.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(config.VersionString())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address (overrides config)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func runServer(cmd *cobra.Command, args []string) error {
	var cfg *Config

	// Load configuration from file if provided
	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
	}

	// Override with CLI flags
	if httpAddr != "" {
		cfg.Server.HTTPAddress = httpAddr
	}
	cfg.Verbose = verbose

	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	// A missing .env is normal in production.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Auto-create data directory
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// Initialize storage
	store := storage.NewSQLiteStorage(cfg.Database.Path)
	if err := store.Open(); err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	logger.Info("database initialized", zap.String("path", cfg.Database.Path))

	gateway, err := newGateway(ctx, cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("intelligence gateway", zap.String("mode", intel.Mode(gateway)))

	classifier := analyzer.New(gateway, logger)

	// Watchtower
	source, err := newSource(cfg)
	if err != nil {
		return err
	}
	dispatcher, err := newDispatcher(cfg)
	if err != nil {
		return err
	}
	var alertSink watchtower.AlertSink = store.Alerts()
	if dispatcher.Len() > 0 {
		alertSink = notifier.NewSink(store.Alerts(), dispatcher, 10*time.Second, logger)
		logger.Info("alert notifications enabled",
			zap.Int("notifiers", dispatcher.Len()),
			zap.String("min_impact", cfg.Notifications.MinImpact))
	}
	monitor := watchtower.NewMonitor(source, classifier, alertSink, logger)
	scheduler := watchtower.NewScheduler(monitor, watchtower.SchedulerConfig{
		Interval:    duration(cfg.Watchtower.Interval),
		PollTimeout: duration(cfg.Watchtower.Timeout),
		RunOnStart:  cfg.Watchtower.RunOnStart,
	}, logger)

	// Executor
	var profiles executor.ProfileSource
	if cfg.Executor.ProfilePath != "" {
		profiles = executor.NewFileProfileSource(cfg.Executor.ProfilePath)
	}
	exec := executor.New(store.Alerts(), store.Reports(), classifier, gateway, profiles, executor.Config{
		ProfileTimeout: duration(cfg.Executor.Timeout),
	}, logger)
	runner := executor.NewRunner(exec, cfg.Executor.MaxConcurrent, logger)

	// REST API
	jwtSecret, err := loadJWTSecret(logger)
	if err != nil {
		return err
	}
	apiServer, err := api.New(&api.Config{
		Address:           cfg.Server.HTTPAddress,
		JWTSecret:         jwtSecret,
		TokenTTL:          duration(cfg.Auth.TokenTTL),
		RateLimitPerIP:    cfg.Server.RateLimitPerIP,
		Version:           config.ShortVersionString(),
		GatewayConfigured: intel.Configured(gateway),
		Verbose:           cfg.Verbose,
	}, store, runner, chat.NewAdvisor(nil, gateway, logger), logger)
	if err != nil {
		return fmt.Errorf("create api server: %w", err)
	}
	apiServer.RegisterHealthChecker(health.NewSQLiteChecker(store.DB()))
	apiServer.RegisterHealthChecker(health.NewSchedulerChecker(scheduler.Running))

	metricsServer := metrics.NewServer(cfg.Server.MetricsAddress, logger)

	logger.Info("starting compliops-server",
		zap.String("version", config.Version),
		zap.String("http", cfg.Server.HTTPAddress),
		zap.String("metrics", cfg.Server.MetricsAddress),
		zap.String("source", source.Name()))

	scheduler.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return apiServer.Run(gctx)
	})
	g.Go(func() error {
		return metricsServer.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})
	if fs, ok := source.(*watchtower.FileSource); ok {
		g.Go(func() error {
			return fs.Watch(gctx, scheduler.Trigger, logger)
		})
	}

	runErr := g.Wait()

	logger.Info("shutting down")
	scheduler.Stop()

	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := runner.Wait(drainCtx); err != nil {
		logger.Warn("report tasks still running at exit", zap.Error(err))
	}

	if runErr != nil {
		return fmt.Errorf("run server: %w", runErr)
	}
	logger.Info("server stopped")
	return nil
}

// newGateway builds the Gemini gateway behind a timeout and circuit breaker,
// or the unavailable gateway when no API key is set.
func newGateway(ctx context.Context, cfg *Config, logger *zap.Logger) (intel.Gateway, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		logger.Warn("GEMINI_API_KEY not set, running in mock mode")
		return intel.Unavailable, nil
	}

	gemini, err := intel.NewGeminiGateway(ctx, intel.GeminiConfig{
		APIKey:      apiKey,
		Model:       cfg.Gemini.Model,
		Temperature: cfg.Gemini.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini gateway: %w", err)
	}
	logger.Info("gemini gateway configured", zap.String("backend", gemini.Name()))

	return intel.NewGuarded(gemini, intel.GuardOptions{
		Timeout:          duration(cfg.Gemini.Timeout),
		FailureThreshold: cfg.Gemini.FailureThreshold,
	}, logger), nil
}

func newSource(cfg *Config) (watchtower.Source, error) {
	src := cfg.Watchtower.Source
	switch src.Type {
	case SourceHTTP:
		s, err := watchtower.NewHTTPSource(src.URL, duration(cfg.Watchtower.Timeout))
		if err != nil {
			return nil, fmt.Errorf("create http source: %w", err)
		}
		return s, nil
	case SourceFile:
		s, err := watchtower.NewFileSource(src.Path)
		if err != nil {
			return nil, fmt.Errorf("create file source: %w", err)
		}
		return s, nil
	default:
		return watchtower.NewRotatingSource(), nil
	}
}

// newDispatcher registers a notifier for every configured webhook.
func newDispatcher(cfg *Config) (*notifier.Dispatcher, error) {
	minImpact, _ := models.ParseImpactLevel(cfg.Notifications.MinImpact)
	d := notifier.NewDispatcher(notifier.DispatcherConfig{
		MinImpact: minImpact,
		RateLimit: notifier.RateLimitConfig{
			MaxPerWindow: cfg.Notifications.MaxPerMinute,
			Window:       time.Minute,
		},
	})

	if url := envOr("COMPLIOPS_SLACK_WEBHOOK_URL", cfg.Notifications.SlackWebhookURL); url != "" {
		n, err := notifier.NewSlackNotifier(notifier.WebhookConfig{WebhookURL: url})
		if err != nil {
			return nil, err
		}
		d.Register(n)
	}
	if url := envOr("COMPLIOPS_TEAMS_WEBHOOK_URL", cfg.Notifications.TeamsWebhookURL); url != "" {
		n, err := notifier.NewTeamsNotifier(notifier.WebhookConfig{WebhookURL: url})
		if err != nil {
			return nil, err
		}
		d.Register(n)
	}
	return d, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadJWTSecret reads COMPLIOPS_JWT_SECRET, or generates an ephemeral secret so
// tokens stop validating after a restart.
func loadJWTSecret(logger *zap.Logger) ([]byte, error) {
	if s := os.Getenv("COMPLIOPS_JWT_SECRET"); s != "" {
		return []byte(s), nil
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate jwt secret: %w", err)
	}
	logger.Warn("COMPLIOPS_JWT_SECRET not set, using an ephemeral secret")
	return secret, nil
}
