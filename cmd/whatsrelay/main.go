package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"whatsrelay/internal/config"
	"whatsrelay/internal/constants"
	"whatsrelay/internal/models"
	"whatsrelay/internal/queue"
	"whatsrelay/internal/service"
	"whatsrelay/internal/tracing"

	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging (phone numbers and message ids are logged unmasked)")
	configPath = flag.String("config", "", "Optional path to a JSON configuration file; environment variables take precedence")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("whatsrelay %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting whatsrelay")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	applyLogLevel(logger, cfg.LogLevel, *verbose)
	if *verbose {
		logger.Info("Verbose logging enabled - phone numbers and message ids will be logged unmasked")
	}

	for _, warning := range config.SecurityWarnings(cfg) {
		logger.Warn(warning)
	}

	serviceVersion := cfg.Tracing.ServiceVersion
	if serviceVersion == "" {
		serviceVersion = Version
	}
	tracingManager := tracing.NewTracingManager(tracing.TracingConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Tracing.Environment,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
		Enabled:        cfg.Tracing.Enabled,
		UseStdout:      cfg.Tracing.UseStdout,
	}, logger)

	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	relay := service.NewRelayService(queue.New(), logger, nil)
	server := NewServer(cfg, relay, logger, *verbose)

	if *configPath != "" {
		watcher := config.NewConfigWatcher(*configPath, logger)
		watcher.OnConfigChange(func(newCfg *models.Config) {
			server.UpdateSecrets(newCfg.Secrets())
			applyLogLevel(logger, newCfg.LogLevel, *verbose)
		})
		go func() {
			if err := watcher.Start(ctx); err != nil {
				logger.WithError(err).Error("Configuration watcher stopped")
			}
		}()
	}

	serverErrCh := make(chan error, constants.ServerErrorChannelSize)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSec)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	if pending := relay.Pending(); pending > 0 {
		logger.WithField(service.LogFieldPending, pending).Warn("Discarding undelivered messages on shutdown")
	}

	logger.Info("Server shutdown completed")
	return nil
}

// applyLogLevel sets the configured level. Verbose mode always logs at debug.
func applyLogLevel(logger *logrus.Logger, level string, verbose bool) {
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
		return
	}

	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		logger.Warnf("Invalid log level %q, defaulting to info", level)
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
}
