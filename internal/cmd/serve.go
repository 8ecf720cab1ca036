package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lakeshift/relay/internal/config"
	"github.com/lakeshift/relay/internal/observability"
	"github.com/lakeshift/relay/internal/server"
	"github.com/lakeshift/relay/internal/server/handlers"
	"github.com/lakeshift/relay/pkg/match"
	"github.com/lakeshift/relay/pkg/preflight"
	"github.com/lakeshift/relay/pkg/provider"
	"github.com/lakeshift/relay/pkg/replicate"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the replication HTTP service",
	Long: `Start the HTTP service exposing POST /v1/replicate plus health and
version endpoints. Configuration comes from a config file, RELAY_*
environment variables, and defaults.

Examples:
  relay serve
  relay serve --config /etc/relay/relay.yaml
  RELAY_DESTINATION_BUCKET=replica relay serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	log, err := observability.NewLogger(level, cfg.Logging.Profile)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	src, err := newStoreProvider(ctx, cfg.Source)
	if err != nil {
		return fmt.Errorf("source store: %w", err)
	}
	defer func() { _ = src.Close() }()

	dst, err := newStoreProvider(ctx, cfg.Destination.StoreConfig)
	if err != nil {
		return fmt.Errorf("destination store: %w", err)
	}
	defer func() { _ = dst.Close() }()

	if _, err := preflight.Check(ctx, src, dst, cfg.Destination.Bucket,
		preflight.Options{ProbeDestination: true}); err != nil {
		return fmt.Errorf("preflight: %w", err)
	}
	log.Info("preflight passed", zap.String("destination_bucket", cfg.Destination.Bucket))

	var guard *match.Guard
	if len(cfg.Replication.Includes) > 0 || len(cfg.Replication.Excludes) > 0 {
		guard, err = match.New(match.Config{
			Includes: cfg.Replication.Includes,
			Excludes: cfg.Replication.Excludes,
		})
		if err != nil {
			return fmt.Errorf("admission patterns: %w", err)
		}
	}

	engine, err := replicate.New(src, dst, replicate.Config{
		DestinationBucket: cfg.Destination.Bucket,
		MaxRetries:        cfg.Replication.MaxRetries,
		RetryBaseDelay:    cfg.Replication.RetryBaseDelay,
		UploadTimeout:     cfg.Replication.UploadTimeout,
		OnCheckError:      replicate.OnCheckError(cfg.Replication.OnCheckError),
	}, log)
	if err != nil {
		return err
	}

	health := handlers.NewHealthManager(versionInfo.Version)
	health.RegisterChecker("destination", destinationHealthChecker{
		store:  dst,
		bucket: cfg.Destination.Bucket,
	})

	srv := server.New(server.Options{
		Host:             cfg.Server.Host,
		Port:             cfg.Server.Port,
		ReadTimeout:      cfg.Server.ReadTimeout,
		WriteTimeout:     cfg.Server.WriteTimeout,
		IdleTimeout:      cfg.Server.IdleTimeout,
		RateLimitEnabled: cfg.Server.RateLimit.Enabled,
		RateLimitRPS:     cfg.Server.RateLimit.RPS,
		RateLimitBurst:   cfg.Server.RateLimit.Burst,
		Logger:           log,
		Engine:           engine,
		Guard:            guard,
		Health:           health,
		Version: handlers.VersionInfo{
			Version:   versionInfo.Version,
			Commit:    versionInfo.Commit,
			BuildDate: versionInfo.BuildDate,
		},
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info("signal received, shutting down", zap.String("signal", sig.String()))
	case <-ctx.Done():
		log.Info("context canceled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// destinationHealthChecker probes the destination bucket with a HEAD
// against a key that should not exist. Not-found proves connectivity.
type destinationHealthChecker struct {
	store  provider.Provider
	bucket string
}

func (c destinationHealthChecker) CheckHealth(ctx context.Context) error {
	probeKey := "_relay/health-" + uuid.NewString()
	_, err := c.store.Head(ctx, c.bucket, probeKey)
	if err != nil && !provider.IsNotFound(err) {
		return err
	}
	return nil
}
