package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/openfuelmap/fuelgrid/internal/config"
	"github.com/openfuelmap/fuelgrid/internal/invalidation"
	"github.com/openfuelmap/fuelgrid/internal/invalidation/kafkaconsumer"
	"github.com/openfuelmap/fuelgrid/internal/logger"
	"github.com/openfuelmap/fuelgrid/internal/observability"
	"github.com/openfuelmap/fuelgrid/internal/pricing"
	"github.com/openfuelmap/fuelgrid/internal/remotecache"
	"github.com/openfuelmap/fuelgrid/internal/remotecache/redisstore"
	"github.com/openfuelmap/fuelgrid/internal/server"
	"github.com/openfuelmap/fuelgrid/internal/tilecache"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   strings.ToLower(os.Getenv("LOG_CONSOLE")) == "true",
		Component: "server",
	}, os.Stdout)

	observability.ExposeBuildInfo(Version)
	zl.Info().Str("addr", cfg.Addr).Str("version", Version).Str("redis", cfg.RedisAddr).Msg("starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	store, err := redisstore.New(connectCtx, cfg.RedisAddr)
	cancel()
	if err != nil {
		zl.Error().Err(err).Msg("backing store unavailable")
		return 1
	}
	defer func() { _ = store.Close() }()

	remote := remotecache.New(store, remotecache.Config{
		OpTimeout:        cfg.CacheOpTimeout,
		TTLDefault:       cfg.RemoteTTLDefault,
		TTLWarm:          cfg.RemoteTTLWarm,
		CompressMinBytes: cfg.CompressMinBytes,
	}, zl)

	tiles := tilecache.New(tilecache.Config{
		TileSize:       cfg.TileSize,
		MaxEntries:     cfg.MaxEntries,
		Expiry:         cfg.CacheExpiry,
		MaxMemoryBytes: cfg.MaxMemoryBytes,
	})
	if cfg.SnapshotPath != "" {
		if err := tiles.Restore(cfg.SnapshotPath, cfg.SnapshotMaxAge); err != nil {
			zl.Warn().Err(err).Str("path", cfg.SnapshotPath).Msg("snapshot restore skipped")
		}
	}

	analyzer := pricing.NewAnalyzer(cfg.MinSampleSize, cfg.PriceMargin)
	invalidator := invalidation.New(store, remote, zl, 5*time.Second)

	if cfg.Invalidation.Enabled && cfg.Invalidation.Driver == "kafka" {
		consumer := kafkaconsumer.New(kafkaconsumer.FromAppConfig(cfg.Invalidation), zl, invalidator)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				zl.Error().Err(err).Msg("kafka consumer stopped")
			}
		}()
	}

	ready := func(ctx context.Context) error {
		_, _, err := store.Get(ctx, remotecache.DatasetKey())
		return err
	}

	srv := server.New(cfg, zl, tiles, remote, analyzer, invalidator, ready)
	if err := srv.Run(ctx); err != nil {
		zl.Error().Err(err).Msg("server exited with error")
		return 1
	}

	if cfg.SnapshotPath != "" {
		if err := tiles.Snapshot(cfg.SnapshotPath); err != nil {
			zl.Warn().Err(err).Str("path", cfg.SnapshotPath).Msg("snapshot persist failed")
		}
	}
	zl.Info().Msg("server stopped")
	return 0
}
