package main

import (
	"context"
	"fmt"
	"time"

	"github.com/danmuck/milestonectl/internal/auth"
	"github.com/danmuck/milestonectl/internal/config"
	"github.com/danmuck/milestonectl/internal/ledger"
	"github.com/danmuck/milestonectl/internal/observability"
	"github.com/danmuck/milestonectl/internal/protocol/rlp"
	"github.com/danmuck/milestonectl/internal/server"
	"github.com/danmuck/milestonectl/internal/tracker"
	"github.com/danmuck/milestonectl/internal/vault"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func runConfig(_ context.Context, e *env, args []string) error {
	fs := newFlagSet("config", e)
	output := fs.StringP("output", "o", "cmd/milestonectl/config.toml", "output path for config template")
	force := fs.Bool("force", false, "overwrite existing config file")
	validate := fs.String("validate", "", "validate an existing config file instead of writing one")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}

	if *validate != "" {
		if _, err := config.LoadTrackerConfig(*validate); err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "validated tracker config at %s\n", *validate)
		return nil
	}
	if err := config.WriteTemplate(*output, "tracker", *force); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "wrote tracker config template to %s\n", *output)
	return nil
}

func runServe(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("serve", e)
	path := fs.StringP("config", "c", "cmd/milestonectl/config.toml", "daemon config path")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}

	logger := observability.InitLogger("milestonectl")
	cfg, err := config.LoadTrackerConfig(*path)
	if err != nil {
		return err
	}
	logger.Info().Str("path", *path).Msg("loaded tracker config")

	srv, cleanup, err := buildServer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()
	return srv.Run(ctx)
}

// buildServer wires the daemon against an in-memory ledger and vault
// registry seeded from cfg.
func buildServer(ctx context.Context, cfg config.TrackerConfig, logger zerolog.Logger) (*server.Server, func(), error) {
	registry := vault.NewRegistry()
	for _, v := range cfg.Ledger.Vaults {
		if err := registry.Open(v); err != nil {
			return nil, nil, err
		}
	}
	mem := ledger.NewMemory(ledger.Roles{
		Recipient:  cfg.Ledger.Recipient,
		Donor:      cfg.Ledger.Donor,
		Arbitrator: cfg.Ledger.Arbitrator,
	}, registry)

	cache, cleanup, err := buildCache(ctx, cfg.Cache, logger)
	if err != nil {
		return nil, nil, err
	}
	limits := rlp.Limits{MaxDepth: cfg.Limits.MaxDepth}

	t := tracker.New(tracker.Config{
		Reader: mem,
		Writer: mem,
		Vaults: registry,
		Cache:  cache,
		Limits: limits,
		Logger: logger,
	})
	srv := server.New(server.Config{
		Name:         cfg.Name,
		Addr:         cfg.Addr,
		CorsOrigins:  cfg.CorsOrigins,
		MaxBodyBytes: cfg.Limits.MaxBodyBytes,
		Limits:       limits,
		Tracker:      t,
		Auth:         auth.FromToken(cfg.AuthToken),
	})
	srv.RegisterRoutes()
	return srv, cleanup, nil
}

func buildCache(ctx context.Context, cfg config.CacheConfig, logger zerolog.Logger) (tracker.Cache, func(), error) {
	switch cfg.Backend {
	case config.CacheNone:
		return tracker.NopCache{}, func() {}, nil
	case config.CacheRedis:
		c := tracker.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.TTL)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := c.Ping(pingCtx); err != nil {
			// Cache errors never fail State reads.
			logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis proposal cache unreachable")
		}
		return c, func() {
			if err := c.Close(); err != nil {
				log.Warn().Err(err).Msg("close redis proposal cache")
			}
		}, nil
	default:
		return tracker.NewMemoryCache(cfg.TTL), func() {}, nil
	}
}
