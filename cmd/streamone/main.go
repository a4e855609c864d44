package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/may5ra/server-stream-one/internal/cache"
	"github.com/may5ra/server-stream-one/internal/config"
	"github.com/may5ra/server-stream-one/internal/log"
	"github.com/may5ra/server-stream-one/internal/server"
	"github.com/may5ra/server-stream-one/internal/service"
	"github.com/may5ra/server-stream-one/internal/store"
)

func main() {
	configPath := flag.String("config", "", "Optional config file path (YAML); else use env DATABASE_URL")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := log.Configure(log.Config{Level: cfg.LogLevel})
	if err := run(cfg, logger); err != nil {
		logger.Error().Err(err).Msg("exiting")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	base, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// panel_settings are read once; handlers only see the merged config.
	panel, err := base.ListPanelSettings(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("panel settings unavailable, using config only")
	} else {
		cfg.ApplyPanelSettings(panel)
	}

	var rds *cache.Redis
	var appStore store.Store = base
	if cfg.RedisURL != "" {
		rds, err = cache.New(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rds.Close()

		if err := rds.Ping(ctx); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}

		appStore = store.NewCachedStore(base, rds, logger)
		logger.Info().Msg("redis connected (caching, import locks and queue enabled)")

		epg := service.NewEPGImporter(appStore, service.NewSourceClient(cfg.UserAgent, cfg.Timeout), logger)
		go service.NewWorker(rds, epg, logger).Run(ctx)
	} else {
		logger.Info().Msg("redis disabled (REDIS_URL not set)")
	}

	srv := server.New(appStore, cfg, rds, logger)
	if err := srv.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// openStore returns the catalog named by DATABASE_URL and its closer.
func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (store.Store, func(), error) {
	if cfg.DatabaseURL == config.MemoryDSN {
		logger.Warn().Msg("using in-memory catalog; data is lost on exit")
		return store.NewMemory(), func() {}, nil
	}

	if cfg.MigrationsPath != "" {
		path := cfg.MigrationsPath
		if !strings.Contains(path, "://") {
			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}
			path = "file://" + path
		}
		if err := store.RunMigrations(cfg.DatabaseURL, path); err != nil {
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info().Str("path", path).Msg("migrations applied")
	} else if missing, err := store.MissingTables(cfg.DatabaseURL); err != nil {
		logger.Warn().Err(err).Msg("schema check failed")
	} else if len(missing) > 0 {
		logger.Warn().Strs("tables", missing).Msg("catalog tables missing; set MIGRATIONS_PATH to create them")
	}

	pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("db: %w", err)
	}
	return pg, pg.Close, nil
}
