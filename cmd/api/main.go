package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/app"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/bill"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/config"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/export"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/feed"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/logging"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/persist"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/search"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/store"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/tracker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	var options []app.Option

	var primary persist.Store
	if strings.TrimSpace(cfg.RedisURL) != "" {
		logger.Info("using redis for the primary state channel")
		redisStore, err := persist.NewRedisStore(cfg.RedisURL, cfg.StateTTL)
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		defer redisStore.Close()
		primary = redisStore
		options = append(options, app.WithHealthCheck("redis", redisStore))
	} else {
		logger.Info("using in-process cache for the primary state channel")
		primary = persist.NewCacheStore(cfg.StateTTL)
	}

	var secondary persist.Store
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer db.Close()

		migrations, err := store.Migrations(cfg.MigrationsDir)
		if err != nil {
			return fmt.Errorf("load migrations: %w", err)
		}
		applied, err := store.ApplyMigrations(ctx, db, migrations)
		if err != nil {
			return fmt.Errorf("migrations failed: %w", err)
		}
		if len(applied) > 0 {
			logger.Info("applied migrations", zap.Strings("versions", applied))
		}
		pgStore := persist.NewPostgresStore(db)
		secondary = pgStore
		options = append(options, app.WithHealthCheck("database", pgStore))
	} else {
		fileStore, err := persist.NewFileStore(cfg.StateDir)
		if err != nil {
			return err
		}
		secondary = fileStore
	}

	var index search.Index
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meili := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meili.Close()
		index = meili
	}
	options = append(options,
		app.WithSearch(search.NewService(index, logger)),
		app.WithExport(export.NewService(logger)),
	)

	fetcher := feed.New(cfg.DataURL, cfg.DataCachePath, feed.WithLogger(logger))
	service := app.New(engineOptions(cfg, logger), app.Stores{Primary: primary, Secondary: secondary}, fetcher, logger, options...)
	defer service.Close()
	if err := service.Bootstrap(ctx); err != nil {
		logger.Warn("starting without bill data", zap.Error(err))
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, cfg.StateTTL, logger)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("bill tracker API listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	return nil
}

func engineOptions(cfg config.Config, logger *zap.Logger) tracker.Options {
	opts := tracker.Options{
		PageSize:         cfg.PageSize,
		SearchDebounce:   cfg.SearchDebounce,
		AutosaveInterval: cfg.AutosaveInterval,
		NoteMode:         tracker.NoteMode(cfg.NoteMode),
		RefreshPolicy:    tracker.RefreshPolicy(cfg.RefreshPolicy),
	}
	if cfg.BillTypes != "" {
		opts.Types = bill.NewTypeSet(bill.ParseTypeKeys(cfg.BillTypes))
	}
	if cfg.SessionEnd != "" {
		end, err := time.ParseInLocation("2006-01-02", cfg.SessionEnd, time.Local)
		if err != nil {
			logger.Warn("ignoring invalid SESSION_END", zap.String("value", cfg.SessionEnd))
		} else {
			opts.SessionEnd = end
		}
	}
	return opts
}
