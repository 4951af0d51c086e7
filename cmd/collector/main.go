package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/collector"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/config"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/gitrepo"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/logging"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/publish"
)

func main() {
	once := flag.Bool("once", false, "run a single collection and exit, ignoring COLLECTOR_INTERVAL")
	flag.Parse()

	if err := run(*once); err != nil {
		fmt.Fprintf(os.Stderr, "collector: %v\n", err)
		os.Exit(1)
	}
}

func run(once bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	colCfg := cfg.Collector

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := collector.NewClient(colCfg.ServiceURL,
		collector.WithHTTPClient(&http.Client{Timeout: colCfg.Timeout}),
		collector.WithRetries(colCfg.Retries),
		collector.WithBackoff(colCfg.BackoffBase),
		collector.WithLogger(logger),
	)
	col := collector.New(client, collector.Options{
		Year:         colCfg.Year,
		Biennium:     colCfg.Biennium,
		SessionStart: cfg.SessionStart,
		SessionEnd:   cfg.SessionEnd,
	}, logger)

	var pubOpts []publish.Option
	if colCfg.Git {
		repo := gitrepo.New(colCfg.DataDir, "wa-bill-collector")
		if err := repo.Ensure(); err != nil {
			return fmt.Errorf("prepare data history: %w", err)
		}
		pubOpts = append(pubOpts, publish.WithHistory(repo))
	}
	if colCfg.MinioEndpoint != "" {
		uploader, err := publish.NewMinioUploader(publish.MinioOptions{
			Endpoint:  colCfg.MinioEndpoint,
			AccessKey: colCfg.MinioAccessKey,
			SecretKey: colCfg.MinioSecretKey,
			Bucket:    colCfg.MinioBucket,
			UseSSL:    colCfg.MinioUseSSL,
		})
		if err != nil {
			return err
		}
		if err := uploader.EnsureBucket(ctx); err != nil {
			return err
		}
		pubOpts = append(pubOpts, publish.WithUploader(uploader))
	}
	publisher := publish.New(colCfg.DataDir, logger, pubOpts...)

	if once || colCfg.Interval <= 0 {
		return collectOnce(ctx, col, publisher, colCfg.DataDir, time.Time{}, logger)
	}

	logger.Info("collector scheduled", zap.Duration("interval", colCfg.Interval))
	ticker := time.NewTicker(colCfg.Interval)
	defer ticker.Stop()
	for {
		if err := collectOnce(ctx, col, publisher, colCfg.DataDir, time.Now().Add(colCfg.Interval), logger); err != nil {
			logger.Error("collection failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			logger.Info("collector stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func collectOnce(ctx context.Context, col *collector.Collector, publisher *publish.Publisher, dataDir string, nextSync time.Time, logger *zap.Logger) error {
	existing, err := publish.ReadDocument(dataDir)
	if err != nil {
		logger.Warn("existing bill document unreadable, starting fresh", zap.Error(err))
		existing = publish.EmptyDocument()
	}

	res, err := col.Collect(ctx, existing)
	if err != nil {
		if logErr := publisher.RecordFailure(err, nextSync); logErr != nil {
			logger.Warn("record failure in sync log", zap.Error(logErr))
		}
		return err
	}

	entry, err := publisher.Publish(ctx, res, nextSync)
	if err != nil {
		return err
	}
	logger.Info("collection complete",
		zap.String("status", entry.Status),
		zap.Int("bills", entry.BillsCount),
		zap.String("commit", entry.Commit))
	return nil
}
