package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"levelup-loyalty/internal/config"
	"levelup-loyalty/internal/database"
	"levelup-loyalty/internal/idgen"
	"levelup-loyalty/internal/scan"
	"levelup-loyalty/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	source := flag.String("source", "file", "where the batch lives: file or s3")
	path := flag.String("path", "", "batch file path, or object key when -source=s3")
	concurrency := flag.Int("concurrency", 4, "number of scans redeemed in parallel")
	flag.Parse()

	if *path == "" {
		return fmt.Errorf("-path is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := config.NewLogger(cfg.Logger).With().Str("component", "import-scans").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader, err := newLoader(ctx, *source, cfg.S3, logger)
	if err != nil {
		return err
	}

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	discounts := service.NewDiscountService(service.Deps{
		Repos:   service.NewRepositories(pool, logger),
		IDs:     idgen.New(),
		Loyalty: cfg.Loyalty,
		Logger:  logger,
	}, nil)

	importer := scan.NewImporter(loader, discounts, *concurrency, logger)
	result, err := importer.Import(ctx, *path)
	if result != nil {
		fmt.Printf("batch %s: %d scans, %d redeemed, %d duplicates, %d failed in %s\n",
			result.BatchID, result.Total, result.Redeemed, result.Duplicates, result.Failed, result.Duration)
	}
	if err != nil {
		for _, e := range multierr.Errors(err) {
			logger.Warn().Err(e).Msg("scan not imported")
		}
		return fmt.Errorf("import finished with errors: %w", err)
	}
	return nil
}

func newLoader(ctx context.Context, source string, cfg config.S3Config, logger zerolog.Logger) (scan.Loader, error) {
	files := scan.NewFileLoader(logger)

	switch source {
	case "file":
		return files, nil
	case "s3":
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required for -source=s3")
		}
		s3Loader, err := scan.NewS3Loader(ctx, cfg.Bucket, cfg.Region, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialise S3 loader, falling back to local files")
			s3Loader = nil
		}
		return scan.NewFallbackLoader(s3Loader, files, cfg.Prefix, logger), nil
	default:
		return nil, fmt.Errorf("unknown source %q (must be file or s3)", source)
	}
}
