package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nurpe/delivery-reports/internal/config"
	"github.com/nurpe/delivery-reports/internal/db"
	"github.com/nurpe/delivery-reports/internal/excel"
	"github.com/nurpe/delivery-reports/internal/fetch"
	"github.com/nurpe/delivery-reports/internal/logger"
	"github.com/nurpe/delivery-reports/internal/pdf"
	"github.com/nurpe/delivery-reports/internal/repository"
	"github.com/nurpe/delivery-reports/internal/service"
	"github.com/nurpe/delivery-reports/internal/storage"
	"github.com/nurpe/delivery-reports/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	var (
		store   storage.Store
		objects fetch.ObjectGetter
		bucket  string
	)
	switch cfg.Storage.Backend {
	case "s3":
		s3Store, err := storage.NewS3(ctx, cfg.Storage.S3Bucket, cfg.Storage.S3Region)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init s3 storage")
		}
		store = s3Store
		objects = s3Store
		bucket = s3Store.Bucket()
	default:
		localStore, err := storage.NewLocal(cfg.Storage.LocalRoot)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init local storage")
		}
		store = localStore
	}

	fetcher := fetch.New(objects, bucket, cfg.Reports.FetchTimeout, log)
	composer := excel.NewComposer(fetcher, cfg.Reports.CollageWorkers, cfg.Reports.FetchTimeout, log)
	engine := excel.NewEngine(store, fetcher, composer, cfg.Reports.TemplatePath, log)
	converter := pdf.NewConverter(store, cfg.Converter.Binary, cfg.Reports.PDFSubdir, cfg.Converter.Timeout, log)

	reportRepo := repository.NewReportRepository(database)
	reportService := service.NewReportService(reportRepo, engine, converter, cfg.Reports.ExcelSubdir, log)

	pool := worker.New(reportService, reportRepo, cfg.Worker.Count, cfg.Worker.MaxRetries, cfg.Worker.PollInterval, log)

	log.Info().
		Int("workers", cfg.Worker.Count).
		Str("storage", cfg.Storage.Backend).
		Msg("starting delivery reports worker")

	pool.Run(ctx)
	log.Info().Msg("worker stopped")
}
