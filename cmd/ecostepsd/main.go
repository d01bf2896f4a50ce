// ecostepsd is the OCR EcoSteps service daemon: it accepts screenshot
// reports over HTTP, drains them through the worker pool, and posts
// results to the configured webhook.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wildanal2/ocr-ecosteps/internal/common"
	"github.com/wildanal2/ocr-ecosteps/internal/delivery"
	"github.com/wildanal2/ocr-ecosteps/internal/extract"
	"github.com/wildanal2/ocr-ecosteps/internal/history"
	"github.com/wildanal2/ocr-ecosteps/internal/pipeline"
	"github.com/wildanal2/ocr-ecosteps/internal/queue"
	"github.com/wildanal2/ocr-ecosteps/internal/recognize"
	"github.com/wildanal2/ocr-ecosteps/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Recognition adapter
	fetcher := recognize.NewFetcher(cfg.OCR.DownloadTimeout)
	engine := recognize.NewTesseractEngine(recognize.TesseractConfig{
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		TessdataDir:   cfg.OCR.TessdataDir,
		PSM:           cfg.OCR.PSM,
		OEM:           cfg.OCR.OEM,
	}, logger)
	adapter := recognize.NewAdapter(fetcher, engine, logger)

	proc := pipeline.NewProcessor(adapter, extract.NewEngine(logger), logger)

	sender := delivery.NewClient(delivery.Config{
		Default:    delivery.Endpoint{URL: cfg.Delivery.URL, APIKey: cfg.Delivery.APIKey},
		Staging:    delivery.Endpoint{URL: cfg.Delivery.StagingURL, APIKey: cfg.Delivery.StagingKey},
		Production: delivery.Endpoint{URL: cfg.Delivery.ProductionURL, APIKey: cfg.Delivery.ProductionKey},
		Timeout:    cfg.Delivery.Timeout,
	}, logger)

	var archive queue.Archiver
	var hist *history.Store
	if cfg.History.DBPath != "" {
		var err error
		hist, err = history.Open(cfg.History.DBPath)
		if err != nil {
			logger.Error("open history archive", "path", cfg.History.DBPath, "error", err)
			os.Exit(1)
		}
		defer func() { _ = hist.Close() }()
		archive = hist
	}

	svc := queue.NewService(cfg.Queue.Capacity, cfg.Queue.Workers, logger)
	pool := queue.NewPool(svc, proc, sender, archive, cfg.Queue.ProcessTimeout, logger)
	pool.Start()

	srv := server.New(svc, proc, hist, cfg.Server.APIKey, logger)
	if err := srv.Run(ctx, cfg.Server.Addr); err != nil {
		logger.Error("http server failed", "error", err)
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	pool.Shutdown(shutdownCtx)
	logger.Info("stopped")
}
