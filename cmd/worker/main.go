package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salesquote_backend/internal/adapters/storage"
	catalogrepo "salesquote_backend/internal/catalog/repository"
	"salesquote_backend/internal/events"
	"salesquote_backend/internal/pdf"
	quotesrepo "salesquote_backend/internal/quotes/repository"
	"salesquote_backend/internal/scheduler"
	"salesquote_backend/platform/config"
	"salesquote_backend/platform/db"
	"salesquote_backend/platform/logger"
)

// The worker renders quote PDFs queued by the API. It needs the database,
// Redis, MinIO, and Gotenberg; unlike the API it cannot run degraded.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	if cfg.GetRedisURL() == "" {
		panic("REDIS_URL is required for the worker")
	}
	if !cfg.IsMinIOEnabled() || !cfg.IsGotenbergEnabled() {
		panic("MINIO_ENDPOINT and GOTENBERG_URL are required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	storageClient, err := storage.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize storage client", "error", err)
		panic("failed to initialize storage client: " + err.Error())
	}
	if err := storageClient.EnsureBucket(ctx); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err)
		panic("failed to ensure storage bucket exists: " + err.Error())
	}

	pdfService := pdf.NewService(
		quotesrepo.New(pool),
		catalogrepo.New(pool),
		pdf.NewGotenbergClient(cfg),
		storageClient,
		log,
	)

	eventBus := events.NewInMemoryBus(log)
	eventBus.Subscribe(events.QuotePDFGenerated{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		generated, ok := e.(events.QuotePDFGenerated)
		if !ok {
			return nil
		}
		log.Info("quote pdf available", "quote_id", generated.QuoteID, "file_key", generated.FileKey)
		return nil
	}))

	worker, err := scheduler.NewWorker(cfg, pdfService, eventBus, log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	workerErr := make(chan error, 1)
	go func() {
		workerErr <- worker.Run()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, draining tasks")
		worker.Shutdown()
		// Give in-flight renders a moment to finish logging.
		time.Sleep(time.Second)
	case err := <-workerErr:
		if err != nil {
			log.Error("worker error", "error", err)
			panic("worker error: " + err.Error())
		}
	}
}
