package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salesquote_backend/internal/adapters/storage"
	"salesquote_backend/internal/catalog"
	catalogrepo "salesquote_backend/internal/catalog/repository"
	"salesquote_backend/internal/chat"
	chatagent "salesquote_backend/internal/chat/agent"
	"salesquote_backend/internal/events"
	apphttp "salesquote_backend/internal/http"
	"salesquote_backend/internal/http/router"
	"salesquote_backend/internal/pdf"
	"salesquote_backend/internal/quotes"
	quotesrepo "salesquote_backend/internal/quotes/repository"
	quotesservice "salesquote_backend/internal/quotes/service"
	"salesquote_backend/internal/scheduler"
	"salesquote_backend/migrations"
	"salesquote_backend/platform/ai/gemini"
	"salesquote_backend/platform/config"
	"salesquote_backend/platform/db"
	"salesquote_backend/platform/logger"
	"salesquote_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	eventBus := events.NewInMemoryBus(log)

	// Object storage for generated quote PDFs. Optional: without it the
	// PDF endpoints report unavailable and chat never emits pdf_ready.
	storageClient := initStorage(ctx, cfg, log)

	// Gotenberg renderer, also optional.
	var pdfService *pdf.Service
	if storageClient != nil && cfg.IsGotenbergEnabled() {
		pdfService = pdf.NewService(
			quotesrepo.New(pool),
			catalogrepo.New(pool),
			pdf.NewGotenbergClient(cfg),
			storageClient,
			log,
		)
		log.Info("pdf generation enabled", "gotenberg", cfg.GetGotenbergURL())
	} else {
		log.Warn("pdf generation disabled; configure MINIO_ENDPOINT and GOTENBERG_URL to enable")
	}

	pdfScheduler, closeScheduler := initPDFScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	// ========================================================================
	// Domain Modules
	// ========================================================================

	// Shared validator instance for dependency injection
	val := validator.New()

	catalogModule := catalog.NewModule(pool, cfg, log)

	var quotesStorage quotesservice.PDFStorage
	if storageClient != nil {
		quotesStorage = storageClient
	}
	quotesModule := quotes.NewModule(pool, catalogrepo.New(pool), eventBus, pdfScheduler, quotesStorage, val, log)

	modules := []apphttp.Module{catalogModule, quotesModule}

	if cfg.IsAIEnabled() {
		llm, err := gemini.NewModel(ctx, gemini.Config{
			APIKey: cfg.GetGeminiAPIKey(),
			Model:  cfg.GetGeminiModel(),
		})
		if err != nil {
			log.Error("failed to initialize gemini model", "error", err)
			panic("failed to initialize gemini model: " + err.Error())
		}

		var agentPDF chatagent.PDFRenderer
		var agentStorage chatagent.PDFLinker
		if pdfService != nil {
			agentPDF = pdfService
			agentStorage = storageClient
		}
		chatModule := chat.NewModule(
			pool, llm,
			catalogModule.Service(), quotesModule.Service(),
			agentPDF, agentStorage,
			eventBus, val, log,
		)
		modules = append(modules, chatModule)
		log.Info("chat assistant enabled", "model", cfg.GetGeminiModel())
	} else {
		log.Warn("GEMINI_API_KEY not configured; chat endpoints disabled")
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules:  modules,
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) *storage.Client {
	if !cfg.IsMinIOEnabled() {
		log.Warn("MINIO_ENDPOINT not configured; pdf storage disabled")
		return nil
	}

	client, err := storage.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize storage client", "error", err)
		panic("failed to initialize storage client: " + err.Error())
	}
	if err := withRetry(ctx, log, "ensure quote-pdfs bucket", 5, 2*time.Second, func() error {
		return client.EnsureBucket(ctx)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err)
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
	return client
}

func initPDFScheduler(cfg *config.Config, log *logger.Logger) (quotesservice.PDFScheduler, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; background pdf rendering disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg, log)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return nil, nil
	}
	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
