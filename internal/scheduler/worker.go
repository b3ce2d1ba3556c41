package scheduler

import (
	"context"
	"encoding/json"
	"fmt"

	"salesquote_backend/internal/events"
	"salesquote_backend/platform/config"
	"salesquote_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// PDFGenerator renders and stores the PDF for a quote.
type PDFGenerator interface {
	Generate(ctx context.Context, quoteID int64) (string, error)
}

// Worker consumes background tasks from the queue.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	generator PDFGenerator
	bus       events.Bus
	log       *logger.Logger
}

// NewWorker creates the task worker.
func NewWorker(cfg config.SchedulerConfig, generator PDFGenerator, bus events.Bus, log *logger.Logger) (*Worker, error) {
	opt, err := RedisClientOpt(cfg)
	if err != nil {
		return nil, err
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: cfg.GetAsynqConcurrency(),
		Queues: map[string]int{
			cfg.GetAsynqQueueName(): 1,
		},
	})

	w := &Worker{
		server:    server,
		mux:       asynq.NewServeMux(),
		generator: generator,
		bus:       bus,
		log:       log,
	}
	w.mux.HandleFunc(TaskQuotePDFRender, w.handleQuotePDFRender)
	return w, nil
}

// Run starts processing tasks and blocks until Shutdown.
func (w *Worker) Run() error {
	return w.server.Run(w.mux)
}

// Shutdown stops the worker gracefully.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

func (w *Worker) handleQuotePDFRender(ctx context.Context, task *asynq.Task) error {
	var payload QuotePDFRenderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal pdf render payload: %w", err)
	}

	fileKey, err := w.generator.Generate(ctx, payload.QuoteID)
	if err != nil {
		w.log.Error("pdf render failed", "quote_id", payload.QuoteID, "error", err)
		return err
	}

	w.bus.Publish(ctx, events.QuotePDFGenerated{
		BaseEvent: events.NewBaseEvent(),
		QuoteID:   payload.QuoteID,
		FileKey:   fileKey,
	})
	return nil
}
