package scheduler

import (
	"context"
	"errors"
	"fmt"

	"salesquote_backend/platform/config"
	"salesquote_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Client enqueues background tasks.
type Client struct {
	client *asynq.Client
	queue  string
	log    *logger.Logger
}

// NewClient creates a task client on the configured queue.
func NewClient(cfg config.SchedulerConfig, log *logger.Logger) (*Client, error) {
	opt, err := RedisClientOpt(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{
		client: asynq.NewClient(opt),
		queue:  cfg.GetAsynqQueueName(),
		log:    log,
	}, nil
}

// SchedulePDFRender enqueues PDF generation for a quote. The task id is
// derived from the quote so re-enqueueing an unprocessed quote is a no-op.
func (c *Client) SchedulePDFRender(ctx context.Context, quoteID int64) error {
	task, err := NewQuotePDFRenderTask(quoteID)
	if err != nil {
		return err
	}

	info, err := c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.TaskID(fmt.Sprintf("quote-pdf-%d", quoteID)),
		asynq.MaxRetry(3),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			c.log.Debug("pdf render already queued", "quote_id", quoteID)
			return nil
		}
		return fmt.Errorf("failed to enqueue pdf render for quote %d: %w", quoteID, err)
	}

	c.log.Info("pdf render scheduled",
		"quote_id", quoteID,
		"task_id", info.ID,
		"queue", info.Queue,
	)
	return nil
}

// Close releases the underlying Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}
