// Package scheduler provides asynq-backed background task scheduling for
// quote PDF rendering.
package scheduler

import (
	"crypto/tls"
	"encoding/json"
	"fmt"

	"salesquote_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// TaskQuotePDFRender renders and stores a quote PDF.
const TaskQuotePDFRender = "quotes:pdf:render"

// QuotePDFRenderPayload carries the quote to render.
type QuotePDFRenderPayload struct {
	QuoteID int64 `json:"quote_id"`
}

// NewQuotePDFRenderTask builds the asynq task for a quote.
func NewQuotePDFRenderTask(quoteID int64) (*asynq.Task, error) {
	payload, err := json.Marshal(QuotePDFRenderPayload{QuoteID: quoteID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pdf render payload: %w", err)
	}
	return asynq.NewTask(TaskQuotePDFRender, payload), nil
}

// RedisClientOpt builds the asynq Redis connection options from the
// configured URL. Managed Redis providers often terminate TLS with
// certificates the container does not trust; GetRedisTLSInsecure skips
// verification for those.
func RedisClientOpt(cfg config.SchedulerConfig) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("failed to parse redis url: %w", err)
	}

	clientOpt := asynq.RedisClientOpt{
		Addr:     opt.Addr,
		Username: opt.Username,
		Password: opt.Password,
		DB:       opt.DB,
	}
	if opt.TLSConfig != nil {
		tlsConfig := opt.TLSConfig.Clone()
		if cfg.GetRedisTLSInsecure() {
			tlsConfig.InsecureSkipVerify = true
		}
		clientOpt.TLSConfig = tlsConfig
	} else if cfg.GetRedisTLSInsecure() {
		clientOpt.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return clientOpt, nil
}
