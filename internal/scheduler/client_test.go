package scheduler

import (
	"context"
	"testing"

	"salesquote_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
)

type testSchedulerConfig struct {
	redisURL string
}

func (c testSchedulerConfig) GetRedisURL() string       { return c.redisURL }
func (c testSchedulerConfig) GetRedisTLSInsecure() bool { return false }
func (c testSchedulerConfig) GetAsynqQueueName() string { return "default" }
func (c testSchedulerConfig) GetAsynqConcurrency() int  { return 1 }

func TestSchedulePDFRenderEnqueuesTask(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testSchedulerConfig{redisURL: "redis://" + mr.Addr()}

	client, err := NewClient(cfg, logger.New("development"))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer client.Close()

	if err := client.SchedulePDFRender(context.Background(), 42); err != nil {
		t.Fatalf("SchedulePDFRender failed: %v", err)
	}

	opt, err := RedisClientOpt(cfg)
	if err != nil {
		t.Fatalf("RedisClientOpt failed: %v", err)
	}
	inspector := asynq.NewInspector(opt)
	defer inspector.Close()

	tasks, err := inspector.ListPendingTasks("default")
	if err != nil {
		t.Fatalf("ListPendingTasks failed: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 pending task, got %d", len(tasks))
	}
	if tasks[0].Type != TaskQuotePDFRender {
		t.Errorf("expected task type %s, got %s", TaskQuotePDFRender, tasks[0].Type)
	}

	// A second enqueue for the same quote is absorbed by the task id.
	if err := client.SchedulePDFRender(context.Background(), 42); err != nil {
		t.Fatalf("duplicate SchedulePDFRender failed: %v", err)
	}
	tasks, err = inspector.ListPendingTasks("default")
	if err != nil {
		t.Fatalf("ListPendingTasks failed: %v", err)
	}
	if len(tasks) != 1 {
		t.Errorf("expected duplicate enqueue to be a no-op, got %d tasks", len(tasks))
	}
}

func TestRedisClientOptParsesURL(t *testing.T) {
	cfg := testSchedulerConfig{redisURL: "redis://:secret@localhost:6380/2"}

	opt, err := RedisClientOpt(cfg)
	if err != nil {
		t.Fatalf("RedisClientOpt failed: %v", err)
	}
	if opt.Addr != "localhost:6380" {
		t.Errorf("expected addr localhost:6380, got %s", opt.Addr)
	}
	if opt.Password != "secret" {
		t.Errorf("expected password to be parsed")
	}
	if opt.DB != 2 {
		t.Errorf("expected db 2, got %d", opt.DB)
	}
}
