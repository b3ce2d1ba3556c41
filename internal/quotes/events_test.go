package quotes

import (
	"context"
	"errors"
	"testing"

	"salesquote_backend/internal/events"
	"salesquote_backend/platform/logger"
)

type fakeScheduler struct {
	scheduled []int64
	err       error
}

func (f *fakeScheduler) SchedulePDFRender(ctx context.Context, quoteID int64) error {
	if f.err != nil {
		return f.err
	}
	f.scheduled = append(f.scheduled, quoteID)
	return nil
}

func TestQuoteCreatedSchedulesPDFRender(t *testing.T) {
	bus := events.NewInMemoryBus(logger.New("development"))
	scheduler := &fakeScheduler{}
	registerEventHandlers(bus, scheduler, logger.New("development"))

	err := bus.PublishSync(context.Background(), events.QuoteCreated{
		BaseEvent: events.NewBaseEvent(),
		QuoteID:   42,
		AccountID: 1,
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if len(scheduler.scheduled) != 1 || scheduler.scheduled[0] != 42 {
		t.Fatalf("expected quote 42 scheduled once, got %v", scheduler.scheduled)
	}
}

func TestQuoteCreatedScheduleFailureIsSurfacedToBus(t *testing.T) {
	bus := events.NewInMemoryBus(logger.New("development"))
	scheduler := &fakeScheduler{err: errors.New("queue down")}
	registerEventHandlers(bus, scheduler, logger.New("development"))

	err := bus.PublishSync(context.Background(), events.QuoteCreated{
		BaseEvent: events.NewBaseEvent(),
		QuoteID:   42,
	})
	if err == nil {
		t.Fatal("expected handler error to propagate through PublishSync")
	}
}

func TestNoSchedulerRegistersNothing(t *testing.T) {
	bus := events.NewInMemoryBus(logger.New("development"))
	registerEventHandlers(bus, nil, logger.New("development"))

	err := bus.PublishSync(context.Background(), events.QuoteCreated{
		BaseEvent: events.NewBaseEvent(),
		QuoteID:   42,
	})
	if err != nil {
		t.Fatalf("publish with no handlers must be a no-op, got %v", err)
	}
}
