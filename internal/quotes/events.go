package quotes

import (
	"context"

	"salesquote_backend/internal/events"
	"salesquote_backend/internal/quotes/service"
	"salesquote_backend/platform/logger"
)

// registerEventHandlers subscribes the module's follow-up work to domain
// events. PDF rendering is driven off QuoteCreated rather than inline in the
// create path: the quote is committed either way, and a failed enqueue only
// delays the PDF.
func registerEventHandlers(bus events.Bus, scheduler service.PDFScheduler, log *logger.Logger) {
	if scheduler == nil {
		return
	}

	bus.Subscribe(events.QuoteCreated{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		created, ok := e.(events.QuoteCreated)
		if !ok {
			return nil
		}
		if err := scheduler.SchedulePDFRender(ctx, created.QuoteID); err != nil {
			log.Warn("failed to schedule pdf render", "quote_id", created.QuoteID, "error", err)
			return err
		}
		return nil
	}))
}
