package chat

import (
	"context"

	"salesquote_backend/internal/events"
	"salesquote_backend/platform/logger"
)

// registerEventHandlers subscribes the module's activity reporting. Turn
// outcomes feed the activity log with any quote the turn produced, keeping
// the record outside the hot streaming path.
func registerEventHandlers(bus events.Bus, log *logger.Logger) {
	bus.Subscribe(events.ChatTurnCompleted{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		turn, ok := e.(events.ChatTurnCompleted)
		if !ok {
			return nil
		}
		if turn.QuoteID != nil {
			log.Info("chat turn completed",
				"session_id", turn.SessionID,
				"outcome", turn.Outcome,
				"quote_id", *turn.QuoteID,
			)
			return nil
		}
		log.Info("chat turn completed",
			"session_id", turn.SessionID,
			"outcome", turn.Outcome,
		)
		return nil
	}))
}
