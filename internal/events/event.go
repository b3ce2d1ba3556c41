// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"salesquote_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Quotes Domain Events
// =============================================================================

// QuoteCreated is published when a new draft quote is persisted.
// Replays of an idempotency key do not publish this event again.
type QuoteCreated struct {
	BaseEvent
	QuoteID        int64  `json:"quoteId"`
	AccountID      int64  `json:"accountId"`
	PricebookID    int64  `json:"pricebookId"`
	TotalCents     int64  `json:"totalCents"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
	Source         string `json:"source"` // "api" or "agent"
}

func (e QuoteCreated) EventName() string { return "quotes.quote.created" }

// QuotePDFGenerated is published when a quote PDF has been rendered and stored.
type QuotePDFGenerated struct {
	BaseEvent
	QuoteID int64  `json:"quoteId"`
	FileKey string `json:"fileKey"`
}

func (e QuotePDFGenerated) EventName() string { return "quotes.pdf.generated" }

// =============================================================================
// Chat Domain Events
// =============================================================================

// ChatTurnCompleted is published when a chat turn reaches a terminal state.
type ChatTurnCompleted struct {
	BaseEvent
	SessionID string `json:"sessionId"`
	Outcome   string `json:"outcome"` // "done" or "error"
	QuoteID   *int64 `json:"quoteId,omitempty"`
}

func (e ChatTurnCompleted) EventName() string { return "chat.turn.completed" }
