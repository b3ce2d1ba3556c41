// Package transport defines the chat HTTP and stream contract.
package transport

import "time"

// ChatRequest is the payload for POST /chat and POST /chat/stream. When
// SessionID is empty a new session is created.
type ChatRequest struct {
	Message   string `json:"message" validate:"required,max=4000"`
	SessionID string `json:"session_id,omitempty"`
}

// QuoteData summarizes a quote created during the turn.
type QuoteData struct {
	QuoteID          int64  `json:"quote_id"`
	Status           string `json:"status"`
	TotalAmountCents int64  `json:"total_amount_cents"`
	Currency         string `json:"currency"`
}

// ChatResponse is the non-streaming reply.
type ChatResponse struct {
	Response  string     `json:"response"`
	SessionID string     `json:"session_id"`
	QuoteData *QuoteData `json:"quote_data,omitempty"`
	PDFURL    string     `json:"pdf_url,omitempty"`
	Success   bool       `json:"success"`
	Error     string     `json:"error,omitempty"`
}

// StreamEventType names an SSE event on POST /chat/stream.
type StreamEventType string

const (
	// StreamEventSession announces the session id, once, before any token.
	StreamEventSession StreamEventType = "session"
	// StreamEventToken carries one ordered chunk of assistant output.
	StreamEventToken StreamEventType = "token"
	// StreamEventPDFReady announces a generated quote PDF, at most once.
	StreamEventPDFReady StreamEventType = "pdf_ready"
	// StreamEventDone terminates a successful turn.
	StreamEventDone StreamEventType = "done"
	// StreamEventError terminates a failed turn.
	StreamEventError StreamEventType = "error"
)

// StreamEvent is one event on the stream. Exactly one terminal event (done
// or error) closes every stream.
type StreamEvent struct {
	Type    StreamEventType
	Payload interface{}
}

// SessionPayload is the session event body.
type SessionPayload struct {
	SessionID string `json:"session_id"`
}

// TokenPayload is the token event body. Partial is the concatenation of
// every chunk sent so far, this one included.
type TokenPayload struct {
	Chunk   string `json:"chunk"`
	Partial string `json:"partial"`
}

// PDFReadyPayload is the pdf_ready event body.
type PDFReadyPayload struct {
	QuoteID int64  `json:"quote_id"`
	PDFURL  string `json:"pdf_url"`
}

// DonePayload is the done event body.
type DonePayload struct {
	Response string `json:"response"`
	QuoteID  *int64 `json:"quote_id,omitempty"`
	PDFURL   string `json:"pdf_url,omitempty"`
}

// ErrorPayload is the error event body.
type ErrorPayload struct {
	Message string `json:"message"`
}

// MessageResponse is one persisted chat message.
type MessageResponse struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryResponse is the session transcript.
type HistoryResponse struct {
	SessionID string            `json:"session_id"`
	Messages  []MessageResponse `json:"messages"`
}
