// Package service manages chat sessions and the streaming turn protocol.
package service

import (
	"context"
	"errors"
	"sync"

	"salesquote_backend/internal/chat/agent"
	"salesquote_backend/internal/chat/repository"
	"salesquote_backend/internal/chat/transport"
	"salesquote_backend/internal/events"
	"salesquote_backend/platform/apperr"
	"salesquote_backend/platform/logger"

	"github.com/google/uuid"
)

// TurnRunner executes one conversational turn. The production implementation
// is the ADK agent; tests substitute a fake.
type TurnRunner interface {
	RunTurn(ctx context.Context, sessionID, message string, onChunk func(string)) (*agent.TurnResult, error)
	EndSession(sessionID string)
}

// streamBufferSize bounds how far the producer may run ahead of a slow
// SSE consumer before sends start waiting on the context.
const streamBufferSize = 32

// Service coordinates chat turns: one writer per session, sessions fully
// parallel with each other.
type Service struct {
	repo   repository.Repository
	runner TurnRunner
	bus    events.Bus
	log    *logger.Logger

	locks sync.Map // session id -> *sync.Mutex
}

// New creates the chat service.
func New(repo repository.Repository, runner TurnRunner, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, runner: runner, bus: bus, log: log}
}

// Chat runs a full turn and returns the complete response.
func (s *Service) Chat(ctx context.Context, req transport.ChatRequest) (*transport.ChatResponse, error) {
	sessionID := s.resolveSessionID(req.SessionID)

	unlock := s.lockSession(sessionID)
	defer unlock()

	if err := s.beginTurn(ctx, sessionID, req.Message); err != nil {
		return nil, err
	}

	result, err := s.runner.RunTurn(ctx, sessionID, req.Message, nil)
	if err != nil {
		s.finishTurn(ctx, sessionID, "error", nil, "")
		return &transport.ChatResponse{
			SessionID: sessionID,
			Success:   false,
			Error:     "The assistant could not complete this request. Please try again.",
		}, nil
	}

	s.finishTurn(ctx, sessionID, "done", result.Quote, result.Response)
	resp := &transport.ChatResponse{
		Response:  result.Response,
		SessionID: sessionID,
		QuoteData: result.Quote,
		PDFURL:    result.PDFURL,
		Success:   true,
	}
	return resp, nil
}

// Stream runs a turn and emits the stream protocol events in order:
// session, tokens, at most one pdf_ready, then exactly one of done or
// error. The channel is closed after the terminal event.
func (s *Service) Stream(ctx context.Context, req transport.ChatRequest) <-chan transport.StreamEvent {
	ch := make(chan transport.StreamEvent, streamBufferSize)
	sessionID := s.resolveSessionID(req.SessionID)

	go func() {
		defer close(ch)

		terminated := false
		tokenCount := 0
		// The stream never ends without a terminal event, whatever path
		// the turn takes out of this function.
		defer func() {
			if !terminated {
				s.terminal(ctx, ch, transport.StreamEvent{
					Type:    transport.StreamEventError,
					Payload: transport.ErrorPayload{Message: "The conversation was interrupted."},
				})
				s.log.StreamClosed(sessionID, "error", tokenCount)
			}
		}()

		unlock := s.lockSession(sessionID)
		defer unlock()

		if !s.emit(ctx, ch, transport.StreamEvent{
			Type:    transport.StreamEventSession,
			Payload: transport.SessionPayload{SessionID: sessionID},
		}) {
			return
		}

		if err := s.beginTurn(ctx, sessionID, req.Message); err != nil {
			s.log.Error("failed to begin chat turn", "session_id", sessionID, "error", err)
			return
		}

		var partial string
		result, err := s.runner.RunTurn(ctx, sessionID, req.Message, func(chunk string) {
			partial += chunk
			tokenCount++
			s.emit(ctx, ch, transport.StreamEvent{
				Type:    transport.StreamEventToken,
				Payload: transport.TokenPayload{Chunk: chunk, Partial: partial},
			})
		})
		if err != nil {
			s.finishTurn(ctx, sessionID, "error", nil, "")
			s.terminal(ctx, ch, transport.StreamEvent{
				Type:    transport.StreamEventError,
				Payload: transport.ErrorPayload{Message: "The assistant could not complete this request. Please try again."},
			})
			terminated = true
			s.log.StreamClosed(sessionID, "error", tokenCount)
			return
		}

		if result.PDFURL != "" {
			s.emit(ctx, ch, transport.StreamEvent{
				Type: transport.StreamEventPDFReady,
				Payload: transport.PDFReadyPayload{
					QuoteID: result.PDFQuoteID,
					PDFURL:  result.PDFURL,
				},
			})
		}

		s.finishTurn(ctx, sessionID, "done", result.Quote, result.Response)
		done := transport.DonePayload{Response: result.Response, PDFURL: result.PDFURL}
		if result.Quote != nil {
			done.QuoteID = &result.Quote.QuoteID
		}
		s.terminal(ctx, ch, transport.StreamEvent{Type: transport.StreamEventDone, Payload: done})
		terminated = true
		s.log.StreamClosed(sessionID, "done", tokenCount)
	}()

	return ch
}

// History returns the persisted transcript of a session.
func (s *Service) History(ctx context.Context, sessionID string) ([]repository.Message, error) {
	if _, err := s.repo.GetSession(ctx, sessionID); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, apperr.NotFound("session not found")
		}
		return nil, err
	}
	return s.repo.ListMessages(ctx, sessionID)
}

// ClearSession deletes a session's history and its in-memory agent state.
func (s *Service) ClearSession(ctx context.Context, sessionID string) error {
	unlock := s.lockSession(sessionID)
	defer unlock()

	if err := s.repo.DeleteSession(ctx, sessionID); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return apperr.NotFound("session not found")
		}
		return err
	}
	s.runner.EndSession(sessionID)
	s.locks.Delete(sessionID)
	return nil
}

func (s *Service) resolveSessionID(requested string) string {
	if requested != "" {
		return requested
	}
	return uuid.NewString()
}

// lockSession serializes turns within one session. Turns in different
// sessions run in parallel.
func (s *Service) lockSession(sessionID string) func() {
	v, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *Service) beginTurn(ctx context.Context, sessionID, message string) error {
	if err := s.repo.EnsureSession(ctx, sessionID); err != nil {
		return err
	}
	return s.repo.AppendMessage(ctx, sessionID, "user", message)
}

// finishTurn persists the assistant reply and publishes the turn outcome.
// Persistence failures are logged, not surfaced: the turn itself already
// succeeded or failed on its own terms.
func (s *Service) finishTurn(ctx context.Context, sessionID, outcome string, quote *transport.QuoteData, response string) {
	if response != "" {
		if err := s.repo.AppendMessage(ctx, sessionID, "assistant", response); err != nil {
			s.log.DatabaseError("append assistant message", err)
		}
	}

	event := events.ChatTurnCompleted{
		BaseEvent: events.NewBaseEvent(),
		SessionID: sessionID,
		Outcome:   outcome,
	}
	if quote != nil {
		event.QuoteID = &quote.QuoteID
	}
	s.bus.Publish(ctx, event)
}

// emit pushes an event in order, waiting on the buffer unless the consumer
// is gone.
func (s *Service) emit(ctx context.Context, ch chan<- transport.StreamEvent, ev transport.StreamEvent) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// terminal delivers a terminal event, waiting for a slow consumer to make
// buffer room. Only a cancelled consumer downgrades delivery to best-effort;
// it may never drain again and must not pin this goroutine.
func (s *Service) terminal(ctx context.Context, ch chan<- transport.StreamEvent, ev transport.StreamEvent) {
	select {
	case ch <- ev:
	case <-ctx.Done():
		select {
		case ch <- ev:
		default:
		}
	}
}
