package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"salesquote_backend/internal/chat/agent"
	"salesquote_backend/internal/chat/repository"
	"salesquote_backend/internal/chat/transport"
	"salesquote_backend/internal/events"
	"salesquote_backend/platform/logger"
)

type fakeChatRepo struct {
	mu       sync.Mutex
	sessions map[string]repository.Session
	messages map[string][]repository.Message
	nextID   int64
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		sessions: map[string]repository.Session{},
		messages: map[string][]repository.Message{},
	}
}

func (f *fakeChatRepo) EnsureSession(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[id]; !ok {
		f.sessions[id] = repository.Session{ID: id, CreatedAt: time.Now()}
	}
	return nil
}

func (f *fakeChatRepo) GetSession(ctx context.Context, id string) (*repository.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	return &s, nil
}

func (f *fakeChatRepo) AppendMessage(ctx context.Context, sessionID, role, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.messages[sessionID] = append(f.messages[sessionID], repository.Message{
		ID: f.nextID, SessionID: sessionID, Role: role, Content: content, CreatedAt: time.Now(),
	})
	return nil
}

func (f *fakeChatRepo) ListMessages(ctx context.Context, sessionID string) ([]repository.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]repository.Message(nil), f.messages[sessionID]...), nil
}

func (f *fakeChatRepo) DeleteSession(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[sessionID]; !ok {
		return repository.ErrSessionNotFound
	}
	delete(f.sessions, sessionID)
	delete(f.messages, sessionID)
	return nil
}

type fakeRunner struct {
	chunks []string
	result *agent.TurnResult
	err    error
	// block, when set, makes RunTurn wait for ctx cancellation after the
	// first chunk.
	block bool

	ended []string
	mu    sync.Mutex
}

func (f *fakeRunner) RunTurn(ctx context.Context, sessionID, message string, onChunk func(string)) (*agent.TurnResult, error) {
	for i, chunk := range f.chunks {
		if onChunk != nil {
			onChunk(chunk)
		}
		if f.block && i == 0 {
			<-ctx.Done()
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &agent.TurnResult{Response: strings.Join(f.chunks, "")}, nil
}

func (f *fakeRunner) EndSession(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, sessionID)
}

type nopBus struct{}

func (nopBus) Publish(ctx context.Context, event events.Event) {}
func (nopBus) PublishSync(ctx context.Context, event events.Event) error {
	return nil
}
func (nopBus) Subscribe(eventName string, handler events.Handler) {}

func collect(ch <-chan transport.StreamEvent) []transport.StreamEvent {
	var got []transport.StreamEvent
	for ev := range ch {
		got = append(got, ev)
	}
	return got
}

func TestStreamEventOrder(t *testing.T) {
	runner := &fakeRunner{chunks: []string{"Hello", ", ", "world"}}
	svc := New(newFakeChatRepo(), runner, nopBus{}, logger.New("development"))

	got := collect(svc.Stream(context.Background(), transport.ChatRequest{Message: "hi"}))
	if len(got) < 3 {
		t.Fatalf("expected at least 3 events, got %d", len(got))
	}

	if got[0].Type != transport.StreamEventSession {
		t.Errorf("first event must be session, got %s", got[0].Type)
	}
	session := got[0].Payload.(transport.SessionPayload)
	if session.SessionID == "" {
		t.Error("session event must carry a session id")
	}

	var partial string
	tokens := 0
	for _, ev := range got[1 : len(got)-1] {
		if ev.Type != transport.StreamEventToken {
			t.Fatalf("expected token event, got %s", ev.Type)
		}
		payload := ev.Payload.(transport.TokenPayload)
		partial += payload.Chunk
		if payload.Partial != partial {
			t.Errorf("partial %q inconsistent with concatenated chunks %q", payload.Partial, partial)
		}
		tokens++
	}
	if tokens != 3 {
		t.Errorf("expected 3 token events, got %d", tokens)
	}

	last := got[len(got)-1]
	if last.Type != transport.StreamEventDone {
		t.Fatalf("last event must be done, got %s", last.Type)
	}
	done := last.Payload.(transport.DonePayload)
	if done.Response != "Hello, world" {
		t.Errorf("done response %q does not match streamed text", done.Response)
	}
}

func TestStreamSlowConsumerStillReceivesTerminalEvent(t *testing.T) {
	// Enough chunks to fill the channel buffer while the consumer sits on
	// the session event, so the done send finds no room at first.
	chunks := make([]string, streamBufferSize)
	for i := range chunks {
		chunks[i] = "x"
	}
	runner := &fakeRunner{chunks: chunks}
	svc := New(newFakeChatRepo(), runner, nopBus{}, logger.New("development"))

	ch := svc.Stream(context.Background(), transport.ChatRequest{Message: "hi"})

	first := <-ch
	if first.Type != transport.StreamEventSession {
		t.Fatalf("first event must be session, got %s", first.Type)
	}
	// Let the producer run all the way to the terminal send.
	time.Sleep(50 * time.Millisecond)

	got := collect(ch)
	terminals := 0
	for _, ev := range got {
		if ev.Type == transport.StreamEventDone || ev.Type == transport.StreamEventError {
			terminals++
		}
	}
	if terminals != 1 {
		t.Fatalf("expected exactly one terminal event, got %d", terminals)
	}
	if got[len(got)-1].Type != transport.StreamEventDone {
		t.Errorf("last event must be done, got %s", got[len(got)-1].Type)
	}
}

func TestStreamRunnerErrorEmitsTerminalError(t *testing.T) {
	runner := &fakeRunner{chunks: []string{"partial "}, err: errors.New("model unavailable")}
	svc := New(newFakeChatRepo(), runner, nopBus{}, logger.New("development"))

	got := collect(svc.Stream(context.Background(), transport.ChatRequest{Message: "hi"}))

	last := got[len(got)-1]
	if last.Type != transport.StreamEventError {
		t.Fatalf("last event must be error, got %s", last.Type)
	}
	terminals := 0
	for _, ev := range got {
		if ev.Type == transport.StreamEventDone || ev.Type == transport.StreamEventError {
			terminals++
		}
	}
	if terminals != 1 {
		t.Errorf("expected exactly one terminal event, got %d", terminals)
	}
}

func TestStreamCancellationStillTerminates(t *testing.T) {
	runner := &fakeRunner{chunks: []string{"thinking"}, block: true}
	svc := New(newFakeChatRepo(), runner, nopBus{}, logger.New("development"))

	ctx, cancel := context.WithCancel(context.Background())
	ch := svc.Stream(ctx, transport.ChatRequest{Message: "hi", SessionID: "s1"})

	// Read up to the first token, then walk away like a dropped client.
	for ev := range ch {
		if ev.Type == transport.StreamEventToken {
			break
		}
	}
	cancel()

	got := collect(ch)
	if len(got) == 0 {
		t.Fatal("expected a terminal event after cancellation")
	}
	if got[len(got)-1].Type != transport.StreamEventError {
		t.Errorf("cancelled stream must end with error, got %s", got[len(got)-1].Type)
	}
}

func TestStreamPDFReadyPrecedesDone(t *testing.T) {
	quoteID := int64(7)
	runner := &fakeRunner{
		chunks: []string{"Here is your PDF."},
		result: &agent.TurnResult{
			Response:   "Here is your PDF.",
			Quote:      &transport.QuoteData{QuoteID: quoteID, Status: "draft", TotalAmountCents: 10000, Currency: "USD"},
			PDFQuoteID: quoteID,
			PDFURL:     "https://files.example/quote-7.pdf",
		},
	}
	svc := New(newFakeChatRepo(), runner, nopBus{}, logger.New("development"))

	got := collect(svc.Stream(context.Background(), transport.ChatRequest{Message: "pdf please"}))

	pdfIndex, doneIndex := -1, -1
	for i, ev := range got {
		switch ev.Type {
		case transport.StreamEventPDFReady:
			pdfIndex = i
		case transport.StreamEventDone:
			doneIndex = i
		}
	}
	if pdfIndex == -1 {
		t.Fatal("expected a pdf_ready event")
	}
	if doneIndex == -1 || pdfIndex > doneIndex {
		t.Errorf("pdf_ready (index %d) must precede done (index %d)", pdfIndex, doneIndex)
	}

	done := got[doneIndex].Payload.(transport.DonePayload)
	if done.QuoteID == nil || *done.QuoteID != quoteID {
		t.Error("done event must carry the created quote id")
	}
}

func TestChatPersistsTranscript(t *testing.T) {
	repo := newFakeChatRepo()
	runner := &fakeRunner{chunks: []string{"answer"}}
	svc := New(repo, runner, nopBus{}, logger.New("development"))

	resp, err := svc.Chat(context.Background(), transport.ChatRequest{Message: "question", SessionID: "s1"})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if !resp.Success {
		t.Error("expected success")
	}

	messages, err := svc.History(context.Background(), "s1")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Role != "user" || messages[0].Content != "question" {
		t.Errorf("unexpected first message: %+v", messages[0])
	}
	if messages[1].Role != "assistant" || messages[1].Content != "answer" {
		t.Errorf("unexpected second message: %+v", messages[1])
	}
}

func TestClearSessionRemovesHistoryAndAgentState(t *testing.T) {
	repo := newFakeChatRepo()
	runner := &fakeRunner{chunks: []string{"answer"}}
	svc := New(repo, runner, nopBus{}, logger.New("development"))

	if _, err := svc.Chat(context.Background(), transport.ChatRequest{Message: "question", SessionID: "s1"}); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if err := svc.ClearSession(context.Background(), "s1"); err != nil {
		t.Fatalf("ClearSession failed: %v", err)
	}

	if _, err := svc.History(context.Background(), "s1"); err == nil {
		t.Error("expected history of cleared session to fail")
	}
	if len(runner.ended) != 1 || runner.ended[0] != "s1" {
		t.Errorf("expected agent session to be ended, got %v", runner.ended)
	}
}

var _ repository.Repository = (*fakeChatRepo)(nil)
var _ TurnRunner = (*fakeRunner)(nil)
