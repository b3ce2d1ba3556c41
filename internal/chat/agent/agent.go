// Package agent hosts the tool-calling quoting assistant built on the ADK
// framework.
package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	catalogservice "salesquote_backend/internal/catalog/service"
	"salesquote_backend/internal/chat/transport"
	quotesservice "salesquote_backend/internal/quotes/service"
	"salesquote_backend/platform/logger"
)

const appName = "quote_assistant"

// TurnResult is the outcome of one agent turn.
type TurnResult struct {
	Response string
	// Quote is set when the turn created (or replayed) a quote.
	Quote *transport.QuoteData
	// PDFQuoteID and PDFURL are set when the turn rendered a PDF.
	PDFQuoteID int64
	PDFURL     string
}

// Agent runs conversational quoting turns. Each chat session gets its own
// ADK runner and tool trace so sessions never share state.
type Agent struct {
	llm     model.LLM
	catalog *catalogservice.Service
	quotes  *quotesservice.Service
	pdf     PDFRenderer
	storage PDFLinker
	log     *logger.Logger

	sessions sync.Map // session id -> *sessionRunner
}

type sessionRunner struct {
	userID string
	runner *runner.Runner
	trace  *turnTrace
}

// New creates the quoting agent. pdf and storage may be nil when PDF
// generation is not configured.
func New(
	llm model.LLM,
	catalog *catalogservice.Service,
	quotes *quotesservice.Service,
	pdf PDFRenderer,
	storage PDFLinker,
	log *logger.Logger,
) *Agent {
	return &Agent{
		llm:     llm,
		catalog: catalog,
		quotes:  quotes,
		pdf:     pdf,
		storage: storage,
		log:     log,
	}
}

// RunTurn executes one turn in the session, pushing assistant text to
// onChunk in order. The returned result carries the full response and any
// quote or PDF the tools produced.
func (a *Agent) RunTurn(ctx context.Context, sessionID, message string, onChunk func(string)) (*TurnResult, error) {
	sr, err := a.sessionFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sr.trace.reset()

	userMessage := &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: message}},
	}
	runConfig := agent.RunConfig{
		StreamingMode: agent.StreamingModeNone,
	}

	var output strings.Builder
	for event, err := range sr.runner.Run(ctx, sr.userID, sessionID, userMessage, runConfig) {
		if err != nil {
			return nil, fmt.Errorf("agent run failed: %w", err)
		}
		if event.Content == nil {
			continue
		}
		for _, part := range event.Content.Parts {
			if part.Text == "" {
				continue
			}
			output.WriteString(part.Text)
			if onChunk != nil {
				onChunk(part.Text)
			}
		}
	}

	quote, pdfQuoteID, pdfURL := sr.trace.snapshot()
	return &TurnResult{
		Response:   output.String(),
		Quote:      quote,
		PDFQuoteID: pdfQuoteID,
		PDFURL:     pdfURL,
	}, nil
}

// EndSession discards the in-memory conversation state for a session.
func (a *Agent) EndSession(sessionID string) {
	a.sessions.Delete(sessionID)
}

func (a *Agent) sessionFor(ctx context.Context, sessionID string) (*sessionRunner, error) {
	if v, ok := a.sessions.Load(sessionID); ok {
		return v.(*sessionRunner), nil
	}

	trace := &turnTrace{}
	deps := &ToolDependencies{
		Catalog:   a.catalog,
		Quotes:    a.quotes,
		PDF:       a.pdf,
		Storage:   a.storage,
		Log:       a.log,
		SessionID: sessionID,
		Trace:     trace,
	}
	tools, err := buildTools(deps)
	if err != nil {
		return nil, err
	}

	adkAgent, err := llmagent.New(llmagent.Config{
		Name:        "QuoteAssistant",
		Model:       a.llm,
		Description: "Conversational assistant that builds draft sales quotes from the product catalog.",
		Instruction: getSystemPrompt(),
		Tools:       tools,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ADK agent: %w", err)
	}

	sessionService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        appName,
		Agent:          adkAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ADK runner: %w", err)
	}

	userID := "rep-" + sessionID
	if _, err := sessionService.Create(ctx, &session.CreateRequest{
		AppName:   appName,
		UserID:    userID,
		SessionID: sessionID,
	}); err != nil {
		return nil, fmt.Errorf("failed to create agent session: %w", err)
	}

	sr := &sessionRunner{userID: userID, runner: r, trace: trace}
	actual, _ := a.sessions.LoadOrStore(sessionID, sr)
	return actual.(*sessionRunner), nil
}
