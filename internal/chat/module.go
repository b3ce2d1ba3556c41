// Package chat wires the conversational quoting bounded context: session
// management, the streaming turn protocol, and the tool-calling agent.
package chat

import (
	catalogservice "salesquote_backend/internal/catalog/service"
	chatagent "salesquote_backend/internal/chat/agent"
	"salesquote_backend/internal/chat/handler"
	"salesquote_backend/internal/chat/repository"
	"salesquote_backend/internal/chat/service"
	"salesquote_backend/internal/events"
	apphttp "salesquote_backend/internal/http"
	quotesservice "salesquote_backend/internal/quotes/service"
	"salesquote_backend/platform/logger"
	"salesquote_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/adk/model"
)

// Module bundles the chat handler with its dependencies.
type Module struct {
	handler *handler.Handler
}

// NewModule creates the chat module. pdf and storage may be nil when PDF
// generation is not configured.
func NewModule(
	pool *pgxpool.Pool,
	llm model.LLM,
	catalog *catalogservice.Service,
	quotes *quotesservice.Service,
	pdf chatagent.PDFRenderer,
	storage chatagent.PDFLinker,
	bus events.Bus,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	runner := chatagent.New(llm, catalog, quotes, pdf, storage, log)
	svc := service.New(repo, runner, bus, log)
	registerEventHandlers(bus, log)
	return &Module{handler: handler.New(svc, val, log)}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "chat" }

// RegisterRoutes mounts the chat routes on the rate-limited group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Chat.POST("/chat", m.handler.Chat)
	ctx.Chat.POST("/chat/stream", m.handler.ChatStream)

	sessions := ctx.Root.Group("/sessions")
	sessions.GET("/:id/history", m.handler.GetHistory)
	sessions.DELETE("/:id", m.handler.ClearSession)
}
