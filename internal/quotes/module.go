// Package quotes wires the quote construction bounded context: validation,
// pricing, idempotent creation, and quote reads.
package quotes

import (
	catalogrepo "salesquote_backend/internal/catalog/repository"
	"salesquote_backend/internal/events"
	apphttp "salesquote_backend/internal/http"
	"salesquote_backend/internal/quotes/handler"
	"salesquote_backend/internal/quotes/repository"
	"salesquote_backend/internal/quotes/service"
	"salesquote_backend/platform/logger"
	"salesquote_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module bundles the quotes handler with its dependencies.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates the quotes module. scheduler and storage may be nil when
// the task queue or object storage are not configured.
func NewModule(
	pool *pgxpool.Pool,
	catalog catalogrepo.Repository,
	bus events.Bus,
	scheduler service.PDFScheduler,
	storage service.PDFStorage,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	pricer := service.NewPricer(catalog)
	svc := service.New(repo, pricer, bus, storage, log)
	registerEventHandlers(bus, scheduler, log)
	return &Module{
		handler: handler.New(svc, val, log),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "quotes" }

// Service exposes the quote service to the agent tools and the worker.
func (m *Module) Service() *service.Service { return m.service }

// RegisterRoutes mounts the quotes routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Root.POST("/actions/create_quote", m.handler.CreateQuote)

	quotes := ctx.Root.Group("/quotes")
	quotes.GET("", m.handler.ListQuotes)
	quotes.GET("/:id", m.handler.GetQuote)
	quotes.GET("/:id/pdf", m.handler.GetQuotePDF)
}
