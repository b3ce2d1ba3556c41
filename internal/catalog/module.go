// Package catalog wires the product catalog bounded context: accounts,
// pricebooks, SKUs and price resolution.
package catalog

import (
	"salesquote_backend/internal/catalog/handler"
	"salesquote_backend/internal/catalog/repository"
	"salesquote_backend/internal/catalog/service"
	apphttp "salesquote_backend/internal/http"
	"salesquote_backend/platform/config"
	"salesquote_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module bundles the catalog handler with its dependencies.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates the catalog module.
func NewModule(pool *pgxpool.Pool, cfg config.DisambiguationConfig, log *logger.Logger) *Module {
	repo := repository.New(pool)
	disambiguator := service.NewDisambiguator(repo, cfg)
	svc := service.New(repo, disambiguator, log)
	return &Module{
		handler: handler.New(svc, log),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "catalog" }

// Service exposes the catalog service to other modules and the agent tools.
func (m *Module) Service() *service.Service { return m.service }

// RegisterRoutes mounts the catalog routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Root.Group("/catalog")
	group.GET("/accounts/search", m.handler.SearchAccounts)
	group.GET("/accounts/:id", m.handler.GetAccount)
	group.GET("/pricebooks", m.handler.ListPricebooks)
	group.GET("/skus", m.handler.ListSKUs)
}
