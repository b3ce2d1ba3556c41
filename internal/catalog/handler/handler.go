// Package handler exposes catalog reads over HTTP.
package handler

import (
	"strconv"

	"salesquote_backend/internal/catalog/repository"
	"salesquote_backend/internal/catalog/service"
	"salesquote_backend/internal/catalog/transport"
	"salesquote_backend/platform/apperr"
	"salesquote_backend/platform/httpkit"
	"salesquote_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// Handler serves catalog endpoints.
type Handler struct {
	service *service.Service
	log     *logger.Logger
}

// New creates a new catalog handler.
func New(svc *service.Service, log *logger.Logger) *Handler {
	return &Handler{service: svc, log: log}
}

// SearchAccounts resolves a free-text account reference.
// GET /catalog/accounts/search?q=acme
func (h *Handler) SearchAccounts(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		httpkit.HandleError(c, apperr.BadRequest("query parameter q is required"))
		return
	}

	result, err := h.service.FindAccount(c.Request.Context(), query)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.AccountSearchResponse{
		Candidates: make([]transport.AccountCandidateResponse, 0, len(result.Candidates)),
		Resolved:   result.Resolved,
	}
	for _, candidate := range result.Candidates {
		resp.Candidates = append(resp.Candidates, transport.AccountCandidateResponse{
			Account:    transport.ToAccountResponse(candidate.Account),
			Confidence: candidate.Confidence,
		})
	}
	httpkit.OK(c, resp)
}

// GetAccount retrieves a single account.
// GET /catalog/accounts/:id
func (h *Handler) GetAccount(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}

	account, err := h.service.GetAccount(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToAccountResponse(*account))
}

// ListPricebooks returns all pricebooks, default first.
// GET /catalog/pricebooks
func (h *Handler) ListPricebooks(c *gin.Context) {
	pricebooks, err := h.service.ListPricebooks(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	resp := make([]transport.PricebookResponse, 0, len(pricebooks))
	for _, p := range pricebooks {
		resp = append(resp, transport.ToPricebookResponse(p))
	}
	httpkit.OK(c, gin.H{"pricebooks": resp})
}

// ListSKUs returns catalog items matching the filter.
// GET /catalog/skus?q=crm&pricebook_id=1&top_level_only=true
func (h *Handler) ListSKUs(c *gin.Context) {
	var query transport.ListSKUsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid query parameters"))
		return
	}

	skus, err := h.service.ListSKUs(c.Request.Context(), repository.ListSKUsParams{
		Query:        query.Query,
		PricebookID:  query.PricebookID,
		TopLevelOnly: query.TopLevelOnly,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	resp := make([]transport.SKUResponse, 0, len(skus))
	for _, s := range skus {
		resp = append(resp, transport.ToSKUResponse(s))
	}
	httpkit.OK(c, gin.H{"skus": resp})
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.BadRequest("invalid id")
	}
	return id, nil
}
