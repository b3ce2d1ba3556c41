// Package handler exposes quote construction over HTTP.
package handler

import (
	"strconv"

	"salesquote_backend/internal/quotes/repository"
	"salesquote_backend/internal/quotes/service"
	"salesquote_backend/internal/quotes/transport"
	"salesquote_backend/platform/apperr"
	"salesquote_backend/platform/httpkit"
	"salesquote_backend/platform/logger"
	"salesquote_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// IdempotencyKeyHeader is the alternative carrier for the idempotency key.
const IdempotencyKeyHeader = "Idempotency-Key"

// Handler serves quote endpoints.
type Handler struct {
	service *service.Service
	val     *validator.Validator
	log     *logger.Logger
}

// New creates a new quotes handler.
func New(svc *service.Service, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{service: svc, val: val, log: log}
}

// CreateQuote validates, prices, and persists a quote.
// POST /actions/create_quote
// 201 on fresh create, 200 on idempotent replay, 400 with per-line
// details, 409 on key reuse with a different payload.
func (h *Handler) CreateQuote(c *gin.Context) {
	var req transport.CreateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("validation failed").WithDetails(err.Error()))
		return
	}

	key := req.IdempotencyKey
	if key == "" {
		key = c.GetHeader(IdempotencyKeyHeader)
	}

	lines := make([]service.LineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, service.LineInput{
			SKUID:       l.SKUID,
			Qty:         l.Qty,
			DiscountPct: l.DiscountPct,
		})
	}

	result, err := h.service.CreateQuote(c.Request.Context(), service.CreateRequest{
		AccountID:      req.AccountID,
		PricebookID:    req.PricebookID,
		IdempotencyKey: key,
		Lines:          lines,
		Source:         "api",
	})
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.CreateQuoteResponse{QuoteID: result.QuoteID, Status: "draft"}
	if result.Replayed {
		httpkit.OK(c, resp)
		return
	}
	httpkit.Created(c, resp)
}

// GetQuote returns a quote with its lines and recomputed total.
// GET /quotes/:id
func (h *Handler) GetQuote(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}

	quote, err := h.service.GetQuote(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToQuoteResponse(quote))
}

// ListQuotes returns quote summaries, newest first.
// GET /quotes?account_id=1&limit=50&offset=0
func (h *Handler) ListQuotes(c *gin.Context) {
	var query transport.ListQuotesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid query parameters"))
		return
	}

	quotes, err := h.service.ListQuotes(c.Request.Context(), repository.ListParams{
		AccountID: query.AccountID,
		Limit:     query.Limit,
		Offset:    query.Offset,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	resp := make([]transport.QuoteSummaryResponse, 0, len(quotes))
	for _, q := range quotes {
		resp = append(resp, transport.ToQuoteSummaryResponse(q))
	}
	httpkit.OK(c, gin.H{"quotes": resp})
}

// GetQuotePDF redirects to a presigned download URL for the quote PDF.
// GET /quotes/:id/pdf
func (h *Handler) GetQuotePDF(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}

	url, err := h.service.QuotePDFURL(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"pdf_url": url})
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.BadRequest("invalid id")
	}
	return id, nil
}
