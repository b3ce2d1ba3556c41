// Package transport defines the quotes HTTP contract.
package transport

import (
	"time"

	"salesquote_backend/internal/quotes/repository"
)

// CreateQuoteLineRequest is a single requested quote line. Per-line rules
// (qty, discount range) are enforced by the pricer so that every offending
// line is reported, not just the first one binding rejects.
type CreateQuoteLineRequest struct {
	SKUID       int64    `json:"sku_id" validate:"required,gt=0"`
	Qty         int      `json:"qty"`
	DiscountPct *float64 `json:"discount_pct,omitempty"`
}

// CreateQuoteRequest is the payload for POST /actions/create_quote.
// PricebookID falls back to the default pricebook when omitted. The
// idempotency key may also arrive via the Idempotency-Key header; the body
// field wins when both are set.
type CreateQuoteRequest struct {
	AccountID      int64                    `json:"account_id" validate:"required,gt=0"`
	PricebookID    *int64                   `json:"pricebook_id,omitempty"`
	IdempotencyKey string                   `json:"idempotency_key,omitempty"`
	Lines          []CreateQuoteLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// LineError describes one validation failure. LineIndex is absent for
// request-level failures (unknown account or pricebook).
type LineError struct {
	LineIndex *int   `json:"line_index,omitempty"`
	SKUID     int64  `json:"sku_id,omitempty"`
	Field     string `json:"field"`
	Message   string `json:"message"`
}

// CreateQuoteResponse is returned for both fresh creates (201) and
// idempotent replays (200).
type CreateQuoteResponse struct {
	QuoteID int64  `json:"quote_id"`
	Status  string `json:"status"`
}

// QuoteLineResponse is the wire representation of a priced line.
type QuoteLineResponse struct {
	SKUID          int64   `json:"sku_id"`
	SKUCode        string  `json:"sku_code"`
	SKUName        string  `json:"sku_name"`
	Qty            int     `json:"qty"`
	UnitPriceCents int64   `json:"unit_price_cents"`
	DiscountPct    float64 `json:"discount_pct"`
	TermMonths     *int    `json:"term_months,omitempty"`
	IndentLevel    int     `json:"indent_level"`
	LineTotalCents int64   `json:"line_total_cents"`
}

// QuoteResponse is the full quote representation.
type QuoteResponse struct {
	QuoteID          int64               `json:"quote_id"`
	AccountID        int64               `json:"account_id"`
	PricebookID      int64               `json:"pricebook_id"`
	Status           string              `json:"status"`
	CreatedAt        time.Time           `json:"created_at"`
	Lines            []QuoteLineResponse `json:"lines"`
	TotalAmountCents int64               `json:"total_amount_cents"`
	Currency         string              `json:"currency"`
}

// QuoteSummaryResponse is the list representation without lines.
type QuoteSummaryResponse struct {
	QuoteID          int64     `json:"quote_id"`
	AccountID        int64     `json:"account_id"`
	PricebookID      int64     `json:"pricebook_id"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	TotalAmountCents int64     `json:"total_amount_cents"`
}

// ListQuotesQuery carries the quote listing filters.
type ListQuotesQuery struct {
	AccountID *int64 `form:"account_id"`
	Limit     int    `form:"limit"`
	Offset    int    `form:"offset"`
}

// ToQuoteResponse maps a repository quote to its wire form.
func ToQuoteResponse(q *repository.Quote) QuoteResponse {
	lines := make([]QuoteLineResponse, 0, len(q.Lines))
	for _, l := range q.Lines {
		lines = append(lines, QuoteLineResponse{
			SKUID:          l.SKUID,
			SKUCode:        l.SKUCode,
			SKUName:        l.SKUName,
			Qty:            l.Qty,
			UnitPriceCents: l.UnitPriceCents,
			DiscountPct:    l.DiscountPct,
			TermMonths:     l.TermMonths,
			IndentLevel:    l.IndentLevel,
			LineTotalCents: l.LineTotalCents,
		})
	}
	return QuoteResponse{
		QuoteID:          q.ID,
		AccountID:        q.AccountID,
		PricebookID:      q.PricebookID,
		Status:           q.Status,
		CreatedAt:        q.CreatedAt,
		Lines:            lines,
		TotalAmountCents: q.TotalCents,
		Currency:         q.Currency,
	}
}

// ToQuoteSummaryResponse maps a repository quote to its list form.
func ToQuoteSummaryResponse(q repository.Quote) QuoteSummaryResponse {
	return QuoteSummaryResponse{
		QuoteID:          q.ID,
		AccountID:        q.AccountID,
		PricebookID:      q.PricebookID,
		Status:           q.Status,
		CreatedAt:        q.CreatedAt,
		TotalAmountCents: q.TotalCents,
	}
}
