// Package service contains quote construction, pricing, and idempotency
// logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	catalogrepo "salesquote_backend/internal/catalog/repository"
	"salesquote_backend/internal/quotes/repository"
	"salesquote_backend/internal/quotes/transport"
	"salesquote_backend/platform/apperr"
)

// LineInput is one requested line before validation and pricing.
type LineInput struct {
	SKUID       int64
	Qty         int
	DiscountPct *float64
}

// PriceRequest is the pricer input. A nil PricebookID selects the default
// pricebook.
type PriceRequest struct {
	AccountID   int64
	PricebookID *int64
	Lines       []LineInput
}

// PricedQuote is a fully validated and priced quote ready to persist.
type PricedQuote struct {
	AccountID   int64
	PricebookID int64
	Currency    string
	Lines       []repository.QuoteLine
	TotalCents  int64
}

// Pricer validates quote requests against the catalog and computes line
// totals. All violations are collected and reported together.
type Pricer struct {
	catalog catalogrepo.Repository
}

// NewPricer creates a new pricer over the catalog.
func NewPricer(catalog catalogrepo.Repository) *Pricer {
	return &Pricer{catalog: catalog}
}

// Price validates and prices the request. On validation failure it returns
// an apperr.Validation whose Details carry every offending line.
func (p *Pricer) Price(ctx context.Context, req PriceRequest) (*PricedQuote, error) {
	var lineErrors []transport.LineError

	if _, err := p.catalog.GetAccount(ctx, req.AccountID); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			lineErrors = append(lineErrors, transport.LineError{
				Field:   "account_id",
				Message: fmt.Sprintf("account %d not found", req.AccountID),
			})
		} else {
			return nil, err
		}
	}

	pricebook, pbErr := p.resolvePricebook(ctx, req.PricebookID)
	if pbErr != nil {
		if apperr.Is(pbErr, apperr.KindNotFound) {
			lineErrors = append(lineErrors, transport.LineError{
				Field:   "pricebook_id",
				Message: pbErr.Error(),
			})
		} else {
			return nil, pbErr
		}
	}

	priced := &PricedQuote{AccountID: req.AccountID}
	if pricebook != nil {
		priced.PricebookID = pricebook.ID
		priced.Currency = pricebook.Currency
	}

	for i, input := range req.Lines {
		index := i
		discount := 0.0
		if input.DiscountPct != nil {
			discount = *input.DiscountPct
		}

		lineValid := true
		if input.Qty < 1 {
			lineErrors = append(lineErrors, transport.LineError{
				LineIndex: &index,
				SKUID:     input.SKUID,
				Field:     "qty",
				Message:   "qty must be at least 1",
			})
			lineValid = false
		}
		if discount < 0 || discount >= 1 {
			lineErrors = append(lineErrors, transport.LineError{
				LineIndex: &index,
				SKUID:     input.SKUID,
				Field:     "discount_pct",
				Message:   "discount_pct must be in [0, 1)",
			})
			lineValid = false
		}
		// Price resolution is skipped for lines that already failed the
		// cheap checks, and for all lines when no pricebook resolved.
		if !lineValid || pricebook == nil {
			continue
		}

		sku, err := p.catalog.GetSKU(ctx, input.SKUID)
		if err != nil {
			if errors.Is(err, catalogrepo.ErrSKUNotFound) {
				lineErrors = append(lineErrors, transport.LineError{
					LineIndex: &index,
					SKUID:     input.SKUID,
					Field:     "sku_id",
					Message:   fmt.Sprintf("sku %d not found", input.SKUID),
				})
				continue
			}
			return nil, err
		}

		lines, errs, err := p.priceSKU(ctx, sku, pricebook.ID, input.Qty, discount, index, 0)
		if err != nil {
			return nil, err
		}
		if len(errs) > 0 {
			lineErrors = append(lineErrors, errs...)
			continue
		}
		priced.Lines = append(priced.Lines, lines...)
	}

	if len(lineErrors) > 0 {
		return nil, apperr.Validation("quote request failed validation").WithDetails(lineErrors)
	}

	for i := range priced.Lines {
		priced.Lines[i].SortOrder = i
		priced.TotalCents += priced.Lines[i].LineTotalCents
	}
	return priced, nil
}

// priceSKU prices one SKU and, for bundles, its children in catalog order.
// Children take the parent qty at the next indent level and never inherit
// the discount. Pricing failures anywhere in the expansion are attributed
// to the requested line's index.
func (p *Pricer) priceSKU(
	ctx context.Context,
	sku *catalogrepo.SKU,
	pricebookID int64,
	qty int,
	discount float64,
	lineIndex int,
	indent int,
) ([]repository.QuoteLine, []transport.LineError, error) {
	unitPrice, err := p.catalog.ResolvePrice(ctx, sku.ID, pricebookID)
	if err != nil {
		if errors.Is(err, catalogrepo.ErrSKUNotPriced) || errors.Is(err, catalogrepo.ErrSKUNotFound) {
			index := lineIndex
			return nil, []transport.LineError{{
				LineIndex: &index,
				SKUID:     sku.ID,
				Field:     "sku_id",
				Message:   fmt.Sprintf("sku %s has no price in the selected pricebook", sku.Code),
			}}, nil
		}
		return nil, nil, err
	}

	lines := []repository.QuoteLine{{
		SKUID:          sku.ID,
		SKUCode:        sku.Code,
		SKUName:        sku.Name,
		Qty:            qty,
		UnitPriceCents: unitPrice,
		DiscountPct:    discount,
		TermMonths:     sku.TermMonths,
		IndentLevel:    indent,
		LineTotalCents: lineTotal(qty, unitPrice, discount, sku.TermMonths),
	}}

	if !sku.IsBundle {
		return lines, nil, nil
	}

	children, err := p.catalog.ListChildren(ctx, sku.ID)
	if err != nil {
		return nil, nil, err
	}
	var childErrors []transport.LineError
	for i := range children {
		childLines, errs, err := p.priceSKU(ctx, &children[i], pricebookID, qty, 0, lineIndex, indent+1)
		if err != nil {
			return nil, nil, err
		}
		if len(errs) > 0 {
			childErrors = append(childErrors, errs...)
			continue
		}
		lines = append(lines, childLines...)
	}
	if len(childErrors) > 0 {
		return nil, childErrors, nil
	}
	return lines, nil, nil
}

// lineTotal computes round(qty * unit * (1 - discount) * term) in cents.
// Term is the subscription length in months, 1 for one-time SKUs.
func lineTotal(qty int, unitPriceCents int64, discount float64, termMonths *int) int64 {
	term := 1
	if termMonths != nil && *termMonths > 0 {
		term = *termMonths
	}
	return roundCents(float64(qty) * float64(unitPriceCents) * (1 - discount) * float64(term))
}

func roundCents(v float64) int64 {
	return int64(math.Round(v))
}

func (p *Pricer) resolvePricebook(ctx context.Context, id *int64) (*catalogrepo.Pricebook, error) {
	if id == nil {
		return p.catalog.DefaultPricebook(ctx)
	}
	return p.catalog.GetPricebook(ctx, *id)
}
