// Package transport defines the catalog HTTP contract.
package transport

import "salesquote_backend/internal/catalog/repository"

// AccountResponse is the wire representation of an account.
type AccountResponse struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Domain string `json:"domain,omitempty"`
}

// AccountCandidateResponse is a scored account match.
type AccountCandidateResponse struct {
	Account    AccountResponse `json:"account"`
	Confidence float64         `json:"confidence"`
}

// AccountSearchResponse is the result of a free-text account lookup.
type AccountSearchResponse struct {
	Candidates []AccountCandidateResponse `json:"candidates"`
	Resolved   bool                       `json:"resolved"`
}

// PricebookResponse is the wire representation of a pricebook.
type PricebookResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Currency  string `json:"currency"`
	IsDefault bool   `json:"is_default"`
}

// SKUResponse is the wire representation of a catalog item.
type SKUResponse struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	IsBundle    bool   `json:"is_bundle"`
	ParentSKUID *int64 `json:"parent_sku_id,omitempty"`
	TermMonths  *int   `json:"term_months,omitempty"`
}

// ListSKUsQuery carries the SKU listing filters.
type ListSKUsQuery struct {
	Query        string `form:"q"`
	PricebookID  *int64 `form:"pricebook_id"`
	TopLevelOnly bool   `form:"top_level_only"`
}

// ToAccountResponse maps a repository account to its wire form.
func ToAccountResponse(a repository.Account) AccountResponse {
	return AccountResponse{ID: a.ID, Name: a.Name, Domain: a.Domain}
}

// ToPricebookResponse maps a repository pricebook to its wire form.
func ToPricebookResponse(p repository.Pricebook) PricebookResponse {
	return PricebookResponse{ID: p.ID, Name: p.Name, Currency: p.Currency, IsDefault: p.IsDefault}
}

// ToSKUResponse maps a repository SKU to its wire form.
func ToSKUResponse(s repository.SKU) SKUResponse {
	return SKUResponse{
		ID:          s.ID,
		Code:        s.Code,
		Name:        s.Name,
		IsBundle:    s.IsBundle,
		ParentSKUID: s.ParentSKUID,
		TermMonths:  s.TermMonths,
	}
}
