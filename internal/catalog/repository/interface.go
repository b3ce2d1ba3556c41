// Package repository provides data access for the catalog bounded context.
package repository

import (
	"context"
	"errors"
	"time"
)

// Price resolution sentinels. A SKU that does not exist at all is a different
// failure from a SKU that exists but carries no price in the requested
// pricebook, and callers report the two differently.
var (
	ErrSKUNotFound  = errors.New("sku not found")
	ErrSKUNotPriced = errors.New("sku not priced in pricebook")
)

// Account is a customer account that quotes are issued against.
type Account struct {
	ID        int64
	Name      string
	Domain    string
	CreatedAt time.Time
}

// Pricebook is a named price list. Exactly one pricebook is the default.
type Pricebook struct {
	ID        int64
	Name      string
	Currency  string
	IsDefault bool
}

// SKU is a sellable catalog item. Bundles have child SKUs linked through
// ParentSKUID; subscriptions carry a TermMonths billing multiplier.
type SKU struct {
	ID          int64
	Code        string
	Name        string
	IsBundle    bool
	ParentSKUID *int64
	TermMonths  *int
	SortOrder   int
}

// ListSKUsParams filters the SKU listing.
type ListSKUsParams struct {
	// Query matches code or name, case-insensitive substring.
	Query string
	// PricebookID restricts results to SKUs priced in that pricebook.
	PricebookID *int64
	// TopLevelOnly excludes bundle children.
	TopLevelOnly bool
}

// Repository defines catalog read operations. The catalog is reference data;
// there are no write operations outside seeding.
type Repository interface {
	GetAccount(ctx context.Context, id int64) (*Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)

	GetPricebook(ctx context.Context, id int64) (*Pricebook, error)
	ListPricebooks(ctx context.Context) ([]Pricebook, error)
	DefaultPricebook(ctx context.Context) (*Pricebook, error)

	GetSKU(ctx context.Context, id int64) (*SKU, error)
	ListSKUs(ctx context.Context, params ListSKUsParams) ([]SKU, error)
	// ListChildren returns a bundle's direct children in catalog order.
	ListChildren(ctx context.Context, parentID int64) ([]SKU, error)

	// ResolvePrice returns the unit price in cents for (sku, pricebook).
	// Returns ErrSKUNotFound or ErrSKUNotPriced accordingly.
	ResolvePrice(ctx context.Context, skuID, pricebookID int64) (int64, error)
}
