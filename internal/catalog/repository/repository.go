package repository

import (
	"context"
	"errors"
	"fmt"

	"salesquote_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	accountNotFoundMsg   = "account not found"
	pricebookNotFoundMsg = "pricebook not found"
)

// PGRepository provides PostgreSQL-backed catalog reads.
type PGRepository struct {
	pool *pgxpool.Pool
}

// New creates a new catalog repository.
func New(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// GetAccount retrieves an account by its ID.
func (r *PGRepository) GetAccount(ctx context.Context, id int64) (*Account, error) {
	var a Account
	query := `SELECT id, name, domain, created_at FROM accounts WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(&a.ID, &a.Name, &a.Domain, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(accountNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}

// ListAccounts returns all accounts. The account base is small enough that
// matching happens in memory.
func (r *PGRepository) ListAccounts(ctx context.Context) ([]Account, error) {
	query := `SELECT id, name, domain, created_at FROM accounts ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Domain, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

// GetPricebook retrieves a pricebook by its ID.
func (r *PGRepository) GetPricebook(ctx context.Context, id int64) (*Pricebook, error) {
	var p Pricebook
	query := `SELECT id, name, currency, is_default FROM pricebooks WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Currency, &p.IsDefault)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(pricebookNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get pricebook: %w", err)
	}
	return &p, nil
}

// ListPricebooks returns all pricebooks, default first.
func (r *PGRepository) ListPricebooks(ctx context.Context) ([]Pricebook, error) {
	query := `SELECT id, name, currency, is_default FROM pricebooks ORDER BY is_default DESC, name ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query pricebooks: %w", err)
	}
	defer rows.Close()

	var pricebooks []Pricebook
	for rows.Next() {
		var p Pricebook
		if err := rows.Scan(&p.ID, &p.Name, &p.Currency, &p.IsDefault); err != nil {
			return nil, fmt.Errorf("failed to scan pricebook: %w", err)
		}
		pricebooks = append(pricebooks, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pricebooks: %w", err)
	}
	return pricebooks, nil
}

// DefaultPricebook returns the pricebook flagged as default.
func (r *PGRepository) DefaultPricebook(ctx context.Context) (*Pricebook, error) {
	var p Pricebook
	query := `SELECT id, name, currency, is_default FROM pricebooks WHERE is_default LIMIT 1`

	err := r.pool.QueryRow(ctx, query).Scan(&p.ID, &p.Name, &p.Currency, &p.IsDefault)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(pricebookNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get default pricebook: %w", err)
	}
	return &p, nil
}

// GetSKU retrieves a SKU by its ID.
func (r *PGRepository) GetSKU(ctx context.Context, id int64) (*SKU, error) {
	var s SKU
	query := `SELECT id, code, name, is_bundle, parent_sku_id, term_months, sort_order FROM skus WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.Code, &s.Name, &s.IsBundle, &s.ParentSKUID, &s.TermMonths, &s.SortOrder,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSKUNotFound
		}
		return nil, fmt.Errorf("failed to get sku: %w", err)
	}
	return &s, nil
}

// ListSKUs returns SKUs matching the filter in catalog order.
func (r *PGRepository) ListSKUs(ctx context.Context, params ListSKUsParams) ([]SKU, error) {
	var queryParam interface{}
	if params.Query != "" {
		queryParam = "%" + params.Query + "%"
	}

	var pricebookParam interface{}
	if params.PricebookID != nil {
		pricebookParam = *params.PricebookID
	}

	query := `
		SELECT s.id, s.code, s.name, s.is_bundle, s.parent_sku_id, s.term_months, s.sort_order
		FROM skus s
		WHERE ($1::text IS NULL OR s.code ILIKE $1 OR s.name ILIKE $1)
			AND ($2::bigint IS NULL OR EXISTS (
				SELECT 1 FROM sku_prices sp WHERE sp.sku_id = s.id AND sp.pricebook_id = $2
			))
			AND (NOT $3::boolean OR s.parent_sku_id IS NULL)
		ORDER BY s.sort_order ASC, s.id ASC`

	rows, err := r.pool.Query(ctx, query, queryParam, pricebookParam, params.TopLevelOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to query skus: %w", err)
	}
	defer rows.Close()

	return scanSKUs(rows)
}

// ListChildren returns a bundle's direct children in catalog order.
func (r *PGRepository) ListChildren(ctx context.Context, parentID int64) ([]SKU, error) {
	query := `
		SELECT id, code, name, is_bundle, parent_sku_id, term_months, sort_order
		FROM skus WHERE parent_sku_id = $1
		ORDER BY sort_order ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bundle children: %w", err)
	}
	defer rows.Close()

	return scanSKUs(rows)
}

// ResolvePrice returns the unit price in cents for (sku, pricebook).
// A missing SKU and a SKU without a price row are distinct failures.
func (r *PGRepository) ResolvePrice(ctx context.Context, skuID, pricebookID int64) (int64, error) {
	var unitPriceCents *int64
	query := `
		SELECT sp.unit_price_cents
		FROM skus s
		LEFT JOIN sku_prices sp ON sp.sku_id = s.id AND sp.pricebook_id = $2
		WHERE s.id = $1`

	err := r.pool.QueryRow(ctx, query, skuID, pricebookID).Scan(&unitPriceCents)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrSKUNotFound
		}
		return 0, fmt.Errorf("failed to resolve price: %w", err)
	}
	if unitPriceCents == nil {
		return 0, ErrSKUNotPriced
	}
	return *unitPriceCents, nil
}

func scanSKUs(rows pgx.Rows) ([]SKU, error) {
	var skus []SKU
	for rows.Next() {
		var s SKU
		if err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.IsBundle, &s.ParentSKUID, &s.TermMonths, &s.SortOrder); err != nil {
			return nil, fmt.Errorf("failed to scan sku: %w", err)
		}
		skus = append(skus, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate skus: %w", err)
	}
	return skus, nil
}

// Compile-time check that PGRepository implements Repository
var _ Repository = (*PGRepository)(nil)
