package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository provides PostgreSQL-backed quote persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// New creates a new quote repository.
func New(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Create inserts the quote, its lines, and the optional idempotency record
// in a single transaction. The idempotency insert uses ON CONFLICT DO
// NOTHING; zero rows affected means another transaction claimed the key
// first, and the whole create rolls back with ErrIdempotencyRace.
func (r *PGRepository) Create(ctx context.Context, params CreateParams) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var quoteID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO quotes (account_id, pricebook_id, status) VALUES ($1, $2, 'draft') RETURNING id`,
		params.AccountID, params.PricebookID,
	).Scan(&quoteID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert quote: %w", err)
	}

	for i, line := range params.Lines {
		_, err = tx.Exec(ctx,
			`INSERT INTO quote_lines
				(quote_id, sku_id, qty, unit_price_cents, discount_pct, term_months, indent_level, line_total_cents, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			quoteID, line.SKUID, line.Qty, line.UnitPriceCents, line.DiscountPct,
			line.TermMonths, line.IndentLevel, line.LineTotalCents, i,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert quote line: %w", err)
		}
	}

	if params.IdempotencyKey != "" {
		tag, err := tx.Exec(ctx,
			`INSERT INTO idempotency_keys (key, fingerprint, quote_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (key) DO NOTHING`,
			params.IdempotencyKey, params.Fingerprint, quoteID,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert idempotency key: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return 0, ErrIdempotencyRace
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit quote: %w", err)
	}
	return quoteID, nil
}

// GetByID returns the quote with its lines in stored order. The total is
// recomputed from the stored lines at read time.
func (r *PGRepository) GetByID(ctx context.Context, id int64) (*Quote, error) {
	var q Quote
	err := r.pool.QueryRow(ctx,
		`SELECT q.id, q.account_id, q.pricebook_id, q.status, q.pdf_file_key, q.created_at, p.currency
		FROM quotes q
		JOIN pricebooks p ON p.id = q.pricebook_id
		WHERE q.id = $1`,
		id,
	).Scan(&q.ID, &q.AccountID, &q.PricebookID, &q.Status, &q.PDFFileKey, &q.CreatedAt, &q.Currency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuoteNotFound
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT l.id, l.quote_id, l.sku_id, s.code, s.name, l.qty, l.unit_price_cents,
			l.discount_pct, l.term_months, l.indent_level, l.line_total_cents, l.sort_order
		FROM quote_lines l
		JOIN skus s ON s.id = l.sku_id
		WHERE l.quote_id = $1
		ORDER BY l.sort_order ASC`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query quote lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l QuoteLine
		if err := rows.Scan(
			&l.ID, &l.QuoteID, &l.SKUID, &l.SKUCode, &l.SKUName, &l.Qty, &l.UnitPriceCents,
			&l.DiscountPct, &l.TermMonths, &l.IndentLevel, &l.LineTotalCents, &l.SortOrder,
		); err != nil {
			return nil, fmt.Errorf("failed to scan quote line: %w", err)
		}
		q.Lines = append(q.Lines, l)
		q.TotalCents += l.LineTotalCents
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quote lines: %w", err)
	}
	return &q, nil
}

// List returns quote summaries, newest first. Totals are computed by
// summing stored lines.
func (r *PGRepository) List(ctx context.Context, params ListParams) ([]Quote, error) {
	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var accountParam interface{}
	if params.AccountID != nil {
		accountParam = *params.AccountID
	}

	rows, err := r.pool.Query(ctx,
		`SELECT q.id, q.account_id, q.pricebook_id, q.status, q.created_at,
			COALESCE(SUM(l.line_total_cents), 0)
		FROM quotes q
		LEFT JOIN quote_lines l ON l.quote_id = q.id
		WHERE ($1::bigint IS NULL OR q.account_id = $1)
		GROUP BY q.id
		ORDER BY q.created_at DESC, q.id DESC
		LIMIT $2 OFFSET $3`,
		accountParam, limit, params.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query quotes: %w", err)
	}
	defer rows.Close()

	var quotes []Quote
	for rows.Next() {
		var q Quote
		if err := rows.Scan(&q.ID, &q.AccountID, &q.PricebookID, &q.Status, &q.CreatedAt, &q.TotalCents); err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		quotes = append(quotes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quotes: %w", err)
	}
	return quotes, nil
}

// GetIdempotency returns the record for a key, or ErrKeyNotFound.
func (r *PGRepository) GetIdempotency(ctx context.Context, key string) (*IdempotencyRecord, error) {
	var rec IdempotencyRecord
	err := r.pool.QueryRow(ctx,
		`SELECT key, fingerprint, quote_id, created_at FROM idempotency_keys WHERE key = $1`,
		key,
	).Scan(&rec.Key, &rec.Fingerprint, &rec.QuoteID, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to get idempotency key: %w", err)
	}
	return &rec, nil
}

// SetPDFKey records the storage key of a generated quote PDF.
func (r *PGRepository) SetPDFKey(ctx context.Context, quoteID int64, fileKey string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE quotes SET pdf_file_key = $2 WHERE id = $1`,
		quoteID, fileKey,
	)
	if err != nil {
		return fmt.Errorf("failed to set pdf key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrQuoteNotFound
	}
	return nil
}

// GetPDFKey returns the storage key of the quote's PDF, ErrPDFNotReady when
// none has been generated yet, or ErrQuoteNotFound.
func (r *PGRepository) GetPDFKey(ctx context.Context, quoteID int64) (string, error) {
	var fileKey *string
	err := r.pool.QueryRow(ctx,
		`SELECT pdf_file_key FROM quotes WHERE id = $1`,
		quoteID,
	).Scan(&fileKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrQuoteNotFound
		}
		return "", fmt.Errorf("failed to get pdf key: %w", err)
	}
	if fileKey == nil || *fileKey == "" {
		return "", ErrPDFNotReady
	}
	return *fileKey, nil
}

// Compile-time check that PGRepository implements Repository
var _ Repository = (*PGRepository)(nil)
