// Package repository provides data access for quotes and idempotency keys.
package repository

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrQuoteNotFound is returned when a quote does not exist.
	ErrQuoteNotFound = errors.New("quote not found")
	// ErrKeyNotFound is returned when an idempotency key has no record.
	ErrKeyNotFound = errors.New("idempotency key not found")
	// ErrIdempotencyRace is returned when the idempotency insert loses a
	// concurrent race for the same key. The caller re-reads the committed
	// record and resolves to replay or conflict.
	ErrIdempotencyRace = errors.New("idempotency key inserted concurrently")
	// ErrPDFNotReady is returned when a quote exists but has no stored PDF.
	ErrPDFNotReady = errors.New("quote pdf not generated")
)

// QuoteLine is a stored, fully priced quote line.
type QuoteLine struct {
	ID             int64
	QuoteID        int64
	SKUID          int64
	SKUCode        string
	SKUName        string
	Qty            int
	UnitPriceCents int64
	DiscountPct    float64
	TermMonths     *int
	IndentLevel    int
	LineTotalCents int64
	SortOrder      int
}

// Quote is a stored quote. TotalCents and Currency are derived at read time.
type Quote struct {
	ID          int64
	AccountID   int64
	PricebookID int64
	Status      string
	PDFFileKey  *string
	CreatedAt   time.Time
	Lines       []QuoteLine
	TotalCents  int64
	Currency    string
}

// IdempotencyRecord links an idempotency key to the quote it created.
type IdempotencyRecord struct {
	Key         string
	Fingerprint string
	QuoteID     int64
	CreatedAt   time.Time
}

// CreateParams holds everything inserted in the quote-creation transaction.
// IdempotencyKey may be empty, in which case no key record is written.
type CreateParams struct {
	AccountID      int64
	PricebookID    int64
	Lines          []QuoteLine
	IdempotencyKey string
	Fingerprint    string
}

// ListParams filters the quote listing. Newest quotes come first.
type ListParams struct {
	AccountID *int64
	Limit     int
	Offset    int
}

// Repository defines quote persistence operations.
type Repository interface {
	// Create inserts the quote, its lines, and the optional idempotency
	// record in one transaction. Returns ErrIdempotencyRace when the key
	// was claimed by a concurrent transaction.
	Create(ctx context.Context, params CreateParams) (int64, error)
	GetByID(ctx context.Context, id int64) (*Quote, error)
	List(ctx context.Context, params ListParams) ([]Quote, error)
	// GetIdempotency returns the record for a key, or ErrKeyNotFound.
	GetIdempotency(ctx context.Context, key string) (*IdempotencyRecord, error)
	SetPDFKey(ctx context.Context, quoteID int64, fileKey string) error
	GetPDFKey(ctx context.Context, quoteID int64) (string, error)
}
