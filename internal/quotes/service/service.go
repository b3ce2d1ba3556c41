package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"salesquote_backend/internal/events"
	"salesquote_backend/internal/quotes/repository"
	"salesquote_backend/platform/apperr"
	"salesquote_backend/platform/logger"

	"golang.org/x/sync/singleflight"
)

// PDFScheduler enqueues background PDF rendering for a quote. Nil when the
// task queue is not configured. Scheduling rides on the QuoteCreated event,
// subscribed in the module wiring.
type PDFScheduler interface {
	SchedulePDFRender(ctx context.Context, quoteID int64) error
}

// PDFStorage resolves a stored PDF file key to a download URL. Nil when
// object storage is not configured.
type PDFStorage interface {
	PresignedURL(ctx context.Context, fileKey string) (string, error)
}

// CreateRequest is the service-level quote creation input.
type CreateRequest struct {
	AccountID      int64
	PricebookID    *int64
	IdempotencyKey string
	Lines          []LineInput
	// Source records who initiated the create, "api" or "agent".
	Source string
}

// CreateResult reports the created or replayed quote.
type CreateResult struct {
	QuoteID  int64
	Replayed bool
}

// Service implements quote construction with idempotent creation.
type Service struct {
	repo    repository.Repository
	pricer  *Pricer
	bus     events.Bus
	storage PDFStorage
	log     *logger.Logger

	// group collapses concurrent creates sharing an idempotency key so
	// only one of them runs the price-and-insert critical section.
	group singleflight.Group
}

// New creates the quote service. storage may be nil.
func New(
	repo repository.Repository,
	pricer *Pricer,
	bus events.Bus,
	storage PDFStorage,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:    repo,
		pricer:  pricer,
		bus:     bus,
		storage: storage,
		log:     log,
	}
}

// CreateQuote validates, prices, and persists a quote. With an idempotency
// key the operation is exactly-once: a repeat of the same payload replays
// the stored quote, a repeat with a different payload is a conflict.
func (s *Service) CreateQuote(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if req.IdempotencyKey == "" {
		return s.createFresh(ctx, req, "")
	}

	fingerprint := Fingerprint(req)
	result, err, _ := s.group.Do(req.IdempotencyKey, func() (interface{}, error) {
		return s.createIdempotent(ctx, req, fingerprint)
	})
	if err != nil {
		return nil, err
	}
	return result.(*CreateResult), nil
}

func (s *Service) createIdempotent(ctx context.Context, req CreateRequest, fingerprint string) (*CreateResult, error) {
	record, err := s.repo.GetIdempotency(ctx, req.IdempotencyKey)
	switch {
	case err == nil:
		return s.resolveExisting(ctx, record, fingerprint)
	case errors.Is(err, repository.ErrKeyNotFound):
		// Fresh key, fall through to create.
	default:
		return nil, err
	}

	result, err := s.createFresh(ctx, req, fingerprint)
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, repository.ErrIdempotencyRace) {
		return nil, err
	}

	// Lost the insert race. The winner's record is committed now.
	record, err = s.repo.GetIdempotency(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve idempotency race: %w", err)
	}
	return s.resolveExisting(ctx, record, fingerprint)
}

func (s *Service) resolveExisting(ctx context.Context, record *repository.IdempotencyRecord, fingerprint string) (*CreateResult, error) {
	if record.Fingerprint != fingerprint {
		s.log.IdempotencyConflict(record.Key)
		return nil, apperr.Conflict("idempotency key was already used with a different payload")
	}
	quote, err := s.repo.GetByID(ctx, record.QuoteID)
	if err != nil {
		return nil, err
	}
	s.log.QuoteCreated(quote.ID, quote.AccountID, quote.TotalCents, true)
	return &CreateResult{QuoteID: record.QuoteID, Replayed: true}, nil
}

func (s *Service) createFresh(ctx context.Context, req CreateRequest, fingerprint string) (*CreateResult, error) {
	priced, err := s.pricer.Price(ctx, PriceRequest{
		AccountID:   req.AccountID,
		PricebookID: req.PricebookID,
		Lines:       req.Lines,
	})
	if err != nil {
		return nil, err
	}

	quoteID, err := s.repo.Create(ctx, repository.CreateParams{
		AccountID:      priced.AccountID,
		PricebookID:    priced.PricebookID,
		Lines:          priced.Lines,
		IdempotencyKey: req.IdempotencyKey,
		Fingerprint:    fingerprint,
	})
	if err != nil {
		return nil, err
	}

	s.log.QuoteCreated(quoteID, priced.AccountID, priced.TotalCents, false)
	s.bus.Publish(ctx, events.QuoteCreated{
		BaseEvent:      events.NewBaseEvent(),
		QuoteID:        quoteID,
		AccountID:      priced.AccountID,
		PricebookID:    priced.PricebookID,
		TotalCents:     priced.TotalCents,
		IdempotencyKey: req.IdempotencyKey,
		Source:         req.Source,
	})
	return &CreateResult{QuoteID: quoteID, Replayed: false}, nil
}

// GetQuote returns a quote with its lines.
func (s *Service) GetQuote(ctx context.Context, id int64) (*repository.Quote, error) {
	quote, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrQuoteNotFound) {
			return nil, apperr.NotFound("quote not found")
		}
		return nil, err
	}
	return quote, nil
}

// ListQuotes returns quote summaries, newest first.
func (s *Service) ListQuotes(ctx context.Context, params repository.ListParams) ([]repository.Quote, error) {
	return s.repo.List(ctx, params)
}

// QuotePDFURL returns a download URL for the quote's generated PDF.
func (s *Service) QuotePDFURL(ctx context.Context, quoteID int64) (string, error) {
	if s.storage == nil {
		return "", apperr.Unavailable("pdf storage is not configured")
	}
	fileKey, err := s.repo.GetPDFKey(ctx, quoteID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrQuoteNotFound):
			return "", apperr.NotFound("quote not found")
		case errors.Is(err, repository.ErrPDFNotReady):
			return "", apperr.NotFound("quote pdf has not been generated yet")
		}
		return "", err
	}
	return s.storage.PresignedURL(ctx, fileKey)
}

// Fingerprint computes the canonical request hash used to detect idempotency
// key reuse with a different payload. Line order is significant.
func Fingerprint(req CreateRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "account=%d;pricebook=", req.AccountID)
	if req.PricebookID != nil {
		fmt.Fprintf(&b, "%d", *req.PricebookID)
	} else {
		b.WriteString("default")
	}
	for _, line := range req.Lines {
		discount := 0.0
		if line.DiscountPct != nil {
			discount = *line.DiscountPct
		}
		fmt.Fprintf(&b, ";sku=%d,qty=%d,discount=%.6f", line.SKUID, line.Qty, discount)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
