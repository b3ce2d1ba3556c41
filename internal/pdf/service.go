package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"

	catalogrepo "salesquote_backend/internal/catalog/repository"
	quotesrepo "salesquote_backend/internal/quotes/repository"
	"salesquote_backend/platform/logger"
)

// HTMLConverter renders an HTML document to PDF bytes.
type HTMLConverter interface {
	ConvertHTML(ctx context.Context, html []byte) ([]byte, error)
}

// Uploader stores an object and returns its key.
type Uploader interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error)
}

// Service renders quote PDFs and stores them in object storage.
type Service struct {
	quotes    quotesrepo.Repository
	catalog   catalogrepo.Repository
	converter HTMLConverter
	uploader  Uploader
	log       *logger.Logger
}

// NewService creates the PDF service.
func NewService(
	quotes quotesrepo.Repository,
	catalog catalogrepo.Repository,
	converter HTMLConverter,
	uploader Uploader,
	log *logger.Logger,
) *Service {
	return &Service{
		quotes:    quotes,
		catalog:   catalog,
		converter: converter,
		uploader:  uploader,
		log:       log,
	}
}

// Generate renders the quote document, stores the PDF, and records the file
// key on the quote. Regeneration overwrites the previous object.
func (s *Service) Generate(ctx context.Context, quoteID int64) (string, error) {
	quote, err := s.quotes.GetByID(ctx, quoteID)
	if err != nil {
		return "", fmt.Errorf("failed to load quote %d: %w", quoteID, err)
	}
	account, err := s.catalog.GetAccount(ctx, quote.AccountID)
	if err != nil {
		return "", fmt.Errorf("failed to load account %d: %w", quote.AccountID, err)
	}
	pricebook, err := s.catalog.GetPricebook(ctx, quote.PricebookID)
	if err != nil {
		return "", fmt.Errorf("failed to load pricebook %d: %w", quote.PricebookID, err)
	}

	html, err := RenderHTML(quote, account.Name, pricebook.Name)
	if err != nil {
		return "", err
	}
	pdf, err := s.converter.ConvertHTML(ctx, html)
	if err != nil {
		return "", fmt.Errorf("failed to convert quote %d: %w", quoteID, err)
	}

	fileKey := fmt.Sprintf("quotes/quote-%d.pdf", quoteID)
	if _, err := s.uploader.Upload(ctx, fileKey, bytes.NewReader(pdf), int64(len(pdf)), "application/pdf"); err != nil {
		return "", err
	}
	if err := s.quotes.SetPDFKey(ctx, quoteID, fileKey); err != nil {
		return "", err
	}

	s.log.Info("quote pdf generated",
		"quote_id", quoteID,
		"file_key", fileKey,
		"size_bytes", len(pdf),
	)
	return fileKey, nil
}
