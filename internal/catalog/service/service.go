// Package service contains catalog business logic.
package service

import (
	"context"
	"log/slog"

	"salesquote_backend/internal/catalog/repository"
	"salesquote_backend/platform/logger"
)

// Service provides catalog reads and account resolution.
type Service struct {
	repo          repository.Repository
	disambiguator *Disambiguator
	log           *logger.Logger
}

// New creates a new catalog service.
func New(repo repository.Repository, disambiguator *Disambiguator, log *logger.Logger) *Service {
	return &Service{repo: repo, disambiguator: disambiguator, log: log}
}

// GetAccount retrieves an account by ID.
func (s *Service) GetAccount(ctx context.Context, id int64) (*repository.Account, error) {
	return s.repo.GetAccount(ctx, id)
}

// FindAccount resolves a free-text account reference to scored candidates.
func (s *Service) FindAccount(ctx context.Context, query string) (MatchResult, error) {
	result, err := s.disambiguator.Find(ctx, query)
	if err != nil {
		return MatchResult{}, err
	}
	s.log.Debug("account lookup",
		slog.String("query", query),
		slog.Int("candidates", len(result.Candidates)),
		slog.Bool("resolved", result.Resolved),
	)
	return result, nil
}

// ListPricebooks returns all pricebooks, default first.
func (s *Service) ListPricebooks(ctx context.Context) ([]repository.Pricebook, error) {
	return s.repo.ListPricebooks(ctx)
}

// GetPricebook retrieves a pricebook by ID.
func (s *Service) GetPricebook(ctx context.Context, id int64) (*repository.Pricebook, error) {
	return s.repo.GetPricebook(ctx, id)
}

// DefaultPricebook returns the default pricebook.
func (s *Service) DefaultPricebook(ctx context.Context) (*repository.Pricebook, error) {
	return s.repo.DefaultPricebook(ctx)
}

// ListSKUs returns SKUs matching the filter in catalog order.
func (s *Service) ListSKUs(ctx context.Context, params repository.ListSKUsParams) ([]repository.SKU, error) {
	return s.repo.ListSKUs(ctx, params)
}

// GetSKU retrieves a SKU by ID.
func (s *Service) GetSKU(ctx context.Context, id int64) (*repository.SKU, error) {
	return s.repo.GetSKU(ctx, id)
}
