package service

import (
	"context"
	"testing"

	"salesquote_backend/internal/catalog/repository"
)

type fakeCatalogRepo struct {
	repository.Repository
	accounts []repository.Account
}

func (f *fakeCatalogRepo) ListAccounts(ctx context.Context) ([]repository.Account, error) {
	return f.accounts, nil
}

type testDisambiguationConfig struct {
	threshold float64
	margin    float64
}

func (c testDisambiguationConfig) GetConfidenceThreshold() float64 { return c.threshold }
func (c testDisambiguationConfig) GetNearTieMargin() float64       { return c.margin }

func newTestDisambiguator(accounts []repository.Account) *Disambiguator {
	return NewDisambiguator(
		&fakeCatalogRepo{accounts: accounts},
		testDisambiguationConfig{threshold: 0.9, margin: 0.05},
	)
}

func TestFindExactMatchResolvesSingleCandidate(t *testing.T) {
	d := newTestDisambiguator([]repository.Account{
		{ID: 1, Name: "Acme Corp"},
		{ID: 2, Name: "Acme Corporation"},
	})

	result, err := d.Find(context.Background(), "acme corp")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if !result.Resolved {
		t.Fatal("expected exact match to resolve")
	}
	if len(result.Candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(result.Candidates))
	}
	if result.Candidates[0].Account.ID != 1 {
		t.Errorf("expected account 1, got %d", result.Candidates[0].Account.ID)
	}
	if result.Candidates[0].Confidence != 1.0 {
		t.Errorf("expected confidence 1.0, got %v", result.Candidates[0].Confidence)
	}
}

func TestFindPrefixMatchDoesNotAutoResolve(t *testing.T) {
	d := newTestDisambiguator([]repository.Account{
		{ID: 1, Name: "Globex Industries"},
	})

	result, err := d.Find(context.Background(), "globex")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if result.Resolved {
		t.Error("prefix match alone should not resolve")
	}
	top := result.Top()
	if top == nil {
		t.Fatal("expected a candidate")
	}
	if top.Confidence != 0.8 {
		t.Errorf("expected prefix score 0.8, got %v", top.Confidence)
	}
}

func TestFindOrdersCandidatesByConfidence(t *testing.T) {
	d := newTestDisambiguator([]repository.Account{
		{ID: 1, Name: "Northwind Traders"},
		{ID: 2, Name: "North Star Logistics"},
		{ID: 3, Name: "Unrelated LLC"},
	})

	result, err := d.Find(context.Background(), "north")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(result.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(result.Candidates))
	}
	for i := 1; i < len(result.Candidates); i++ {
		if result.Candidates[i].Confidence > result.Candidates[i-1].Confidence {
			t.Errorf("candidates out of order at %d", i)
		}
	}
}

func TestFindNearTieDoesNotResolve(t *testing.T) {
	d := NewDisambiguator(
		&fakeCatalogRepo{accounts: []repository.Account{
			{ID: 1, Name: "Initech Systems"},
			{ID: 2, Name: "Initech Solutions"},
		}},
		testDisambiguationConfig{threshold: 0.7, margin: 0.05},
	)

	result, err := d.Find(context.Background(), "initech")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if result.Resolved {
		t.Error("near-tied candidates should not resolve")
	}
	if len(result.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(result.Candidates))
	}
}

func TestFindDomainBonusIsCappedAndResolves(t *testing.T) {
	d := newTestDisambiguator([]repository.Account{
		{ID: 1, Name: "Stark Industries", Domain: "stark.com"},
	})

	result, err := d.Find(context.Background(), "stark")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	top := result.Top()
	if top == nil {
		t.Fatal("expected a candidate")
	}
	if top.Confidence != 0.9 {
		t.Errorf("expected capped score 0.9, got %v", top.Confidence)
	}
	if !result.Resolved {
		t.Error("prefix match corroborated by domain should resolve")
	}
}

func TestFindEmptyQueryReturnsNothing(t *testing.T) {
	d := newTestDisambiguator([]repository.Account{
		{ID: 1, Name: "Acme Corp"},
	})

	result, err := d.Find(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(result.Candidates) != 0 {
		t.Errorf("expected no candidates, got %d", len(result.Candidates))
	}
	if result.Resolved {
		t.Error("empty query must not resolve")
	}
}
