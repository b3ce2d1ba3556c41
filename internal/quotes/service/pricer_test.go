package service

import (
	"context"
	"testing"

	catalogrepo "salesquote_backend/internal/catalog/repository"
	"salesquote_backend/internal/quotes/transport"
	"salesquote_backend/platform/apperr"
)

type priceKey struct {
	skuID       int64
	pricebookID int64
}

type fakeCatalog struct {
	accounts   map[int64]catalogrepo.Account
	pricebooks map[int64]catalogrepo.Pricebook
	defaultPB  int64
	skus       map[int64]catalogrepo.SKU
	children   map[int64][]catalogrepo.SKU
	prices     map[priceKey]int64
}

func (f *fakeCatalog) GetAccount(ctx context.Context, id int64) (*catalogrepo.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, apperr.NotFound("account not found")
	}
	return &a, nil
}

func (f *fakeCatalog) ListAccounts(ctx context.Context) ([]catalogrepo.Account, error) {
	return nil, nil
}

func (f *fakeCatalog) GetPricebook(ctx context.Context, id int64) (*catalogrepo.Pricebook, error) {
	p, ok := f.pricebooks[id]
	if !ok {
		return nil, apperr.NotFound("pricebook not found")
	}
	return &p, nil
}

func (f *fakeCatalog) ListPricebooks(ctx context.Context) ([]catalogrepo.Pricebook, error) {
	return nil, nil
}

func (f *fakeCatalog) DefaultPricebook(ctx context.Context) (*catalogrepo.Pricebook, error) {
	return f.GetPricebook(ctx, f.defaultPB)
}

func (f *fakeCatalog) GetSKU(ctx context.Context, id int64) (*catalogrepo.SKU, error) {
	s, ok := f.skus[id]
	if !ok {
		return nil, catalogrepo.ErrSKUNotFound
	}
	return &s, nil
}

func (f *fakeCatalog) ListSKUs(ctx context.Context, params catalogrepo.ListSKUsParams) ([]catalogrepo.SKU, error) {
	return nil, nil
}

func (f *fakeCatalog) ListChildren(ctx context.Context, parentID int64) ([]catalogrepo.SKU, error) {
	return f.children[parentID], nil
}

func (f *fakeCatalog) ResolvePrice(ctx context.Context, skuID, pricebookID int64) (int64, error) {
	if _, ok := f.skus[skuID]; !ok {
		return 0, catalogrepo.ErrSKUNotFound
	}
	price, ok := f.prices[priceKey{skuID, pricebookID}]
	if !ok {
		return 0, catalogrepo.ErrSKUNotPriced
	}
	return price, nil
}

func newTestCatalog() *fakeCatalog {
	return &fakeCatalog{
		accounts: map[int64]catalogrepo.Account{
			1: {ID: 1, Name: "Acme Corp"},
		},
		pricebooks: map[int64]catalogrepo.Pricebook{
			1: {ID: 1, Name: "Standard", Currency: "USD", IsDefault: true},
		},
		defaultPB: 1,
		skus: map[int64]catalogrepo.SKU{
			7: {ID: 7, Code: "WIDGET", Name: "Widget"},
		},
		children: map[int64][]catalogrepo.SKU{},
		prices: map[priceKey]int64{
			{7, 1}: 1000,
		},
	}
}

func validationDetails(t *testing.T, err error) []transport.LineError {
	t.Helper()
	if err == nil {
		t.Fatal("expected a validation error")
	}
	domainErr, ok := err.(*apperr.Error)
	if !ok {
		t.Fatalf("expected *apperr.Error, got %T: %v", err, err)
	}
	if domainErr.Kind != apperr.KindValidation {
		t.Fatalf("expected validation kind, got %v", domainErr.Kind)
	}
	details, ok := domainErr.Details.([]transport.LineError)
	if !ok {
		t.Fatalf("expected []transport.LineError details, got %T", domainErr.Details)
	}
	return details
}

func TestPriceSingleLine(t *testing.T) {
	pricer := NewPricer(newTestCatalog())

	pb := int64(1)
	priced, err := pricer.Price(context.Background(), PriceRequest{
		AccountID:   1,
		PricebookID: &pb,
		Lines:       []LineInput{{SKUID: 7, Qty: 10}},
	})
	if err != nil {
		t.Fatalf("Price failed: %v", err)
	}
	if len(priced.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(priced.Lines))
	}
	if priced.Lines[0].LineTotalCents != 10000 {
		t.Errorf("expected line total 10000, got %d", priced.Lines[0].LineTotalCents)
	}
	if priced.TotalCents != 10000 {
		t.Errorf("expected total 10000, got %d", priced.TotalCents)
	}
	if priced.Currency != "USD" {
		t.Errorf("expected currency USD, got %s", priced.Currency)
	}
}

func TestPriceDefaultPricebook(t *testing.T) {
	pricer := NewPricer(newTestCatalog())

	priced, err := pricer.Price(context.Background(), PriceRequest{
		AccountID: 1,
		Lines:     []LineInput{{SKUID: 7, Qty: 1}},
	})
	if err != nil {
		t.Fatalf("Price failed: %v", err)
	}
	if priced.PricebookID != 1 {
		t.Errorf("expected default pricebook 1, got %d", priced.PricebookID)
	}
}

func TestPriceDiscountAndTerm(t *testing.T) {
	catalog := newTestCatalog()
	term := 12
	catalog.skus[8] = catalogrepo.SKU{ID: 8, Code: "SUB", Name: "Subscription", TermMonths: &term}
	catalog.prices[priceKey{8, 1}] = 9999

	pricer := NewPricer(catalog)
	discount := 0.15
	priced, err := pricer.Price(context.Background(), PriceRequest{
		AccountID: 1,
		Lines:     []LineInput{{SKUID: 8, Qty: 2, DiscountPct: &discount}},
	})
	if err != nil {
		t.Fatalf("Price failed: %v", err)
	}
	// 2 * 9999 * 0.85 * 12 = 203979.6, rounds to 203980
	if priced.Lines[0].LineTotalCents != 203980 {
		t.Errorf("expected line total 203980, got %d", priced.Lines[0].LineTotalCents)
	}
	if priced.Lines[0].TermMonths == nil || *priced.Lines[0].TermMonths != 12 {
		t.Error("expected term months carried on line")
	}
}

func TestPriceCollectsAllViolations(t *testing.T) {
	pricer := NewPricer(newTestCatalog())

	badDiscount := 1.5
	_, err := pricer.Price(context.Background(), PriceRequest{
		AccountID: 1,
		Lines: []LineInput{
			{SKUID: 7, Qty: 0},
			{SKUID: 7, Qty: 1, DiscountPct: &badDiscount},
			{SKUID: 999, Qty: 1},
		},
	})

	details := validationDetails(t, err)
	if len(details) != 3 {
		t.Fatalf("expected 3 line errors, got %d: %+v", len(details), details)
	}
	fields := map[string]bool{}
	for _, d := range details {
		fields[d.Field] = true
		if d.LineIndex == nil {
			t.Errorf("expected line index on %s error", d.Field)
		}
	}
	for _, want := range []string{"qty", "discount_pct", "sku_id"} {
		if !fields[want] {
			t.Errorf("missing error for field %s", want)
		}
	}
}

func TestPriceUnknownAccountAndPricebook(t *testing.T) {
	pricer := NewPricer(newTestCatalog())

	pb := int64(99)
	_, err := pricer.Price(context.Background(), PriceRequest{
		AccountID:   42,
		PricebookID: &pb,
		Lines:       []LineInput{{SKUID: 7, Qty: 1}},
	})

	details := validationDetails(t, err)
	if len(details) != 2 {
		t.Fatalf("expected 2 errors, got %d: %+v", len(details), details)
	}
	for _, d := range details {
		if d.LineIndex != nil {
			t.Errorf("request-level error %s should have no line index", d.Field)
		}
	}
}

func TestPriceBundleExpansion(t *testing.T) {
	catalog := newTestCatalog()
	parent := int64(10)
	catalog.skus[10] = catalogrepo.SKU{ID: 10, Code: "BUNDLE", Name: "Starter Bundle", IsBundle: true}
	catalog.skus[11] = catalogrepo.SKU{ID: 11, Code: "CHILD-A", Name: "Child A", ParentSKUID: &parent}
	catalog.skus[12] = catalogrepo.SKU{ID: 12, Code: "CHILD-B", Name: "Child B", ParentSKUID: &parent}
	catalog.children[10] = []catalogrepo.SKU{catalog.skus[11], catalog.skus[12]}
	catalog.prices[priceKey{10, 1}] = 5000
	catalog.prices[priceKey{11, 1}] = 200
	catalog.prices[priceKey{12, 1}] = 300

	pricer := NewPricer(catalog)
	discount := 0.1
	priced, err := pricer.Price(context.Background(), PriceRequest{
		AccountID: 1,
		Lines:     []LineInput{{SKUID: 10, Qty: 3, DiscountPct: &discount}},
	})
	if err != nil {
		t.Fatalf("Price failed: %v", err)
	}
	if len(priced.Lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(priced.Lines))
	}

	parentLine := priced.Lines[0]
	if parentLine.IndentLevel != 0 {
		t.Errorf("expected parent indent 0, got %d", parentLine.IndentLevel)
	}
	// 3 * 5000 * 0.9 = 13500
	if parentLine.LineTotalCents != 13500 {
		t.Errorf("expected parent total 13500, got %d", parentLine.LineTotalCents)
	}

	for i, childLine := range priced.Lines[1:] {
		if childLine.IndentLevel != 1 {
			t.Errorf("child %d: expected indent 1, got %d", i, childLine.IndentLevel)
		}
		if childLine.Qty != 3 {
			t.Errorf("child %d: expected qty 3, got %d", i, childLine.Qty)
		}
		if childLine.DiscountPct != 0 {
			t.Errorf("child %d: discount must not be inherited", i)
		}
	}
	if priced.Lines[1].SKUCode != "CHILD-A" || priced.Lines[2].SKUCode != "CHILD-B" {
		t.Error("expected children in catalog order")
	}
}

func TestPriceUnpricedBundleChildBlamesParentLine(t *testing.T) {
	catalog := newTestCatalog()
	parent := int64(10)
	catalog.skus[10] = catalogrepo.SKU{ID: 10, Code: "BUNDLE", Name: "Starter Bundle", IsBundle: true}
	catalog.skus[11] = catalogrepo.SKU{ID: 11, Code: "CHILD-A", Name: "Child A", ParentSKUID: &parent}
	catalog.children[10] = []catalogrepo.SKU{catalog.skus[11]}
	catalog.prices[priceKey{10, 1}] = 5000
	// child 11 deliberately unpriced

	pricer := NewPricer(catalog)
	_, err := pricer.Price(context.Background(), PriceRequest{
		AccountID: 1,
		Lines: []LineInput{
			{SKUID: 7, Qty: 1},
			{SKUID: 10, Qty: 1},
		},
	})

	details := validationDetails(t, err)
	if len(details) != 1 {
		t.Fatalf("expected 1 error, got %d: %+v", len(details), details)
	}
	if details[0].LineIndex == nil || *details[0].LineIndex != 1 {
		t.Errorf("expected error attributed to line 1, got %+v", details[0].LineIndex)
	}
	if details[0].SKUID != 11 {
		t.Errorf("expected offending sku 11, got %d", details[0].SKUID)
	}
}

var _ catalogrepo.Repository = (*fakeCatalog)(nil)
