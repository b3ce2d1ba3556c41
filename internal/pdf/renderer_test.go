package pdf

import (
	"strings"
	"testing"
	"time"

	"salesquote_backend/internal/quotes/repository"
)

func TestRenderHTMLQuoteDocument(t *testing.T) {
	term := 12
	quote := &repository.Quote{
		ID:          42,
		AccountID:   1,
		PricebookID: 1,
		Status:      "draft",
		CreatedAt:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Currency:    "USD",
		TotalCents:  203980,
		Lines: []repository.QuoteLine{
			{SKUCode: "BUNDLE", SKUName: "Starter Bundle", Qty: 2, UnitPriceCents: 9999, TermMonths: &term, LineTotalCents: 203980},
			{SKUCode: "CHILD-A", SKUName: "Child A", Qty: 2, UnitPriceCents: 0, IndentLevel: 1, LineTotalCents: 0},
		},
	}

	html, err := RenderHTML(quote, "Acme Corp", "Standard")
	if err != nil {
		t.Fatalf("RenderHTML failed: %v", err)
	}
	doc := string(html)

	for _, want := range []string{
		"Quote #42",
		"Acme Corp",
		"Standard",
		"BUNDLE",
		"12 mo",
		"2039.80",
		`class="child"`,
		"padding-left: 28px",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("rendered document missing %q", want)
		}
	}
}

func TestFormatCents(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{10000, "100.00"},
		{203980, "2039.80"},
		{-150, "-1.50"},
	}
	for _, tc := range cases {
		if got := formatCents(tc.cents); got != tc.want {
			t.Errorf("formatCents(%d) = %s, want %s", tc.cents, got, tc.want)
		}
	}
}
