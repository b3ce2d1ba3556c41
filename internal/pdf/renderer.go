package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"salesquote_backend/internal/quotes/repository"
)

// quoteTemplate is the HTML document Gotenberg renders. Bundle children are
// indented under their parent; subscription lines show the monthly rate and
// term separately from the extended total.
var quoteTemplate = template.Must(template.New("quote").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { font-family: Helvetica, Arial, sans-serif; font-size: 12px; color: #1a1a1a; margin: 40px; }
  h1 { font-size: 20px; margin-bottom: 0; }
  .meta { color: #555; margin-bottom: 24px; }
  table { width: 100%; border-collapse: collapse; }
  th { text-align: left; border-bottom: 2px solid #1a1a1a; padding: 6px 8px; }
  td { border-bottom: 1px solid #ddd; padding: 6px 8px; vertical-align: top; }
  .num { text-align: right; white-space: nowrap; }
  .child { color: #555; }
  .total td { border-bottom: none; border-top: 2px solid #1a1a1a; font-weight: bold; }
</style>
</head>
<body>
<h1>Quote #{{.QuoteID}}</h1>
<div class="meta">
  {{.AccountName}} &middot; {{.PricebookName}} ({{.Currency}}) &middot; {{.CreatedAt}}
</div>
<table>
<tr><th>Item</th><th class="num">Qty</th><th class="num">Unit Price</th><th class="num">Discount</th><th class="num">Total</th></tr>
{{range .Lines}}
<tr{{if .IsChild}} class="child"{{end}}>
  <td style="padding-left: {{.PadPx}}px">{{.Code}} &mdash; {{.Name}}{{if .Term}} ({{.Rate}} &times; {{.Term}} mo){{end}}</td>
  <td class="num">{{.Qty}}</td>
  <td class="num">{{.Unit}}</td>
  <td class="num">{{.Discount}}</td>
  <td class="num">{{.Total}}</td>
</tr>
{{end}}
<tr class="total"><td colspan="4">Total</td><td class="num">{{.Total}}</td></tr>
</table>
</body>
</html>`))

type documentLine struct {
	Code     string
	Name     string
	Qty      int
	Unit     string
	Rate     string
	Discount string
	Term     int
	Total    string
	IsChild  bool
	PadPx    int
}

type documentData struct {
	QuoteID       int64
	AccountName   string
	PricebookName string
	Currency      string
	CreatedAt     string
	Lines         []documentLine
	Total         string
}

// RenderHTML produces the quote document HTML.
func RenderHTML(quote *repository.Quote, accountName, pricebookName string) ([]byte, error) {
	data := documentData{
		QuoteID:       quote.ID,
		AccountName:   accountName,
		PricebookName: pricebookName,
		Currency:      quote.Currency,
		CreatedAt:     quote.CreatedAt.Format(time.DateOnly),
		Total:         formatCents(quote.TotalCents),
	}
	for _, l := range quote.Lines {
		line := documentLine{
			Code:     l.SKUCode,
			Name:     l.SKUName,
			Qty:      l.Qty,
			Unit:     formatCents(l.UnitPriceCents),
			Rate:     formatCents(l.UnitPriceCents),
			Discount: formatDiscount(l.DiscountPct),
			Total:    formatCents(l.LineTotalCents),
			IsChild:  l.IndentLevel > 0,
			PadPx:    8 + l.IndentLevel*20,
		}
		if l.TermMonths != nil {
			line.Term = *l.TermMonths
		}
		data.Lines = append(data.Lines, line)
	}

	var buf bytes.Buffer
	if err := quoteTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render quote template: %w", err)
	}
	return buf.Bytes(), nil
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func formatDiscount(pct float64) string {
	if pct == 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", pct*100)
}
