package agent

import (
	"context"
	"fmt"
	"sync"

	catalogrepo "salesquote_backend/internal/catalog/repository"
	catalogservice "salesquote_backend/internal/catalog/service"
	"salesquote_backend/internal/chat/transport"
	quotesservice "salesquote_backend/internal/quotes/service"
	"salesquote_backend/platform/logger"

	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"
)

// PDFRenderer renders and stores the PDF for a quote, returning its file key.
type PDFRenderer interface {
	Generate(ctx context.Context, quoteID int64) (string, error)
}

// PDFLinker resolves a stored file key to a download URL.
type PDFLinker interface {
	PresignedURL(ctx context.Context, fileKey string) (string, error)
}

// turnTrace collects side effects of tool calls within one turn so the
// session manager can surface them on the stream.
type turnTrace struct {
	mu         sync.Mutex
	quote      *transport.QuoteData
	pdfQuoteID int64
	pdfURL     string
}

func (t *turnTrace) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.quote = nil
	t.pdfQuoteID = 0
	t.pdfURL = ""
}

func (t *turnTrace) recordQuote(q transport.QuoteData) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.quote = &q
}

func (t *turnTrace) recordPDF(quoteID int64, url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pdfQuoteID = quoteID
	t.pdfURL = url
}

func (t *turnTrace) snapshot() (quote *transport.QuoteData, pdfQuoteID int64, pdfURL string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.quote, t.pdfQuoteID, t.pdfURL
}

// ToolDependencies contains the services the tools close over.
type ToolDependencies struct {
	Catalog   *catalogservice.Service
	Quotes    *quotesservice.Service
	PDF       PDFRenderer
	Storage   PDFLinker
	Log       *logger.Logger
	SessionID string
	Trace     *turnTrace
}

type findAccountInput struct {
	Query string `json:"query" jsonschema:"description=The account name or fragment the user mentioned"`
}

type accountCandidate struct {
	AccountID  int64   `json:"account_id"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

type findAccountOutput struct {
	Resolved   bool               `json:"resolved"`
	Candidates []accountCandidate `json:"candidates"`
	Message    string             `json:"message,omitempty"`
}

func createFindAccountTool(deps *ToolDependencies) (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name:        "find_account",
		Description: "Finds customer accounts matching a free-text name. Returns candidates with confidence scores; resolved=true means the top candidate can be used without asking the user.",
	}, func(ctx tool.Context, input findAccountInput) (findAccountOutput, error) {
		result, err := deps.Catalog.FindAccount(context.Background(), input.Query)
		deps.Log.ToolCall(deps.SessionID, "find_account", err)
		if err != nil {
			return findAccountOutput{}, err
		}

		out := findAccountOutput{Resolved: result.Resolved}
		for _, c := range result.Candidates {
			out.Candidates = append(out.Candidates, accountCandidate{
				AccountID:  c.Account.ID,
				Name:       c.Account.Name,
				Confidence: c.Confidence,
			})
		}
		if len(out.Candidates) == 0 {
			out.Message = "No accounts matched. Ask the user to spell the account name."
		}
		return out, nil
	})
}

type listPricebooksOutput struct {
	Pricebooks []pricebookInfo `json:"pricebooks"`
}

type pricebookInfo struct {
	PricebookID int64  `json:"pricebook_id"`
	Name        string `json:"name"`
	Currency    string `json:"currency"`
	IsDefault   bool   `json:"is_default"`
}

func createListPricebooksTool(deps *ToolDependencies) (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name:        "list_pricebooks",
		Description: "Lists all pricebooks, default first. Quotes use the default pricebook unless the user picks another.",
	}, func(ctx tool.Context, input struct{}) (listPricebooksOutput, error) {
		pricebooks, err := deps.Catalog.ListPricebooks(context.Background())
		deps.Log.ToolCall(deps.SessionID, "list_pricebooks", err)
		if err != nil {
			return listPricebooksOutput{}, err
		}

		var out listPricebooksOutput
		for _, p := range pricebooks {
			out.Pricebooks = append(out.Pricebooks, pricebookInfo{
				PricebookID: p.ID,
				Name:        p.Name,
				Currency:    p.Currency,
				IsDefault:   p.IsDefault,
			})
		}
		return out, nil
	})
}

type listSKUsInput struct {
	Query       string `json:"query,omitempty" jsonschema:"description=Optional code or name fragment to filter by"`
	PricebookID int64  `json:"pricebook_id,omitempty" jsonschema:"description=Only return SKUs priced in this pricebook"`
}

type skuInfo struct {
	SKUID      int64  `json:"sku_id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	IsBundle   bool   `json:"is_bundle"`
	TermMonths int    `json:"term_months,omitempty"`
}

type listSKUsOutput struct {
	SKUs []skuInfo `json:"skus"`
}

func createListSKUsTool(deps *ToolDependencies) (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name:        "list_skus",
		Description: "Lists sellable catalog items. Bundles expand automatically when quoted; subscription SKUs carry a term in months.",
	}, func(ctx tool.Context, input listSKUsInput) (listSKUsOutput, error) {
		params := catalogrepo.ListSKUsParams{Query: input.Query, TopLevelOnly: true}
		if input.PricebookID > 0 {
			params.PricebookID = &input.PricebookID
		}
		skus, err := deps.Catalog.ListSKUs(context.Background(), params)
		deps.Log.ToolCall(deps.SessionID, "list_skus", err)
		if err != nil {
			return listSKUsOutput{}, err
		}

		var out listSKUsOutput
		for _, s := range skus {
			info := skuInfo{SKUID: s.ID, Code: s.Code, Name: s.Name, IsBundle: s.IsBundle}
			if s.TermMonths != nil {
				info.TermMonths = *s.TermMonths
			}
			out.SKUs = append(out.SKUs, info)
		}
		return out, nil
	})
}

type createQuoteLineInput struct {
	SKUID       int64   `json:"sku_id"`
	Qty         int     `json:"qty"`
	DiscountPct float64 `json:"discount_pct,omitempty" jsonschema:"description=Fractional discount between 0 and 1"`
}

type createQuoteInput struct {
	AccountID      int64                  `json:"account_id"`
	PricebookID    int64                  `json:"pricebook_id,omitempty"`
	IdempotencyKey string                 `json:"idempotency_key,omitempty" jsonschema:"description=Pass the exact key the user supplied so retries do not duplicate the quote"`
	Lines          []createQuoteLineInput `json:"lines"`
}

type createQuoteOutput struct {
	Success          bool   `json:"success"`
	QuoteID          int64  `json:"quote_id,omitempty"`
	Status           string `json:"status,omitempty"`
	Replayed         bool   `json:"replayed"`
	TotalAmountCents int64  `json:"total_amount_cents,omitempty"`
	Currency         string `json:"currency,omitempty"`
	Error            string `json:"error,omitempty"`
}

func createCreateQuoteTool(deps *ToolDependencies) (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name:        "create_quote",
		Description: "Validates, prices, and creates a draft quote. Returns replayed=true when the idempotency key already created this quote. On validation failure the error lists every offending line.",
	}, func(ctx tool.Context, input createQuoteInput) (createQuoteOutput, error) {
		req := quotesservice.CreateRequest{
			AccountID:      input.AccountID,
			IdempotencyKey: input.IdempotencyKey,
			Source:         "agent",
		}
		if input.PricebookID > 0 {
			req.PricebookID = &input.PricebookID
		}
		for _, l := range input.Lines {
			line := quotesservice.LineInput{SKUID: l.SKUID, Qty: l.Qty}
			if l.DiscountPct != 0 {
				discount := l.DiscountPct
				line.DiscountPct = &discount
			}
			req.Lines = append(req.Lines, line)
		}

		result, err := deps.Quotes.CreateQuote(context.Background(), req)
		deps.Log.ToolCall(deps.SessionID, "create_quote", err)
		if err != nil {
			// Validation and conflict failures go back to the model as
			// data so it can explain them to the user.
			return createQuoteOutput{Success: false, Error: err.Error()}, nil
		}

		quote, err := deps.Quotes.GetQuote(context.Background(), result.QuoteID)
		if err != nil {
			return createQuoteOutput{Success: false, Error: err.Error()}, nil
		}

		data := transport.QuoteData{
			QuoteID:          quote.ID,
			Status:           quote.Status,
			TotalAmountCents: quote.TotalCents,
			Currency:         quote.Currency,
		}
		deps.Trace.recordQuote(data)

		return createQuoteOutput{
			Success:          true,
			QuoteID:          quote.ID,
			Status:           quote.Status,
			Replayed:         result.Replayed,
			TotalAmountCents: quote.TotalCents,
			Currency:         quote.Currency,
		}, nil
	})
}

type getQuoteInput struct {
	QuoteID int64 `json:"quote_id"`
}

type quoteLineInfo struct {
	SKUCode        string `json:"sku_code"`
	SKUName        string `json:"sku_name"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	TermMonths     int    `json:"term_months,omitempty"`
	IndentLevel    int    `json:"indent_level"`
	LineTotalCents int64  `json:"line_total_cents"`
}

type getQuoteOutput struct {
	QuoteID          int64           `json:"quote_id"`
	Status           string          `json:"status"`
	Lines            []quoteLineInfo `json:"lines"`
	TotalAmountCents int64           `json:"total_amount_cents"`
	Currency         string          `json:"currency"`
}

func createGetQuoteTool(deps *ToolDependencies) (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name:        "get_quote",
		Description: "Fetches a quote with its priced lines and total.",
	}, func(ctx tool.Context, input getQuoteInput) (getQuoteOutput, error) {
		quote, err := deps.Quotes.GetQuote(context.Background(), input.QuoteID)
		deps.Log.ToolCall(deps.SessionID, "get_quote", err)
		if err != nil {
			return getQuoteOutput{}, err
		}

		out := getQuoteOutput{
			QuoteID:          quote.ID,
			Status:           quote.Status,
			TotalAmountCents: quote.TotalCents,
			Currency:         quote.Currency,
		}
		for _, l := range quote.Lines {
			info := quoteLineInfo{
				SKUCode:        l.SKUCode,
				SKUName:        l.SKUName,
				Qty:            l.Qty,
				UnitPriceCents: l.UnitPriceCents,
				IndentLevel:    l.IndentLevel,
				LineTotalCents: l.LineTotalCents,
			}
			if l.TermMonths != nil {
				info.TermMonths = *l.TermMonths
			}
			out.Lines = append(out.Lines, info)
		}
		return out, nil
	})
}

type renderQuotePDFInput struct {
	QuoteID int64 `json:"quote_id"`
}

type renderQuotePDFOutput struct {
	Success bool   `json:"success"`
	PDFURL  string `json:"pdf_url,omitempty"`
	Error   string `json:"error,omitempty"`
}

func createRenderQuotePDFTool(deps *ToolDependencies) (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name:        "render_quote_pdf",
		Description: "Renders the quote as a PDF document and returns a download link. Only call this after the quote exists.",
	}, func(ctx tool.Context, input renderQuotePDFInput) (renderQuotePDFOutput, error) {
		if deps.PDF == nil || deps.Storage == nil {
			return renderQuotePDFOutput{Success: false, Error: "PDF generation is not available in this environment"}, nil
		}

		fileKey, err := deps.PDF.Generate(context.Background(), input.QuoteID)
		deps.Log.ToolCall(deps.SessionID, "render_quote_pdf", err)
		if err != nil {
			return renderQuotePDFOutput{Success: false, Error: err.Error()}, nil
		}
		url, err := deps.Storage.PresignedURL(context.Background(), fileKey)
		if err != nil {
			return renderQuotePDFOutput{Success: false, Error: err.Error()}, nil
		}

		deps.Trace.recordPDF(input.QuoteID, url)
		return renderQuotePDFOutput{Success: true, PDFURL: url}, nil
	})
}

// buildTools assembles the closed tool set for one chat session.
func buildTools(deps *ToolDependencies) ([]tool.Tool, error) {
	builders := []func(*ToolDependencies) (tool.Tool, error){
		createFindAccountTool,
		createListPricebooksTool,
		createListSKUsTool,
		createCreateQuoteTool,
		createGetQuoteTool,
		createRenderQuotePDFTool,
	}

	tools := make([]tool.Tool, 0, len(builders))
	for _, build := range builders {
		t, err := build(deps)
		if err != nil {
			return nil, fmt.Errorf("failed to build tool: %w", err)
		}
		tools = append(tools, t)
	}
	return tools, nil
}
