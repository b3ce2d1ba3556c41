package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"salesquote_backend/internal/events"
	"salesquote_backend/internal/quotes/repository"
	"salesquote_backend/platform/apperr"
	"salesquote_backend/platform/logger"
)

type fakeQuoteRepo struct {
	mu     sync.Mutex
	nextID int64
	quotes map[int64]repository.Quote
	keys   map[string]repository.IdempotencyRecord

	// raceWinner simulates a concurrent transaction claiming the key
	// between the read and the insert of the next Create call.
	raceWinner *repository.IdempotencyRecord
}

func newFakeQuoteRepo() *fakeQuoteRepo {
	return &fakeQuoteRepo{
		quotes: map[int64]repository.Quote{},
		keys:   map[string]repository.IdempotencyRecord{},
	}
}

func (f *fakeQuoteRepo) Create(ctx context.Context, params repository.CreateParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.raceWinner != nil {
		winner := *f.raceWinner
		f.raceWinner = nil
		f.keys[winner.Key] = winner
		return 0, repository.ErrIdempotencyRace
	}
	if params.IdempotencyKey != "" {
		if _, exists := f.keys[params.IdempotencyKey]; exists {
			return 0, repository.ErrIdempotencyRace
		}
	}

	f.nextID++
	id := f.nextID
	quote := repository.Quote{
		ID:          id,
		AccountID:   params.AccountID,
		PricebookID: params.PricebookID,
		Status:      "draft",
		CreatedAt:   time.Now(),
		Lines:       params.Lines,
		Currency:    "USD",
	}
	for _, l := range params.Lines {
		quote.TotalCents += l.LineTotalCents
	}
	f.quotes[id] = quote
	if params.IdempotencyKey != "" {
		f.keys[params.IdempotencyKey] = repository.IdempotencyRecord{
			Key:         params.IdempotencyKey,
			Fingerprint: params.Fingerprint,
			QuoteID:     id,
		}
	}
	return id, nil
}

func (f *fakeQuoteRepo) GetByID(ctx context.Context, id int64) (*repository.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.quotes[id]
	if !ok {
		return nil, repository.ErrQuoteNotFound
	}
	return &q, nil
}

func (f *fakeQuoteRepo) List(ctx context.Context, params repository.ListParams) ([]repository.Quote, error) {
	return nil, nil
}

func (f *fakeQuoteRepo) GetIdempotency(ctx context.Context, key string) (*repository.IdempotencyRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.keys[key]
	if !ok {
		return nil, repository.ErrKeyNotFound
	}
	return &rec, nil
}

func (f *fakeQuoteRepo) SetPDFKey(ctx context.Context, quoteID int64, fileKey string) error {
	return nil
}

func (f *fakeQuoteRepo) GetPDFKey(ctx context.Context, quoteID int64) (string, error) {
	return "", repository.ErrPDFNotReady
}

func (f *fakeQuoteRepo) quoteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.quotes)
}

type fakeBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *fakeBus) Publish(ctx context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *fakeBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *fakeBus) Subscribe(eventName string, handler events.Handler) {}

func (b *fakeBus) published() []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]events.Event(nil), b.events...)
}

func newTestService(repo repository.Repository, bus events.Bus) *Service {
	pricer := NewPricer(newTestCatalog())
	return New(repo, pricer, bus, nil, logger.New("development"))
}

func demoRequest() CreateRequest {
	return CreateRequest{
		AccountID:      1,
		IdempotencyKey: "Q-DEMO",
		Lines:          []LineInput{{SKUID: 7, Qty: 10}},
		Source:         "api",
	}
}

func TestCreateQuoteFreshThenReplay(t *testing.T) {
	repo := newFakeQuoteRepo()
	bus := &fakeBus{}
	svc := newTestService(repo, bus)

	first, err := svc.CreateQuote(context.Background(), demoRequest())
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if first.Replayed {
		t.Error("first create must be fresh")
	}

	quote, err := svc.GetQuote(context.Background(), first.QuoteID)
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if quote.TotalCents != 10000 {
		t.Errorf("expected total 10000, got %d", quote.TotalCents)
	}
	if quote.Status != "draft" {
		t.Errorf("expected draft status, got %s", quote.Status)
	}

	second, err := svc.CreateQuote(context.Background(), demoRequest())
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if !second.Replayed {
		t.Error("second create must be a replay")
	}
	if second.QuoteID != first.QuoteID {
		t.Errorf("replay returned quote %d, want %d", second.QuoteID, first.QuoteID)
	}
	if repo.quoteCount() != 1 {
		t.Errorf("expected 1 stored quote, got %d", repo.quoteCount())
	}
	if len(bus.published()) != 1 {
		t.Errorf("expected 1 published event, got %d", len(bus.published()))
	}
}

func TestCreateQuoteConflictOnDifferentPayload(t *testing.T) {
	repo := newFakeQuoteRepo()
	svc := newTestService(repo, &fakeBus{})

	if _, err := svc.CreateQuote(context.Background(), demoRequest()); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	altered := demoRequest()
	altered.Lines[0].Qty = 99
	_, err := svc.CreateQuote(context.Background(), altered)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if repo.quoteCount() != 1 {
		t.Errorf("conflict must not create a quote, have %d", repo.quoteCount())
	}
}

func TestCreateQuoteWithoutKeyAlwaysCreates(t *testing.T) {
	repo := newFakeQuoteRepo()
	svc := newTestService(repo, &fakeBus{})

	req := demoRequest()
	req.IdempotencyKey = ""

	first, err := svc.CreateQuote(context.Background(), req)
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	second, err := svc.CreateQuote(context.Background(), req)
	if err != nil {
		t.Fatalf("second create failed: %v", err)
	}
	if first.QuoteID == second.QuoteID {
		t.Error("keyless creates must produce distinct quotes")
	}
	if repo.quoteCount() != 2 {
		t.Errorf("expected 2 quotes, got %d", repo.quoteCount())
	}
}

func TestCreateQuoteLostRaceResolvesAsReplay(t *testing.T) {
	repo := newFakeQuoteRepo()
	svc := newTestService(repo, &fakeBus{})

	req := demoRequest()
	winnerQuote := repository.Quote{ID: 77, AccountID: 1, PricebookID: 1, Status: "draft", Currency: "USD"}
	repo.quotes[77] = winnerQuote
	repo.raceWinner = &repository.IdempotencyRecord{
		Key:         req.IdempotencyKey,
		Fingerprint: Fingerprint(req),
		QuoteID:     77,
	}

	result, err := svc.CreateQuote(context.Background(), req)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !result.Replayed {
		t.Error("lost race with matching fingerprint must replay")
	}
	if result.QuoteID != 77 {
		t.Errorf("expected winner quote 77, got %d", result.QuoteID)
	}
}

func TestCreateQuoteLostRaceWithDifferentPayloadConflicts(t *testing.T) {
	repo := newFakeQuoteRepo()
	svc := newTestService(repo, &fakeBus{})

	req := demoRequest()
	other := demoRequest()
	other.Lines[0].Qty = 3
	repo.quotes[77] = repository.Quote{ID: 77, AccountID: 1, PricebookID: 1, Status: "draft", Currency: "USD"}
	repo.raceWinner = &repository.IdempotencyRecord{
		Key:         req.IdempotencyKey,
		Fingerprint: Fingerprint(other),
		QuoteID:     77,
	}

	_, err := svc.CreateQuote(context.Background(), req)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestFingerprintIsOrderSensitive(t *testing.T) {
	a := CreateRequest{AccountID: 1, Lines: []LineInput{{SKUID: 1, Qty: 1}, {SKUID: 2, Qty: 1}}}
	b := CreateRequest{AccountID: 1, Lines: []LineInput{{SKUID: 2, Qty: 1}, {SKUID: 1, Qty: 1}}}
	if Fingerprint(a) == Fingerprint(b) {
		t.Error("line order must affect the fingerprint")
	}
	if Fingerprint(a) != Fingerprint(a) {
		t.Error("fingerprint must be deterministic")
	}
}

var _ repository.Repository = (*fakeQuoteRepo)(nil)
