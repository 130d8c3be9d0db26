package usecase

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/DRSN-tech/market-crawler/internal/characteristic"
	"github.com/DRSN-tech/market-crawler/internal/crawler"
	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/DRSN-tech/market-crawler/pkg/e"
	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

type memProducts struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*domain.Product
}

func newMemProducts() *memProducts {
	return &memProducts{byID: make(map[int64]*domain.Product)}
}

func (m *memProducts) GetByTitle(_ context.Context, normalizedTitle string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if domain.NormalizeTitle(p.Title) == normalizedTitle {
			cp := *p
			return &cp, nil
		}
	}
	return nil, e.ErrNotFound
}

func (m *memProducts) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, e.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProducts) Create(_ context.Context, product *domain.Product) (*domain.Product, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if domain.NormalizeTitle(p.Title) == domain.NormalizeTitle(product.Title) {
			cp := *p
			return &cp, false, nil
		}
	}
	m.nextID++
	cp := *product
	cp.ID = m.nextID
	m.byID[cp.ID] = &cp
	out := cp
	return &out, true, nil
}

func (m *memProducts) SetEnabled(_ context.Context, id int64, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[id].Enabled = enabled
	return nil
}

func (m *memProducts) WidenPriceRange(_ context.Context, id int64, price decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.byID[id]
	if p.LowestPrice.IsZero() || price.LessThan(p.LowestPrice) {
		p.LowestPrice = price
	}
	p.HighestPrice = decimal.Max(p.HighestPrice, price)
	return nil
}

func (m *memProducts) UpdateDetails(_ context.Context, id int64, description string, images []string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return e.ErrNotFound
	}
	p.Description = description
	p.Images = slices.Clone(images)
	p.Enabled = enabled
	return nil
}

func (m *memProducts) get(id int64) domain.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.byID[id]
}

type memSourceProducts struct {
	mu   sync.Mutex
	rows map[string]domain.SourceProduct
}

func newMemSourceProducts() *memSourceProducts {
	return &memSourceProducts{rows: make(map[string]domain.SourceProduct)}
}

func (m *memSourceProducts) Upsert(_ context.Context, sp *domain.SourceProduct) (*domain.SourceProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := fmt.Sprintf("%d/%d/%s", sp.Source, sp.ProductID, sp.ExternalID)
	cp := *sp
	if old, ok := m.rows[key]; ok {
		cp.ID = old.ID
	} else {
		cp.ID = int64(len(m.rows) + 1)
	}
	m.rows[key] = cp
	return &cp, nil
}

type memHistory struct {
	mu      sync.Mutex
	entries []domain.PriceHistoryEntry
}

func (m *memHistory) Latest(_ context.Context, productID int64, source domain.Source, externalID string) (*domain.PriceHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.entries) - 1; i >= 0; i-- {
		en := m.entries[i]
		if en.ProductID == productID && en.Source == source && en.ExternalID == externalID {
			return &en, nil
		}
	}
	return nil, e.ErrNotFound
}

func (m *memHistory) Append(_ context.Context, entry *domain.PriceHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memHistory) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

type memCharacteristics struct {
	mu       sync.Mutex
	interned map[string]int64
	values   map[int64]map[characteristic.ID][]int64
}

func newMemCharacteristics() *memCharacteristics {
	return &memCharacteristics{
		interned: make(map[string]int64),
		values:   make(map[int64]map[characteristic.ID][]int64),
	}
}

func (m *memCharacteristics) Sync(context.Context, []characteristic.Definition) error { return nil }

func (m *memCharacteristics) Intern(_ context.Context, v characteristic.Value) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := fmt.Sprintf("%d/%s", v.CharacteristicID(), v.Key())
	if id, ok := m.interned[key]; ok {
		return id, nil
	}
	id := int64(len(m.interned) + 1)
	m.interned[key] = id
	return id, nil
}

func (m *memCharacteristics) ReplaceProductValues(_ context.Context, productID int64, values map[characteristic.ID][]int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values[productID] == nil {
		m.values[productID] = make(map[characteristic.ID][]int64)
	}
	for id, ids := range values {
		m.values[productID][id] = slices.Clone(ids)
	}
	return nil
}

type memCategories struct {
	mu     sync.Mutex
	bySlug map[string]*domain.Category
}

func newMemCategories() *memCategories {
	return &memCategories{bySlug: make(map[string]*domain.Category)}
}

func (m *memCategories) Ensure(_ context.Context, c *domain.Category) (*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if got, ok := m.bySlug[c.Slug]; ok {
		return got, nil
	}
	cp := *c
	cp.ID = int64(len(m.bySlug) + 1)
	m.bySlug[c.Slug] = &cp
	return &cp, nil
}

type memQueue struct {
	mu         sync.Mutex
	categories []domain.CategoryJob
	pages      []domain.PageJob
	details    []domain.DetailsJob
	images     []domain.ImageJob
	rates      int
}

func (q *memQueue) EnqueueCategory(_ context.Context, job domain.CategoryJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.categories = append(q.categories, job)
	return nil
}

func (q *memQueue) EnqueuePage(_ context.Context, job domain.PageJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pages = append(q.pages, job)
	return nil
}

func (q *memQueue) EnqueueDetails(_ context.Context, job domain.DetailsJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.details = append(q.details, job)
	return nil
}

func (q *memQueue) EnqueueImage(_ context.Context, job domain.ImageJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.images = append(q.images, job)
	return nil
}

func (q *memQueue) EnqueueExchangeRate(context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rates++
	return nil
}

type directTx struct{}

func (directTx) Do(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type recReporter struct {
	mu        sync.Mutex
	anomalies []domain.Anomaly
}

func (r *recReporter) Report(a domain.Anomaly) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.anomalies = append(r.anomalies, a)
}

func (r *recReporter) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.anomalies))
	for _, a := range r.anomalies {
		out = append(out, a.Kind)
	}
	return out
}

// pageFetcher отдаёт заранее заданную разметку по адресу.
type pageFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	calls []string
}

func (f *pageFetcher) Fetch(_ context.Context, _ domain.Source, url string) (*goquery.Document, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()

	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	html, ok := f.pages[url]
	if !ok {
		return nil, e.ErrNotFound
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

type memImages struct {
	mu      sync.Mutex
	stored  map[string][]byte
	cleaned []string
}

func newMemImages() *memImages {
	return &memImages{stored: make(map[string][]byte)}
}

func (m *memImages) Missing(_ context.Context, keys []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, k := range keys {
		if _, ok := m.stored[k]; !ok {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *memImages) Store(_ context.Context, key string, data []byte, contentType string) error {
	if !strings.HasPrefix(contentType, "image/") {
		return e.ErrUnsupportedMediaType
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stored[key] = data
	return nil
}

func (m *memImages) CleanupImages(keys []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleaned = append(m.cleaned, keys...)
}

// stubCrawler разбирает упрощённую разметку:
// <div class="card" data-id=".." data-title=".." data-price=".."></div>.
type stubCrawler struct {
	templates []string
	detail    *domain.AdditionalInfo
}

func (c *stubCrawler) Source() domain.Source     { return domain.SourceMishop }
func (c *stubCrawler) Currency() domain.Currency { return domain.CurrencyRUB }
func (c *stubCrawler) Categories() []string      { return []string{"smartphones"} }

func (c *stubCrawler) PageURLs(category string) ([]string, error) {
	if category != "smartphones" {
		return nil, e.ErrNotFound
	}
	return c.templates, nil
}

func (c *stubCrawler) ExtractListing(doc *goquery.Document) ([]domain.LocalProduct, error) {
	var out []domain.LocalProduct
	doc.Find(".card").Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("data-id")
		title, _ := s.Attr("data-title")
		price, _ := s.Attr("data-price")
		out = append(out, domain.LocalProduct{
			ExternalID: id,
			Title:      title,
			Price:      decimal.RequireFromString(price),
			Available:  true,
		})
	})
	return out, nil
}

func (c *stubCrawler) ExtractDetail(doc *goquery.Document, _ string) (*domain.AdditionalInfo, error) {
	if doc.Find(".product").Length() == 0 {
		return nil, e.ErrNodeNotFound
	}
	return c.detail, nil
}

func (c *stubCrawler) DetailURL(externalID string) string {
	return "https://shop.test/product/" + externalID
}

func stubRegistry(c *stubCrawler) crawler.Registry {
	return crawler.Registry{domain.SourceMishop: c}
}

func card(id, title, price string) string {
	return fmt.Sprintf(`<div class="card" data-id="%s" data-title="%s" data-price="%s"></div>`, id, title, price)
}

type memRates struct {
	mu    sync.Mutex
	rates map[domain.Currency]domain.ExchangeRate
}

func newMemRates() *memRates {
	return &memRates{rates: make(map[domain.Currency]domain.ExchangeRate)}
}

func (m *memRates) Upsert(_ context.Context, rates []domain.ExchangeRate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rates {
		m.rates[r.Currency] = r
	}
	return nil
}

func (m *memRates) Get(_ context.Context, currency domain.Currency) (*domain.ExchangeRate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rates[currency]
	if !ok {
		return nil, e.ErrNotFound
	}
	return &r, nil
}

type memRateCache struct {
	memRates
	invalidated []domain.Currency
}

func newMemRateCache() *memRateCache {
	return &memRateCache{memRates: memRates{rates: make(map[domain.Currency]domain.ExchangeRate)}}
}

func (m *memRateCache) Set(ctx context.Context, rate *domain.ExchangeRate) error {
	return m.Upsert(ctx, []domain.ExchangeRate{*rate})
}

func (m *memRateCache) Invalidate(_ context.Context, currencies []domain.Currency) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range currencies {
		delete(m.rates, c)
	}
	m.invalidated = append(m.invalidated, currencies...)
	return nil
}

type staticRates map[domain.Currency]decimal.Decimal

func (s staticRates) Fetch(context.Context, domain.Currency, []domain.Currency) (map[domain.Currency]decimal.Decimal, error) {
	return s, nil
}
