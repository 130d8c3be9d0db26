package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/DRSN-tech/market-crawler/pkg/e"
	"github.com/DRSN-tech/market-crawler/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingTpl = "https://shop.test/smartphones?page={page}"

type crawlFixture struct {
	fetcher  *pageFetcher
	queue    *memQueue
	products *memProducts
	reporter *recReporter
	uc       *CrawlUseCase
}

func newCrawlFixture(pages map[string]string, errs map[string]error, window int) *crawlFixture {
	f := &crawlFixture{
		fetcher:  &pageFetcher{pages: pages, errs: errs},
		queue:    &memQueue{},
		products: newMemProducts(),
		reporter: &recReporter{},
	}
	log := logger.NewNop()
	rates := NewExchangeRateUC(staticRates{}, newMemRates(), newMemRateCache(), domain.CurrencyRUB, nil, log)
	reconciler := NewReconciler(f.products, newMemSourceProducts(), &memHistory{}, log)
	f.uc = NewCrawlUC(
		stubRegistry(&stubCrawler{templates: []string{listingTpl}}),
		f.fetcher, f.queue, reconciler, newMemCategories(), rates, f.reporter, log,
		CrawlOptions{PageWindow: window, MaxPages: 20, PersistConcurrency: 2, DedupEpsilon: decimal.RequireFromString("0.01")},
	)
	return f
}

func page(n string) string {
	return strings.ReplaceAll(listingTpl, "{page}", n)
}

func TestCrawlCategoryStopsOnRepeatedPage(t *testing.T) {
	// Сайт отдаёт первую страницу вместо несуществующей третьей.
	first := card("1", "Phone One", "100") + card("2", "Phone Two", "200")
	f := newCrawlFixture(map[string]string{
		page("1"): first,
		page("2"): card("3", "Phone Three", "300"),
		page("3"): first,
		page("4"): first,
	}, nil, 2)

	err := f.uc.CrawlCategory(context.Background(), domain.CategoryJob{Source: domain.SourceMishop, Category: "smartphones"})
	require.NoError(t, err)

	assert.Len(t, f.products.byID, 3)
	assert.Len(t, f.queue.details, 3)
	assert.Empty(t, f.queue.pages)
	assert.NotContains(t, f.fetcher.calls, page("5"))
}

func TestCrawlCategoryStopsOnEmptyPage(t *testing.T) {
	f := newCrawlFixture(map[string]string{
		page("1"): card("1", "Phone One", "100"),
		page("2"): "<html><body>Ничего не найдено</body></html>",
	}, nil, 1)

	err := f.uc.CrawlCategory(context.Background(), domain.CategoryJob{Source: domain.SourceMishop, Category: "smartphones"})
	require.NoError(t, err)
	assert.Len(t, f.products.byID, 1)
	assert.NotContains(t, f.fetcher.calls, page("3"))
}

func TestCrawlCategoryRequeuesFailedPage(t *testing.T) {
	f := newCrawlFixture(map[string]string{
		page("1"): card("1", "Phone One", "100"),
		page("3"): "",
	}, map[string]error{
		page("2"): e.ErrUnexpectedStatus,
	}, 2)

	err := f.uc.CrawlCategory(context.Background(), domain.CategoryJob{Source: domain.SourceMishop, Category: "smartphones"})
	require.NoError(t, err)

	require.Len(t, f.queue.pages, 1)
	assert.Equal(t, domain.PageJob{URL: page("2"), Source: domain.SourceMishop, Category: "smartphones"}, f.queue.pages[0])
	assert.Contains(t, f.reporter.kinds(), domain.AnomalyFetchFailed)
}

func TestCrawlCategorySiteUnavailable(t *testing.T) {
	f := newCrawlFixture(nil, map[string]error{
		page("1"): errors.New("connection refused"),
		page("2"): errors.New("connection refused"),
	}, 2)

	err := f.uc.CrawlCategory(context.Background(), domain.CategoryJob{Source: domain.SourceMishop, Category: "smartphones"})
	require.ErrorIs(t, err, e.ErrSiteUnavailable)
	assert.Contains(t, f.reporter.kinds(), domain.AnomalySiteUnavailable)
	assert.Empty(t, f.products.byID)
}

func TestCrawlCategoryReportsPriceConflict(t *testing.T) {
	f := newCrawlFixture(map[string]string{
		page("1"): card("1", "Phone One", "100") + card("1", "Phone One", "120"),
		page("2"): "",
	}, nil, 1)

	err := f.uc.CrawlCategory(context.Background(), domain.CategoryJob{Source: domain.SourceMishop, Category: "smartphones"})
	require.NoError(t, err)
	assert.Contains(t, f.reporter.kinds(), domain.AnomalyPriceConflict)

	p, err := f.products.GetByTitle(context.Background(), "phone one")
	require.NoError(t, err)
	assert.True(t, p.LowestPrice.Equal(decimal.NewFromInt(100)))
	assert.True(t, p.HighestPrice.Equal(decimal.NewFromInt(100)))
}

func TestCrawlCategoryUnknownCategory(t *testing.T) {
	f := newCrawlFixture(nil, nil, 1)
	err := f.uc.CrawlCategory(context.Background(), domain.CategoryJob{Source: domain.SourceMishop, Category: "laptops"})
	require.ErrorIs(t, err, e.ErrNotFound)

	err = f.uc.CrawlCategory(context.Background(), domain.CategoryJob{Source: domain.SourcePitergsm, Category: "smartphones"})
	require.ErrorIs(t, err, e.ErrUnknownSource)
}

func TestCrawlPage(t *testing.T) {
	f := newCrawlFixture(map[string]string{
		page("7"): card("70", "Phone Seventy", "700"),
	}, nil, 1)

	err := f.uc.CrawlPage(context.Background(), domain.PageJob{URL: page("7"), Source: domain.SourceMishop, Category: "smartphones"})
	require.NoError(t, err)
	assert.Len(t, f.products.byID, 1)
	require.Len(t, f.queue.details, 1)
	assert.Equal(t, "70", f.queue.details[0].ExternalID)
}
