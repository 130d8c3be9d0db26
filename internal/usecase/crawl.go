package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/DRSN-tech/market-crawler/internal/crawler"
	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/DRSN-tech/market-crawler/pkg/e"
	"github.com/DRSN-tech/market-crawler/pkg/logger"
	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// PriceConverter переводит цену маркетплейса в базовую валюту.
type PriceConverter interface {
	ToBase(ctx context.Context, currency domain.Currency, amount decimal.Decimal) (decimal.Decimal, error)
}

// Параметры обхода категории.
type CrawlOptions struct {
	PageWindow         int             // сколько страниц скачивается одновременно
	MaxPages           int             // предел страниц на один шаблон
	PersistConcurrency int             // параллельность сохранения пачки
	DedupEpsilon       decimal.Decimal // допуск при сравнении цен дубликатов
}

// CrawlUseCase обходит листинги категорий и сохраняет карточки.
type CrawlUseCase struct {
	crawlers   CrawlerRegistry
	fetcher    PageFetcher
	queue      JobQueue
	reconciler *Reconciler
	categories CategoryRepository
	converter  PriceConverter
	reporter   Reporter
	logger     logger.Logger
	opts       CrawlOptions
}

func NewCrawlUC(
	crawlers CrawlerRegistry,
	fetcher PageFetcher,
	queue JobQueue,
	reconciler *Reconciler,
	categories CategoryRepository,
	converter PriceConverter,
	reporter Reporter,
	logger logger.Logger,
	opts CrawlOptions,
) *CrawlUseCase {
	opts.PageWindow = max(opts.PageWindow, 1)
	opts.PersistConcurrency = max(opts.PersistConcurrency, 1)
	if opts.MaxPages <= 0 {
		opts.MaxPages = 1000
	}
	return &CrawlUseCase{
		crawlers:   crawlers,
		fetcher:    fetcher,
		queue:      queue,
		reconciler: reconciler,
		categories: categories,
		converter:  converter,
		reporter:   reporter,
		logger:     logger,
		opts:       opts,
	}
}

type pageResult struct {
	url string
	doc *goquery.Document
	err error
}

// CrawlCategory обходит все шаблоны страниц категории окнами по PageWindow страниц.
// Обход шаблона останавливается на странице без новых карточек. Если в окне не
// скачалась ни одна страница, сайт считается недоступным. Отдельная упавшая
// страница успешного окна переставляется в очередь страниц.
func (c *CrawlUseCase) CrawlCategory(ctx context.Context, job domain.CategoryJob) error {
	const op = "CrawlUseCase.CrawlCategory"

	cr, err := c.crawlers.Get(job.Source)
	if err != nil {
		return e.Wrap(op, err)
	}

	templates, err := cr.PageURLs(job.Category)
	if err != nil {
		return e.Wrap(op, err)
	}

	category, err := c.categories.Ensure(ctx, domain.NewCategory(job.Category, job.Category))
	if err != nil {
		return e.Wrap(op, err)
	}

	dedup := NewDeduplicator(c.opts.DedupEpsilon)
	for _, tpl := range templates {
		if err := c.crawlTemplate(ctx, cr, category, tpl, dedup); err != nil {
			return e.Wrap(op, err)
		}
	}

	return nil
}

func (c *CrawlUseCase) crawlTemplate(ctx context.Context, cr crawler.Crawler, category *domain.Category, tpl string, dedup *Deduplicator) error {
	for start := 1; start <= c.opts.MaxPages; start += c.opts.PageWindow {
		size := min(c.opts.PageWindow, c.opts.MaxPages-start+1)
		results := c.fetchWindow(ctx, cr, tpl, start, size)

		var (
			batch    []domain.LocalProduct
			failed   []string
			failures int
			done     bool
		)
		for _, r := range results {
			if r.err != nil {
				failures++
				failed = append(failed, r.url)
				c.report(domain.LevelWarning, domain.AnomalyFetchFailed, r.err.Error(), map[string]any{
					"source": cr.Source().String(), "url": r.url,
				})
				continue
			}

			fresh := c.extract(cr, r, dedup)
			if len(fresh) == 0 {
				done = true
				break
			}
			batch = append(batch, fresh...)
		}

		if failures == len(results) {
			c.report(domain.LevelError, domain.AnomalySiteUnavailable, "every page of the window failed", map[string]any{
				"source": cr.Source().String(), "template": tpl, "from_page": start,
			})
			return fmt.Errorf("%w: %s from page %d", e.ErrSiteUnavailable, cr.Source(), start)
		}

		for _, url := range failed {
			if err := c.queue.EnqueuePage(ctx, domain.PageJob{URL: url, Source: cr.Source(), Category: category.Slug}); err != nil {
				return err
			}
		}

		if err := c.persist(ctx, cr, category.ID, batch); err != nil {
			return err
		}

		if done {
			return nil
		}
	}

	c.logger.Warnf("%s: page limit %d reached for %s", cr.Source(), c.opts.MaxPages, tpl)
	return nil
}

// fetchWindow скачивает size страниц начиная со start одновременно,
// результаты возвращаются в порядке номеров страниц.
func (c *CrawlUseCase) fetchWindow(ctx context.Context, cr crawler.Crawler, tpl string, start, size int) []pageResult {
	results := make([]pageResult, size)

	var wg sync.WaitGroup
	for i := range size {
		wg.Add(1)
		go func() {
			defer wg.Done()
			url := crawler.PageURL(tpl, start+i)
			doc, err := c.fetcher.Fetch(ctx, cr.Source(), url)
			results[i] = pageResult{url: url, doc: doc, err: err}
		}()
	}
	wg.Wait()

	return results
}

// extract возвращает ещё не встречавшиеся карточки страницы.
func (c *CrawlUseCase) extract(cr crawler.Crawler, r pageResult, dedup *Deduplicator) []domain.LocalProduct {
	products, err := cr.ExtractListing(r.doc)
	if err != nil {
		c.report(domain.LevelWarning, domain.AnomalyCardSkipped, err.Error(), map[string]any{
			"source": cr.Source().String(), "url": r.url,
		})
	}

	fresh, conflicts := dedup.Add(products)
	for _, conflict := range conflicts {
		c.report(domain.LevelWarning, domain.AnomalyPriceConflict, "duplicate listing with a different price", map[string]any{
			"source":      cr.Source().String(),
			"external_id": conflict.ExternalID,
			"kept":        conflict.Kept.String(),
			"dropped":     conflict.Dropped.String(),
		})
	}
	return fresh
}

// CrawlPage обрабатывает одну отложенную страницу листинга.
func (c *CrawlUseCase) CrawlPage(ctx context.Context, job domain.PageJob) error {
	const op = "CrawlUseCase.CrawlPage"

	cr, err := c.crawlers.Get(job.Source)
	if err != nil {
		return e.Wrap(op, err)
	}

	category, err := c.categories.Ensure(ctx, domain.NewCategory(job.Category, job.Category))
	if err != nil {
		return e.Wrap(op, err)
	}

	doc, err := c.fetcher.Fetch(ctx, job.Source, job.URL)
	if err != nil {
		return e.Wrap(op, err)
	}

	fresh := c.extract(cr, pageResult{url: job.URL, doc: doc}, NewDeduplicator(c.opts.DedupEpsilon))
	if err := c.persist(ctx, cr, category.ID, fresh); err != nil {
		return e.Wrap(op, err)
	}
	return nil
}

// persist сохраняет пачку с ограниченной параллельностью, чтобы не занять весь пул соединений.
// Для товаров без описания или фото ставится задание на разбор страницы товара.
func (c *CrawlUseCase) persist(ctx context.Context, cr crawler.Crawler, categoryID int64, batch []domain.LocalProduct) error {
	if len(batch) == 0 {
		return nil
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.PersistConcurrency)
	for _, lp := range batch {
		g.Go(func() error {
			if err := c.persistOne(gctx, cr, categoryID, lp); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", lp.ExternalID, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

func (c *CrawlUseCase) persistOne(ctx context.Context, cr crawler.Crawler, categoryID int64, lp domain.LocalProduct) error {
	price, err := c.converter.ToBase(ctx, cr.Currency(), lp.Price)
	if err != nil {
		return err
	}

	res, err := c.reconciler.Persist(ctx, cr.Source(), categoryID, lp, price)
	if err != nil {
		return err
	}

	if !res.NeedsDetails {
		return nil
	}
	return c.queue.EnqueueDetails(ctx, domain.DetailsJob{
		ExternalID: lp.ExternalID,
		Source:     cr.Source(),
		ProductID:  res.Product.ID,
	})
}

func (c *CrawlUseCase) report(level domain.Level, kind, message string, fields map[string]any) {
	c.reporter.Report(domain.Anomaly{Level: level, Kind: kind, Message: message, Fields: fields})
}
