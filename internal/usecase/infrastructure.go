package usecase

import (
	"context"

	"github.com/DRSN-tech/market-crawler/internal/crawler"
	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

// JobQueue публикует задания стадий конвейера.
type JobQueue interface {
	EnqueueCategory(ctx context.Context, job domain.CategoryJob) error
	EnqueuePage(ctx context.Context, job domain.PageJob) error
	EnqueueDetails(ctx context.Context, job domain.DetailsJob) error
	EnqueueImage(ctx context.Context, job domain.ImageJob) error
	EnqueueExchangeRate(ctx context.Context) error
}

type PageFetcher interface {
	Fetch(ctx context.Context, source domain.Source, url string) (*goquery.Document, error)
}

type ImageDownloader interface {
	Download(ctx context.Context, source domain.Source, url string, limit int64) ([]byte, string, error)
}

type CrawlerRegistry interface {
	Get(source domain.Source) (crawler.Crawler, error)
}

// ImagesInfra управляет объектами изображений товаров.
type ImagesInfra interface {
	// Missing возвращает ключи, которых ещё нет в хранилище.
	Missing(ctx context.Context, keys []string) ([]string, error)
	Store(ctx context.Context, key string, data []byte, contentType string) error
	CleanupImages(keys []string)
}

// RateSource — внешний источник курсов: 1 base = rate currency.
type RateSource interface {
	Fetch(ctx context.Context, base domain.Currency, symbols []domain.Currency) (map[domain.Currency]decimal.Decimal, error)
}

// Reporter принимает аномалии и не блокирует вызывающего.
type Reporter interface {
	Report(a domain.Anomaly)
}
