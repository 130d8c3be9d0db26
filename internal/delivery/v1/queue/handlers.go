package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DRSN-tech/market-crawler/internal/cfg"
	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/DRSN-tech/market-crawler/internal/infrastructure/kafka"
	"github.com/DRSN-tech/market-crawler/pkg/e"
	"github.com/DRSN-tech/market-crawler/pkg/logger"
)

type CrawlUC interface {
	CrawlCategory(ctx context.Context, job domain.CategoryJob) error
	CrawlPage(ctx context.Context, job domain.PageJob) error
}

type DetailsUC interface {
	ParseDetails(ctx context.Context, job domain.DetailsJob) error
}

type ImageUC interface {
	UploadImage(ctx context.Context, job domain.ImageJob) error
}

type ExchangeRateUC interface {
	Refresh(ctx context.Context) error
}

// Handlers разбирает сообщения очередей и передаёт задания в usecase.
// Ошибка разбора оборачивает e.ErrMalformedMessage.
type Handlers struct {
	crawl   CrawlUC
	details DetailsUC
	images  ImageUC
	rates   ExchangeRateUC
	logger  logger.Logger
}

func NewHandlers(crawl CrawlUC, details DetailsUC, images ImageUC, rates ExchangeRateUC, logger logger.Logger) *Handlers {
	return &Handlers{
		crawl:   crawl,
		details: details,
		images:  images,
		rates:   rates,
		logger:  logger,
	}
}

// ForRole возвращает топик и обработчик стадии, которую обслуживает воркер.
func (h *Handlers) ForRole(role cfg.Role, topics cfg.TopicsCfg) (string, kafka.Handler, error) {
	switch role {
	case cfg.RoleCategory:
		return topics.Category, h.CrawlCategory, nil
	case cfg.RolePage:
		return topics.Page, h.CrawlPage, nil
	case cfg.RoleDetails:
		return topics.Details, h.ParseDetails, nil
	case cfg.RoleImage:
		return topics.Image, h.UploadImage, nil
	case cfg.RoleExchangeRate:
		return topics.ExchangeRate, h.RefreshExchangeRates, nil
	}
	return "", nil, fmt.Errorf("%w: role %q", e.ErrUnknownQueue, role)
}

func (h *Handlers) CrawlCategory(ctx context.Context, payload []byte) error {
	var job domain.CategoryJob
	if err := decode(payload, &job); err != nil {
		return err
	}
	if job.Source == 0 || job.Category == "" {
		return malformed("category job without source or category")
	}
	return h.crawl.CrawlCategory(ctx, job)
}

func (h *Handlers) CrawlPage(ctx context.Context, payload []byte) error {
	var job domain.PageJob
	if err := decode(payload, &job); err != nil {
		return err
	}
	if job.Source == 0 || job.URL == "" {
		return malformed("page job without source or url")
	}
	return h.crawl.CrawlPage(ctx, job)
}

func (h *Handlers) ParseDetails(ctx context.Context, payload []byte) error {
	var job domain.DetailsJob
	if err := decode(payload, &job); err != nil {
		return err
	}
	if job.Source == 0 || job.ExternalID == "" || job.ProductID <= 0 {
		return malformed("details job without source, external id or product id")
	}
	return h.details.ParseDetails(ctx, job)
}

func (h *Handlers) UploadImage(ctx context.Context, payload []byte) error {
	var job domain.ImageJob
	if err := decode(payload, &job); err != nil {
		return err
	}
	if job.Source == 0 || job.FilePath == "" || job.ImageURL == "" {
		return malformed("image job without source, file path or url")
	}
	return h.images.UploadImage(ctx, job)
}

// RefreshExchangeRates не читает содержимое: сообщение служит только сигналом.
func (h *Handlers) RefreshExchangeRates(ctx context.Context, _ []byte) error {
	return h.rates.Refresh(ctx)
}

func decode(payload []byte, job any) error {
	if err := json.Unmarshal(payload, job); err != nil {
		return e.Wrap(err.Error(), e.ErrMalformedMessage)
	}
	return nil
}

func malformed(msg string) error {
	return e.Wrap(msg, e.ErrMalformedMessage)
}
