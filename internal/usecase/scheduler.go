package usecase

import (
	"context"

	"github.com/DRSN-tech/market-crawler/internal/crawler"
	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/DRSN-tech/market-crawler/pkg/e"
	"github.com/DRSN-tech/market-crawler/pkg/logger"
)

// SchedulerUseCase ставит периодические задания в начало конвейера.
type SchedulerUseCase struct {
	crawlers []crawler.Crawler
	queue    JobQueue
	logger   logger.Logger
}

func NewSchedulerUC(crawlers []crawler.Crawler, queue JobQueue, logger logger.Logger) *SchedulerUseCase {
	return &SchedulerUseCase{
		crawlers: crawlers,
		queue:    queue,
		logger:   logger,
	}
}

// ScheduleCrawl ставит по CategoryJob на каждую категорию каждого включённого источника.
func (s *SchedulerUseCase) ScheduleCrawl(ctx context.Context) error {
	const op = "SchedulerUseCase.ScheduleCrawl"

	jobs := 0
	for _, cr := range s.crawlers {
		for _, category := range cr.Categories() {
			if err := s.queue.EnqueueCategory(ctx, domain.CategoryJob{Source: cr.Source(), Category: category}); err != nil {
				return e.Wrap(op, err)
			}
			jobs++
		}
	}

	s.logger.Infof("scheduled %d category jobs", jobs)
	return nil
}

func (s *SchedulerUseCase) ScheduleExchangeRates(ctx context.Context) error {
	if err := s.queue.EnqueueExchangeRate(ctx); err != nil {
		return e.Wrap("SchedulerUseCase.ScheduleExchangeRates", err)
	}
	return nil
}
