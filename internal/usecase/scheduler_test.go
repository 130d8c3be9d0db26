package usecase

import (
	"context"
	"testing"

	"github.com/DRSN-tech/market-crawler/internal/crawler"
	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/DRSN-tech/market-crawler/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler(t *testing.T) {
	queue := &memQueue{}
	uc := NewSchedulerUC([]crawler.Crawler{&stubCrawler{}}, queue, logger.NewNop())

	require.NoError(t, uc.ScheduleCrawl(context.Background()))
	require.NoError(t, uc.ScheduleExchangeRates(context.Background()))

	assert.Equal(t, []domain.CategoryJob{{Source: domain.SourceMishop, Category: "smartphones"}}, queue.categories)
	assert.Equal(t, 1, queue.rates)
}

func TestBootstrap(t *testing.T) {
	require.NoError(t, Bootstrap(context.Background(), newMemCharacteristics(), noopSources{}))
}

type noopSources struct{}

func (noopSources) Sync(context.Context, []domain.Source) error { return nil }
