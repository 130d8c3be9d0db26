package usecase

import (
	"context"
	"testing"

	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/DRSN-tech/market-crawler/pkg/e"
	"github.com/DRSN-tech/market-crawler/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchangeRateRefresh(t *testing.T) {
	repo := newMemRates()
	cache := newMemRateCache()
	require.NoError(t, cache.Set(context.Background(), &domain.ExchangeRate{Currency: domain.CurrencyUSD, Rate: decimal.NewFromInt(1)}))

	src := staticRates{
		domain.CurrencyUSD: decimal.RequireFromString("0.0125"),
		domain.CurrencyEUR: decimal.Zero,
	}
	uc := NewExchangeRateUC(src, repo, cache, domain.CurrencyRUB, []domain.Currency{domain.CurrencyUSD, domain.CurrencyEUR}, logger.NewNop())

	require.NoError(t, uc.Refresh(context.Background()))

	assert.Len(t, repo.rates, 1, "non-positive rate is skipped")
	assert.Equal(t, []domain.Currency{domain.CurrencyUSD}, cache.invalidated)

	_, err := cache.Get(context.Background(), domain.CurrencyUSD)
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestExchangeRateRefreshEmpty(t *testing.T) {
	uc := NewExchangeRateUC(staticRates{}, newMemRates(), newMemRateCache(), domain.CurrencyRUB, nil, logger.NewNop())
	require.ErrorIs(t, uc.Refresh(context.Background()), e.ErrEmptyRates)
}

func TestToBase(t *testing.T) {
	ctx := context.Background()
	repo := newMemRates()
	cache := newMemRateCache()
	require.NoError(t, repo.Upsert(ctx, []domain.ExchangeRate{{Currency: domain.CurrencyUSD, Rate: decimal.RequireFromString("0.0125")}}))
	uc := NewExchangeRateUC(staticRates{}, repo, cache, domain.CurrencyRUB, nil, logger.NewNop())

	got, err := uc.ToBase(ctx, domain.CurrencyRUB, decimal.RequireFromString("999.99"))
	require.NoError(t, err)
	assert.Equal(t, "999.99", got.String())

	got, err = uc.ToBase(ctx, domain.CurrencyUSD, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.Equal(t, "800", got.String())

	cached, err := cache.Get(ctx, domain.CurrencyUSD)
	require.NoError(t, err, "rate read from the database is cached")
	assert.Equal(t, "0.0125", cached.Rate.String())

	_, err = uc.ToBase(ctx, domain.CurrencyEUR, decimal.NewFromInt(10))
	require.ErrorIs(t, err, e.ErrUnknownCurrency)
}
