package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/DRSN-tech/market-crawler/pkg/e"
	"github.com/DRSN-tech/market-crawler/pkg/logger"
	"github.com/shopspring/decimal"
)

// ExchangeRateUseCase обновляет курсы и переводит цены в базовую валюту.
type ExchangeRateUseCase struct {
	source  RateSource
	repo    ExchangeRateRepository
	cache   ExchangeRateCache
	base    domain.Currency
	symbols []domain.Currency
	logger  logger.Logger
}

func NewExchangeRateUC(
	source RateSource,
	repo ExchangeRateRepository,
	cache ExchangeRateCache,
	base domain.Currency,
	symbols []domain.Currency,
	logger logger.Logger,
) *ExchangeRateUseCase {
	return &ExchangeRateUseCase{
		source:  source,
		repo:    repo,
		cache:   cache,
		base:    base,
		symbols: symbols,
		logger:  logger,
	}
}

// Refresh запрашивает курсы, сохраняет их и сбрасывает кэш.
func (u *ExchangeRateUseCase) Refresh(ctx context.Context) error {
	const op = "ExchangeRateUseCase.Refresh"

	fetched, err := u.source.Fetch(ctx, u.base, u.symbols)
	if err != nil {
		return e.Wrap(op, err)
	}
	if len(fetched) == 0 {
		return e.Wrap(op, e.ErrEmptyRates)
	}

	now := time.Now().UTC()
	rates := make([]domain.ExchangeRate, 0, len(fetched))
	currencies := make([]domain.Currency, 0, len(fetched))
	for currency, rate := range fetched {
		if !rate.IsPositive() {
			u.logger.Warnf("skip non-positive rate %s=%s", currency, rate)
			continue
		}
		rates = append(rates, domain.ExchangeRate{Currency: currency, Rate: rate, UpdatedAt: now})
		currencies = append(currencies, currency)
	}

	if err := u.repo.Upsert(ctx, rates); err != nil {
		return e.Wrap(op, err)
	}

	if err := u.cache.Invalidate(ctx, currencies); err != nil {
		u.logger.Warnf("failed to invalidate exchange rate cache: %v", e.Wrap(op, err))
	}

	u.logger.Infof("exchange rates updated: %d currencies", len(rates))
	return nil
}

// ToBase переводит сумму в базовую валюту. Курс берётся из кэша, затем из БД.
func (u *ExchangeRateUseCase) ToBase(ctx context.Context, currency domain.Currency, amount decimal.Decimal) (decimal.Decimal, error) {
	const op = "ExchangeRateUseCase.ToBase"

	if currency == u.base || currency == "" {
		return amount, nil
	}

	rate, err := u.rate(ctx, currency)
	if err != nil {
		return decimal.Zero, e.Wrap(op, err)
	}

	return amount.Div(rate.Rate).Round(2), nil
}

func (u *ExchangeRateUseCase) rate(ctx context.Context, currency domain.Currency) (*domain.ExchangeRate, error) {
	rate, err := u.cache.Get(ctx, currency)
	if err == nil {
		return rate, nil
	}
	if !errors.Is(err, e.ErrNotFound) {
		u.logger.Warnf("exchange rate cache unavailable: %v", err)
	}

	rate, err = u.repo.Get(ctx, currency)
	if errors.Is(err, e.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", e.ErrUnknownCurrency, currency)
	}
	if err != nil {
		return nil, err
	}

	if err := u.cache.Set(ctx, rate); err != nil {
		u.logger.Warnf("failed to cache exchange rate %s: %v", currency, err)
	}
	return rate, nil
}
