package converter

import (
	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/shopspring/decimal"
)

// ExchangeRateConverter переводит курс между доменной моделью и JSON-моделью кэша.
// Курс хранится строкой, чтобы не терять точность.
type ExchangeRateConverter struct{}

func (ExchangeRateConverter) ToRedisModel(rate *domain.ExchangeRate) *ExchangeRateRedisModel {
	return &ExchangeRateRedisModel{
		Currency:  string(rate.Currency),
		Rate:      rate.Rate.String(),
		UpdatedAt: rate.UpdatedAt,
	}
}

func (ExchangeRateConverter) ToDomain(model *ExchangeRateRedisModel) (*domain.ExchangeRate, error) {
	rate, err := decimal.NewFromString(model.Rate)
	if err != nil {
		return nil, err
	}
	return &domain.ExchangeRate{
		Currency:  domain.Currency(model.Currency),
		Rate:      rate,
		UpdatedAt: model.UpdatedAt,
	}, nil
}
