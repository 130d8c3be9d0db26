package converter

import (
	"testing"

	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestProductConverterNormalizesTitle(t *testing.T) {
	m := ProductConverter{}.ToModel(&domain.Product{Title: "  Redmi   Note 13 PRO ", LowestPrice: decimal.NewFromInt(1)})
	assert.Equal(t, "redmi note 13 pro", m.NormalizedTitle)
	assert.NotNil(t, m.Images, "images column is NOT NULL")
}

func TestExchangeRateToEntityTrimsPadding(t *testing.T) {
	rate := ExchangeRateToEntity(&ExchangeRateModel{Currency: "USD", Rate: decimal.RequireFromString("0.0125")})
	assert.Equal(t, domain.CurrencyUSD, rate.Currency)
}
