package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency — ISO 4217 код валюты.
type Currency string

const (
	CurrencyRUB Currency = "RUB"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// ExchangeRate хранит курс валюты относительно базовой: 1 Base = Rate Currency.
type ExchangeRate struct {
	Currency  Currency
	Rate      decimal.Decimal
	UpdatedAt time.Time
}
