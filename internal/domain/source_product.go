package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SourceProduct — вхождение канонического товара на конкретном маркетплейсе.
// Уникален по (Source, ProductID, ExternalID).
type SourceProduct struct {
	ID            int64
	Source        Source
	ProductID     int64
	ExternalID    string
	Price         decimal.Decimal
	OriginalPrice decimal.NullDecimal
	Enabled       bool
	UpdatedAt     time.Time
}

// PriceHistoryEntry — неизменяемая запись цены предложения на момент времени.
type PriceHistoryEntry struct {
	ID         int64
	ProductID  int64
	Source     Source
	ExternalID string
	Price      decimal.Decimal
	CreatedAt  time.Time
}
