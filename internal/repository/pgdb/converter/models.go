package converter

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductModel представляет запись таблицы product в PostgreSQL.
type ProductModel struct {
	ID              int64           `db:"id"`
	Title           string          `db:"title"`
	NormalizedTitle string          `db:"normalized_title"`
	CategoryID      int64           `db:"category_id"`
	LowestPrice     decimal.Decimal `db:"lowest_price"`
	HighestPrice    decimal.Decimal `db:"highest_price"`
	Enabled         bool            `db:"enabled"`
	Description     string          `db:"description"`
	Images          []string        `db:"images"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       *time.Time      `db:"updated_at"`
}

// CategoryModel представляет запись таблицы category в PostgreSQL.
type CategoryModel struct {
	ID        int64     `db:"id"`
	Slug      string    `db:"slug"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

// SourceProductModel представляет запись таблицы source_product в PostgreSQL.
type SourceProductModel struct {
	ID            int64               `db:"id"`
	SourceID      int16               `db:"source_id"`
	ProductID     int64               `db:"product_id"`
	ExternalID    string              `db:"external_id"`
	Price         decimal.Decimal     `db:"price"`
	OriginalPrice decimal.NullDecimal `db:"original_price"`
	Enabled       bool                `db:"enabled"`
	UpdatedAt     time.Time           `db:"updated_at"`
}

// PriceHistoryModel представляет запись таблицы source_product_price_history в PostgreSQL.
type PriceHistoryModel struct {
	ID         int64           `db:"id"`
	ProductID  int64           `db:"product_id"`
	SourceID   int16           `db:"source_id"`
	ExternalID string          `db:"external_id"`
	Price      decimal.Decimal `db:"price"`
	CreatedAt  time.Time       `db:"created_at"`
}

// ExchangeRateModel представляет запись таблицы exchange_rate в PostgreSQL.
type ExchangeRateModel struct {
	Currency  string          `db:"currency"`
	Rate      decimal.Decimal `db:"rate"`
	UpdatedAt time.Time       `db:"updated_at"`
}
