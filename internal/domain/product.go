package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product описывает канонический товар, объединяющий предложения разных маркетплейсов.
// Инвариант: LowestPrice <= HighestPrice, диапазон только расширяется.
type Product struct {
	ID           int64
	Title        string
	CategoryID   int64
	LowestPrice  decimal.Decimal
	HighestPrice decimal.Decimal
	Enabled      bool
	Description  string
	Images       []string // ключи объектов в хранилище изображений
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

// NewProduct создаёт выключенный товар, у которого обе границы цены равны первой увиденной цене.
func NewProduct(title string, categoryID int64, price decimal.Decimal) *Product {
	return &Product{
		Title:        title,
		CategoryID:   categoryID,
		LowestPrice:  price,
		HighestPrice: price,
	}
}

// HasDetails сообщает, заполнены ли данные, которые приходят только со страницы товара.
func (p *Product) HasDetails() bool {
	return p.Description != "" && len(p.Images) > 0
}

// NormalizeTitle приводит название к ключу поиска канонического товара.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}
