package usecase

import (
	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/shopspring/decimal"
)

// PriceConflict — две карточки с одним external_id и разными ценами.
type PriceConflict struct {
	ExternalID string
	Kept       decimal.Decimal
	Dropped    decimal.Decimal
}

// Deduplicator схлопывает карточки по external_id, оставляя первую.
// Разница цен больше epsilon считается конфликтом.
type Deduplicator struct {
	epsilon decimal.Decimal
	seen    map[string]decimal.Decimal
}

func NewDeduplicator(epsilon decimal.Decimal) *Deduplicator {
	return &Deduplicator{
		epsilon: epsilon,
		seen:    make(map[string]decimal.Decimal),
	}
}

// Add возвращает карточки, которых ещё не было.
func (d *Deduplicator) Add(products []domain.LocalProduct) ([]domain.LocalProduct, []PriceConflict) {
	var (
		fresh     []domain.LocalProduct
		conflicts []PriceConflict
	)
	for _, p := range products {
		kept, ok := d.seen[p.ExternalID]
		if !ok {
			d.seen[p.ExternalID] = p.Price
			fresh = append(fresh, p)
			continue
		}
		if kept.Sub(p.Price).Abs().GreaterThan(d.epsilon) {
			conflicts = append(conflicts, PriceConflict{ExternalID: p.ExternalID, Kept: kept, Dropped: p.Price})
		}
	}
	return fresh, conflicts
}
