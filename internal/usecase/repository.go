package usecase

import (
	"context"

	"github.com/DRSN-tech/market-crawler/internal/characteristic"
	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/shopspring/decimal"
)

type ProductRepository interface {
	// GetByTitle ищет товар по нормализованному названию, e.ErrNotFound если его нет.
	GetByTitle(ctx context.Context, normalizedTitle string) (*domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	// Create идемпотентен: при конфликте по названию возвращает уже сохранённый
	// товар и created=false.
	Create(ctx context.Context, product *domain.Product) (saved *domain.Product, created bool, err error)
	SetEnabled(ctx context.Context, id int64, enabled bool) error
	// WidenPriceRange атомарно расширяет диапазон цен товара ценой price.
	WidenPriceRange(ctx context.Context, id int64, price decimal.Decimal) error
	UpdateDetails(ctx context.Context, id int64, description string, images []string, enabled bool) error
}

type SourceProductRepository interface {
	Upsert(ctx context.Context, sp *domain.SourceProduct) (*domain.SourceProduct, error)
}

type PriceHistoryRepository interface {
	// Latest возвращает e.ErrNotFound, если истории по ключу ещё нет.
	Latest(ctx context.Context, productID int64, source domain.Source, externalID string) (*domain.PriceHistoryEntry, error)
	Append(ctx context.Context, entry *domain.PriceHistoryEntry) error
}

type CharacteristicRepository interface {
	Sync(ctx context.Context, defs []characteristic.Definition) error
	// Intern возвращает идентификатор значения, добавляя его при отсутствии.
	Intern(ctx context.Context, value characteristic.Value) (int64, error)
	// ReplaceProductValues заменяет набор значений каждой переданной характеристики товара.
	ReplaceProductValues(ctx context.Context, productID int64, values map[characteristic.ID][]int64) error
}

type CategoryRepository interface {
	Ensure(ctx context.Context, category *domain.Category) (*domain.Category, error)
}

type SourceRepository interface {
	Sync(ctx context.Context, sources []domain.Source) error
}

type ExchangeRateRepository interface {
	Upsert(ctx context.Context, rates []domain.ExchangeRate) error
	Get(ctx context.Context, currency domain.Currency) (*domain.ExchangeRate, error)
}

// ExchangeRateCache — короткоживущий кэш курсов. Get возвращает e.ErrNotFound при промахе.
type ExchangeRateCache interface {
	Get(ctx context.Context, currency domain.Currency) (*domain.ExchangeRate, error)
	Set(ctx context.Context, rate *domain.ExchangeRate) error
	Invalidate(ctx context.Context, currencies []domain.Currency) error
}

type ImageRepository interface {
	Exists(ctx context.Context, key string) (bool, error)
	Upload(ctx context.Context, image *domain.Image) (string, error)
	Delete(ctx context.Context, key string) error
}

// TxManager выполняет fn в транзакции, переиспользуя уже открытую в ctx.
type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}
