package usecase

import (
	"context"
	"errors"

	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/DRSN-tech/market-crawler/pkg/e"
	"github.com/DRSN-tech/market-crawler/pkg/logger"
	"github.com/DRSN-tech/market-crawler/pkg/metrics"
	"github.com/shopspring/decimal"
)

// PersistRes — результат сохранения одной карточки листинга.
type PersistRes struct {
	Product      *domain.Product
	Created      bool
	NeedsDetails bool
}

// Reconciler сводит повторяющиеся результаты обхода в каноническое хранилище.
type Reconciler struct {
	products       ProductRepository
	sourceProducts SourceProductRepository
	history        PriceHistoryRepository
	logger         logger.Logger
}

func NewReconciler(
	products ProductRepository,
	sourceProducts SourceProductRepository,
	history PriceHistoryRepository,
	logger logger.Logger,
) *Reconciler {
	return &Reconciler{
		products:       products,
		sourceProducts: sourceProducts,
		history:        history,
		logger:         logger,
	}
}

// Persist сохраняет карточку: находит или создаёт товар, привязывает к нему
// предложение маркетплейса, расширяет диапазон цен и дописывает историю.
// price уже приведена к базовой валюте.
func (r *Reconciler) Persist(ctx context.Context, source domain.Source, categoryID int64, lp domain.LocalProduct, price decimal.Decimal) (*PersistRes, error) {
	const op = "Reconciler.Persist"

	product, created, err := r.createOrAttach(ctx, categoryID, lp, price)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if err := r.linkToProduct(ctx, source, product, lp, price); err != nil {
		return nil, e.Wrap(op, err)
	}

	action := "attached"
	if created {
		action = "created"
	}
	metrics.RecordProduct(source.String(), action)

	return &PersistRes{
		Product:      product,
		Created:      created,
		NeedsDetails: !product.HasDetails(),
	}, nil
}

// createOrAttach ищет товар по нормализованному названию. Новый товар создаётся
// выключенным, обе границы цены равны текущей цене. Существующий выключенный
// товар включается, если карточка в наличии и у товара уже есть описание и фото.
func (r *Reconciler) createOrAttach(ctx context.Context, categoryID int64, lp domain.LocalProduct, price decimal.Decimal) (*domain.Product, bool, error) {
	product, err := r.products.GetByTitle(ctx, domain.NormalizeTitle(lp.Title))
	if errors.Is(err, e.ErrNotFound) {
		p := domain.NewProduct(lp.Title, categoryID, price)
		p.Description = lp.Description
		return r.products.Create(ctx, p)
	}
	if err != nil {
		return nil, false, err
	}

	if lp.Available && !product.Enabled && product.HasDetails() {
		if err := r.products.SetEnabled(ctx, product.ID, true); err != nil {
			return nil, false, err
		}
		product.Enabled = true
	}
	return product, false, nil
}

// linkToProduct обновляет предложение маркетплейса и запускает пересчёт
// диапазона цен и истории.
func (r *Reconciler) linkToProduct(ctx context.Context, source domain.Source, product *domain.Product, lp domain.LocalProduct, price decimal.Decimal) error {
	sp, err := r.sourceProducts.Upsert(ctx, &domain.SourceProduct{
		Source:        source,
		ProductID:     product.ID,
		ExternalID:    lp.ExternalID,
		Price:         price,
		OriginalPrice: lp.OriginalPrice,
		Enabled:       lp.Available,
	})
	if err != nil {
		return err
	}

	if err := r.updatePriceRange(ctx, product, price); err != nil {
		return err
	}

	return r.appendPriceHistory(ctx, sp)
}

// updatePriceRange пишет в БД, только если цена выходит за текущий диапазон.
func (r *Reconciler) updatePriceRange(ctx context.Context, product *domain.Product, price decimal.Decimal) error {
	lowest, highest, changed := widenPriceRange(product.LowestPrice, product.HighestPrice, price)
	if !changed {
		return nil
	}

	if err := r.products.WidenPriceRange(ctx, product.ID, price); err != nil {
		return err
	}
	product.LowestPrice, product.HighestPrice = lowest, highest
	return nil
}

// appendPriceHistory добавляет запись, только если цена отличается от последней по ключу.
func (r *Reconciler) appendPriceHistory(ctx context.Context, sp *domain.SourceProduct) error {
	latest, err := r.history.Latest(ctx, sp.ProductID, sp.Source, sp.ExternalID)
	switch {
	case errors.Is(err, e.ErrNotFound):
	case err != nil:
		return err
	case latest.Price.Equal(sp.Price):
		return nil
	}

	return r.history.Append(ctx, &domain.PriceHistoryEntry{
		ProductID:  sp.ProductID,
		Source:     sp.Source,
		ExternalID: sp.ExternalID,
		Price:      sp.Price,
	})
}

// widenPriceRange возвращает диапазон, расширенный ценой price. Нулевая нижняя
// граница означает, что диапазон ещё не инициализирован. Диапазон никогда не сужается.
func widenPriceRange(lowest, highest, price decimal.Decimal) (decimal.Decimal, decimal.Decimal, bool) {
	changed := false
	if lowest.IsZero() || price.LessThan(lowest) {
		lowest = price
		changed = true
	}
	if price.GreaterThan(highest) {
		highest = price
		changed = true
	}
	if highest.LessThan(lowest) {
		highest = lowest
		changed = true
	}
	return lowest, highest, changed
}
