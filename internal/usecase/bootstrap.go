package usecase

import (
	"context"

	"github.com/DRSN-tech/market-crawler/internal/characteristic"
	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/DRSN-tech/market-crawler/pkg/e"
	"github.com/jimlawless/whereami"
)

// Bootstrap проверяет таблицу характеристик и синхронизирует справочники в БД.
// Ошибка здесь означает ошибку развёртывания, воркер не должен стартовать.
func Bootstrap(ctx context.Context, characteristics CharacteristicRepository, sources SourceRepository) error {
	if err := characteristic.Validate(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := characteristics.Sync(ctx, characteristic.Definitions()); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := sources.Sync(ctx, domain.Sources()); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
