package pgdb

import (
	"context"

	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/DRSN-tech/market-crawler/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/market-crawler/pkg/e"
	"github.com/DRSN-tech/market-crawler/pkg/tr"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// SourceProductRepo хранит предложения маркетплейсов.
type SourceProductRepo struct {
	pool *pgxpool.Pool
	conv converter.SourceProductConverter
}

func NewSourceProductRepo(pool *pgxpool.Pool) *SourceProductRepo {
	return &SourceProductRepo{pool: pool}
}

// Upsert создаёт предложение или обновляет цену и наличие существующего.
func (s *SourceProductRepo) Upsert(ctx context.Context, sp *domain.SourceProduct) (*domain.SourceProduct, error) {
	model := s.conv.ToModel(sp)

	query := `
		INSERT INTO source_product (source_id, product_id, external_id, price, original_price, enabled)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (source_id, product_id, external_id)
		DO UPDATE SET
			price          = EXCLUDED.price,
			original_price = EXCLUDED.original_price,
			enabled        = EXCLUDED.enabled,
			updated_at     = NOW()
		RETURNING id, source_id, product_id, external_id, price, original_price, enabled, updated_at
	`

	var saved converter.SourceProductModel
	err := tr.Conn(ctx, s.pool).QueryRow(ctx, query,
		model.SourceID, model.ProductID, model.ExternalID, model.Price, model.OriginalPrice, model.Enabled,
	).Scan(
		&saved.ID, &saved.SourceID, &saved.ProductID, &saved.ExternalID,
		&saved.Price, &saved.OriginalPrice, &saved.Enabled, &saved.UpdatedAt,
	)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return s.conv.ToEntity(&saved), nil
}
