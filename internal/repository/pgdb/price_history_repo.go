package pgdb

import (
	"context"
	"errors"

	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/DRSN-tech/market-crawler/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/market-crawler/pkg/e"
	"github.com/DRSN-tech/market-crawler/pkg/tr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// PriceHistoryRepo ведёт журнал цен предложений. Записи только добавляются.
type PriceHistoryRepo struct {
	pool *pgxpool.Pool
}

func NewPriceHistoryRepo(pool *pgxpool.Pool) *PriceHistoryRepo {
	return &PriceHistoryRepo{pool: pool}
}

func (h *PriceHistoryRepo) Latest(ctx context.Context, productID int64, source domain.Source, externalID string) (*domain.PriceHistoryEntry, error) {
	query := `
		SELECT id, product_id, source_id, external_id, price, created_at
		FROM source_product_price_history
		WHERE product_id = $1 AND source_id = $2 AND external_id = $3
		ORDER BY id DESC
		LIMIT 1
	`

	var m converter.PriceHistoryModel
	err := tr.Conn(ctx, h.pool).QueryRow(ctx, query, productID, int16(source), externalID).
		Scan(&m.ID, &m.ProductID, &m.SourceID, &m.ExternalID, &m.Price, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, e.ErrNotFound
	}
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return converter.PriceHistoryToEntity(&m), nil
}

func (h *PriceHistoryRepo) Append(ctx context.Context, entry *domain.PriceHistoryEntry) error {
	query := `
		INSERT INTO source_product_price_history (product_id, source_id, external_id, price)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := tr.Conn(ctx, h.pool).Exec(ctx, query, entry.ProductID, int16(entry.Source), entry.ExternalID, entry.Price); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	return nil
}
