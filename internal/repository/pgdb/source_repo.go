package pgdb

import (
	"context"

	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/DRSN-tech/market-crawler/pkg/e"
	"github.com/DRSN-tech/market-crawler/pkg/tr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

type SourceRepo struct {
	pool *pgxpool.Pool
}

func NewSourceRepo(pool *pgxpool.Pool) *SourceRepo {
	return &SourceRepo{pool: pool}
}

// Sync записывает закрытый список маркетплейсов в таблицу source.
func (s *SourceRepo) Sync(ctx context.Context, sources []domain.Source) error {
	query := `
		INSERT INTO source (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
	`

	batch := &pgx.Batch{}
	for _, src := range sources {
		batch.Queue(query, int16(src), src.String())
	}

	if err := tr.Conn(ctx, s.pool).SendBatch(ctx, batch).Close(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	return nil
}
