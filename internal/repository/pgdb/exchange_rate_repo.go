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

type ExchangeRateRepo struct {
	pool *pgxpool.Pool
}

func NewExchangeRateRepo(pool *pgxpool.Pool) *ExchangeRateRepo {
	return &ExchangeRateRepo{pool: pool}
}

// Upsert сохраняет курсы одной пачкой запросов.
func (r *ExchangeRateRepo) Upsert(ctx context.Context, rates []domain.ExchangeRate) error {
	if len(rates) == 0 {
		return nil
	}

	query := `
		INSERT INTO exchange_rate (currency, rate, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (currency) DO UPDATE SET rate = EXCLUDED.rate, updated_at = EXCLUDED.updated_at
	`

	batch := &pgx.Batch{}
	for _, rate := range rates {
		batch.Queue(query, string(rate.Currency), rate.Rate, rate.UpdatedAt)
	}

	if err := tr.Conn(ctx, r.pool).SendBatch(ctx, batch).Close(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	return nil
}

func (r *ExchangeRateRepo) Get(ctx context.Context, currency domain.Currency) (*domain.ExchangeRate, error) {
	query := `SELECT currency, rate, updated_at FROM exchange_rate WHERE currency = $1`

	var m converter.ExchangeRateModel
	err := tr.Conn(ctx, r.pool).QueryRow(ctx, query, string(currency)).Scan(&m.Currency, &m.Rate, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, e.ErrNotFound
	}
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return converter.ExchangeRateToEntity(&m), nil
}
