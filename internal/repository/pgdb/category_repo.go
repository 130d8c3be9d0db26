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

// CategoryRepo реализует репозиторий категорий поверх PostgreSQL.
type CategoryRepo struct {
	pool *pgxpool.Pool
	conv converter.CategoryConverter
}

func NewCategoryRepo(pool *pgxpool.Pool) *CategoryRepo {
	return &CategoryRepo{pool: pool}
}

// Ensure идемпотентно создаёт категорию по slug и возвращает сохранённую запись.
func (c *CategoryRepo) Ensure(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	query := `
		WITH ins AS (
			INSERT INTO category (slug, name) VALUES ($1, $2)
			ON CONFLICT (slug) DO NOTHING
			RETURNING id, slug, name, created_at
		)
		SELECT id, slug, name, created_at FROM ins
		UNION ALL
		SELECT id, slug, name, created_at FROM category
		WHERE slug = $1 AND NOT EXISTS (SELECT 1 FROM ins);
	`

	var model converter.CategoryModel
	if err := tr.Conn(ctx, c.pool).QueryRow(ctx, query, category.Slug, category.Name).
		Scan(&model.ID, &model.Slug, &model.Name, &model.CreatedAt); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return c.conv.ToEntity(&model), nil
}
