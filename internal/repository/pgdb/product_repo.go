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
	"github.com/shopspring/decimal"
)

const productColumns = `id, title, normalized_title, category_id, lowest_price, highest_price,
	enabled, description, images, created_at, updated_at`

// ProductRepo реализует репозиторий канонических товаров поверх PostgreSQL.
type ProductRepo struct {
	pool *pgxpool.Pool
	conv converter.ProductConverter
}

func NewProductRepo(pool *pgxpool.Pool) *ProductRepo {
	return &ProductRepo{pool: pool}
}

func scanProduct(row pgx.Row) (*converter.ProductModel, error) {
	var m converter.ProductModel
	err := row.Scan(
		&m.ID, &m.Title, &m.NormalizedTitle, &m.CategoryID, &m.LowestPrice, &m.HighestPrice,
		&m.Enabled, &m.Description, &m.Images, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByTitle ищет товар по нормализованному названию.
func (p *ProductRepo) GetByTitle(ctx context.Context, normalizedTitle string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM product WHERE normalized_title = $1`
	return p.getOne(ctx, query, normalizedTitle)
}

func (p *ProductRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM product WHERE id = $1`
	return p.getOne(ctx, query, id)
}

func (p *ProductRepo) getOne(ctx context.Context, query string, arg any) (*domain.Product, error) {
	model, err := scanProduct(tr.Conn(ctx, p.pool).QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, e.ErrNotFound
	}
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	return p.conv.ToEntity(model), nil
}

// Create вставляет товар. Если параллельный обработчик успел создать товар
// с тем же названием, возвращает существующую запись и created=false.
func (p *ProductRepo) Create(ctx context.Context, product *domain.Product) (*domain.Product, bool, error) {
	model := p.conv.ToModel(product)

	query := `
		INSERT INTO product (title, normalized_title, category_id, lowest_price, highest_price, enabled, description, images)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + productColumns

	saved, err := scanProduct(tr.Conn(ctx, p.pool).QueryRow(ctx, query,
		model.Title, model.NormalizedTitle, model.CategoryID, model.LowestPrice, model.HighestPrice,
		model.Enabled, model.Description, model.Images,
	))
	if e.IsUniqueViolation(err) {
		existing, getErr := p.GetByTitle(ctx, model.NormalizedTitle)
		if getErr != nil {
			return nil, false, getErr
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, e.Wrap(whereami.WhereAmI(), err)
	}

	return p.conv.ToEntity(saved), true, nil
}

func (p *ProductRepo) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	query := `UPDATE product SET enabled = $2, updated_at = NOW() WHERE id = $1 AND enabled IS DISTINCT FROM $2`
	if _, err := tr.Conn(ctx, p.pool).Exec(ctx, query, id, enabled); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	return nil
}

// WidenPriceRange расширяет диапазон одной командой, так что параллельные
// обновления не сужают его. Нулевая нижняя граница считается незаданной.
func (p *ProductRepo) WidenPriceRange(ctx context.Context, id int64, price decimal.Decimal) error {
	query := `
		UPDATE product SET
			lowest_price  = CASE WHEN lowest_price = 0 OR $2 < lowest_price THEN $2 ELSE lowest_price END,
			highest_price = GREATEST(highest_price, $2),
			updated_at    = NOW()
		WHERE id = $1
		  AND (lowest_price = 0 OR $2 < lowest_price OR $2 > highest_price)
	`
	if _, err := tr.Conn(ctx, p.pool).Exec(ctx, query, id, price); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	return nil
}

func (p *ProductRepo) UpdateDetails(ctx context.Context, id int64, description string, images []string, enabled bool) error {
	if images == nil {
		images = []string{}
	}

	query := `
		UPDATE product SET description = $2, images = $3, enabled = $4, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := tr.Conn(ctx, p.pool).Exec(ctx, query, id, description, images, enabled)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if tag.RowsAffected() == 0 {
		return e.Wrap(whereami.WhereAmI(), e.ErrNotFound)
	}
	return nil
}
