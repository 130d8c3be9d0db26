package pgdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/DRSN-tech/market-crawler/internal/characteristic"
	"github.com/DRSN-tech/market-crawler/pkg/e"
	"github.com/DRSN-tech/market-crawler/pkg/tr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// CharacteristicRepo хранит справочник характеристик, интернированные
// значения и значения характеристик товаров.
type CharacteristicRepo struct {
	pool *pgxpool.Pool
}

func NewCharacteristicRepo(pool *pgxpool.Pool) *CharacteristicRepo {
	return &CharacteristicRepo{pool: pool}
}

// Sync приводит таблицу characteristic к реестру в коде.
func (c *CharacteristicRepo) Sync(ctx context.Context, defs []characteristic.Definition) error {
	query := `
		INSERT INTO characteristic (id, slug, name, kind, visualisation, sort_key, group_name, unit, multi, enum_values)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			slug          = EXCLUDED.slug,
			name          = EXCLUDED.name,
			kind          = EXCLUDED.kind,
			visualisation = EXCLUDED.visualisation,
			sort_key      = EXCLUDED.sort_key,
			group_name    = EXCLUDED.group_name,
			unit          = EXCLUDED.unit,
			multi         = EXCLUDED.multi,
			enum_values   = EXCLUDED.enum_values
	`

	batch := &pgx.Batch{}
	for _, d := range defs {
		values := d.Values
		if values == nil {
			values = []string{}
		}
		batch.Queue(query, int16(d.ID), d.Slug, d.Name, int16(d.Kind), string(d.Visualisation),
			d.SortKey, string(d.Group), d.Unit, d.Multi, values)
	}

	if err := tr.Conn(ctx, c.pool).SendBatch(ctx, batch).Close(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	return nil
}

// internTarget описывает, куда и под каким ключом интернируется значение.
type internTarget struct {
	table   string
	key     any
	display any // nil, если таблица хранит только ключ
}

func targetOf(value characteristic.Value) (internTarget, error) {
	switch v := value.(type) {
	case characteristic.FloatValue:
		return internTarget{table: "characteristic_float_value", key: v.Value}, nil
	case characteristic.StringValue:
		// "Redmi Note 13" и "REDMI  NOTE 13" должны получить один id
		return internTarget{table: "characteristic_string_value", key: v.Key(), display: v.Value}, nil
	case characteristic.EnumValue:
		return internTarget{table: "characteristic_enum_value", key: v.Value}, nil
	default:
		return internTarget{}, fmt.Errorf("%w: %T", e.ErrUnknownCharacteristic, value)
	}
}

// queries строит запрос вставки с аргументами после characteristic_id и запрос чтения по ключу.
func (t internTarget) queries() (insert string, args []any, sel string) {
	if t.display == nil {
		insert = fmt.Sprintf(`
		INSERT INTO %s (characteristic_id, value) VALUES ($1, $2)
		ON CONFLICT (characteristic_id, value) DO NOTHING
		RETURNING id
	`, t.table)
		sel = fmt.Sprintf(`SELECT id FROM %s WHERE characteristic_id = $1 AND value = $2`, t.table)
		return insert, []any{t.key}, sel
	}

	insert = fmt.Sprintf(`
		INSERT INTO %s (characteristic_id, key, value) VALUES ($1, $2, $3)
		ON CONFLICT (characteristic_id, key) DO NOTHING
		RETURNING id
	`, t.table)
	sel = fmt.Sprintf(`SELECT id FROM %s WHERE characteristic_id = $1 AND key = $2`, t.table)
	return insert, []any{t.key, t.display}, sel
}

// Intern возвращает id значения из таблицы значений его типа, добавляя его при отсутствии.
// Вызывается вне транзакции: конкурирующая вставка того же значения не прерывает работу.
func (c *CharacteristicRepo) Intern(ctx context.Context, value characteristic.Value) (int64, error) {
	switch v := value.(type) {
	case characteristic.IntValue:
		return v.IntID(), nil
	case characteristic.BoolValue:
		return v.IntID(), nil
	}

	target, err := targetOf(value)
	if err != nil {
		return 0, e.Wrap(whereami.WhereAmI(), err)
	}

	conn := tr.Conn(ctx, c.pool)
	cid := int16(value.CharacteristicID())
	insert, args, sel := target.queries()

	var id int64
	err = conn.QueryRow(ctx, insert, append([]any{cid}, args...)...).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := conn.QueryRow(ctx, sel, cid, target.key).Scan(&id); err != nil {
		return 0, e.Wrap(whereami.WhereAmI(), err)
	}
	return id, nil
}

// ReplaceProductValues для каждой переданной характеристики оставляет у товара
// ровно переданный набор значений. Остальные характеристики товара не трогаются.
func (c *CharacteristicRepo) ReplaceProductValues(ctx context.Context, productID int64, values map[characteristic.ID][]int64) error {
	if len(values) == 0 {
		return nil
	}

	const deleteStale = `
		DELETE FROM product_characteristic
		WHERE product_id = $1 AND characteristic_id = $2 AND NOT (value_id = ANY($3))
	`
	const insert = `
		INSERT INTO product_characteristic (product_id, characteristic_id, value_id)
		SELECT $1, $2, unnest($3::bigint[])
		ON CONFLICT DO NOTHING
	`

	batch := &pgx.Batch{}
	for id, ids := range values {
		batch.Queue(deleteStale, productID, int16(id), ids)
		batch.Queue(insert, productID, int16(id), ids)
	}

	if err := tr.Conn(ctx, c.pool).SendBatch(ctx, batch).Close(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	return nil
}
