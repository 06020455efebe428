package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerbook/ledger/internal/ledger/display"
	"github.com/ledgerbook/ledger/internal/ledger/model"
	"github.com/ledgerbook/ledger/internal/platform/db"
)

// ProductGateway persists products in the product table.
type ProductGateway struct {
	pool *pgxpool.Pool
}

func scanProducts(rows pgx.Rows) ([]model.Product, error) {
	defer rows.Close()
	out := []model.Product{}
	for rows.Next() {
		var (
			p  model.Product
			id int64
		)
		if err := rows.Scan(&id, &p.Name, &p.Price); err != nil {
			return nil, fmt.Errorf("store/postgres: scan product: %w", err)
		}
		p.ID = model.Int64(id)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store/postgres: iterate products: %w", err)
	}
	return out, nil
}

func (g *ProductGateway) Insert(ctx context.Context, p model.Product) (int64, error) {
	conn := db.Conn(ctx, g.pool)
	if p.ID == nil {
		return insertReturningID(ctx, conn, "product", false,
			`INSERT INTO product (name, price) VALUES ($1, $2) RETURNING id`, p.Name, p.Price)
	}
	return insertReturningID(ctx, conn, "product", true,
		`INSERT INTO product (id, name, price) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO NOTHING RETURNING id`, *p.ID, p.Name, p.Price)
}

func (g *ProductGateway) Update(ctx context.Context, p model.Product) (int64, error) {
	if p.ID == nil {
		return 0, nil
	}
	tag, err := db.Conn(ctx, g.pool).Exec(ctx,
		`UPDATE product SET name = $2, price = $3 WHERE id = $1`, *p.ID, p.Name, p.Price)
	return rowsAffected("product", "update", tag, err)
}

func (g *ProductGateway) Delete(ctx context.Context, id int64) (int64, error) {
	tag, err := db.Conn(ctx, g.pool).Exec(ctx, `DELETE FROM product WHERE id = $1`, id)
	return rowsAffected("product", "delete", tag, err)
}

func (g *ProductGateway) SelectAll(ctx context.Context) ([]model.Product, error) {
	rows, err := db.Conn(ctx, g.pool).Query(ctx, `SELECT id, name, price FROM product ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store/postgres: select products: %w", err)
	}
	return scanProducts(rows)
}

func (g *ProductGateway) SelectByID(ctx context.Context, id int64) (*model.Product, error) {
	p := model.Product{ID: model.Int64(id)}
	err := db.Conn(ctx, g.pool).QueryRow(ctx,
		`SELECT name, price FROM product WHERE id = $1`, id).Scan(&p.Name, &p.Price)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store/postgres: select product %d: %w", id, err)
	}
	return &p, nil
}

func (g *ProductGateway) SelectByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	rows, err := db.Conn(ctx, g.pool).Query(ctx,
		`SELECT id, name, price FROM product WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("store/postgres: select products by ids: %w", err)
	}
	return scanProducts(rows)
}

func (g *ProductGateway) IsExistsByID(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := db.Conn(ctx, g.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM product WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("store/postgres: product exists: %w", err)
	}
	return exists, nil
}

func (g *ProductGateway) Search(ctx context.Context, query string) ([]model.Product, error) {
	tokens := display.SearchTokens(query)
	if len(tokens) == 0 {
		return []model.Product{}, nil
	}
	w := searchWhere("name", tokens)
	rows, err := db.Conn(ctx, g.pool).Query(ctx, fmt.Sprintf(
		`SELECT id, name, price FROM product %s ORDER BY name COLLATE ledger_name, id`, w.clause()),
		w.args...)
	if err != nil {
		return nil, fmt.Errorf("store/postgres: search products: %w", err)
	}
	return scanProducts(rows)
}

func productFilterWhere(filters display.ProductFilters) *where {
	w := &where{}
	if filters.Price.Min != nil {
		w.add("price >= ?", *filters.Price.Min)
	}
	if filters.Price.Max != nil {
		w.add("price <= ?", *filters.Price.Max)
	}
	return w
}

func (g *ProductGateway) SelectPaginatedInfo(ctx context.Context, page display.PageRequest, sort display.ProductSortMethod, filters display.ProductFilters) ([]model.Product, error) {
	w := productFilterWhere(filters)
	orderBy := "name COLLATE ledger_name"
	if sort.SortBy == display.ProductSortByPrice {
		orderBy = "price"
	}
	query := fmt.Sprintf(`
		SELECT id, name, price FROM product
		%s
		ORDER BY %s %s, id ASC
		LIMIT %s OFFSET %s`,
		w.clause(), orderBy, direction(sort.Ascending), w.next(page.Limit()), w.next(page.Offset()))

	rows, err := db.Conn(ctx, g.pool).Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("store/postgres: select product page: %w", err)
	}
	return scanProducts(rows)
}

func (g *ProductGateway) CountFiltered(ctx context.Context, filters display.ProductFilters) (int64, error) {
	w := productFilterWhere(filters)
	var count int64
	err := db.Conn(ctx, g.pool).QueryRow(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM product %s`, w.clause()), w.args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("store/postgres: count products: %w", err)
	}
	return count, nil
}
