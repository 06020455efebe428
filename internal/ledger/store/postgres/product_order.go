package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerbook/ledger/internal/ledger/model"
	"github.com/ledgerbook/ledger/internal/platform/db"
)

// ProductOrderGateway persists line items in the product_order table.
type ProductOrderGateway struct {
	pool *pgxpool.Pool
}

const productOrderColumns = `id, queue_id, product_id, product_name, product_price, quantity, discount, total_price`

func scanProductOrder(row pgx.Row) (model.ProductOrder, error) {
	var (
		po           model.ProductOrder
		id           int64
		queueID      pgtype.Int8
		productID    pgtype.Int8
		productName  pgtype.Text
		productPrice pgtype.Int8
		total        pgtype.Numeric
	)
	if err := row.Scan(&id, &queueID, &productID, &productName, &productPrice, &po.Quantity, &po.Discount, &total); err != nil {
		return model.ProductOrder{}, err
	}
	po.ID = model.Int64(id)
	if queueID.Valid {
		po.QueueID = model.Int64(queueID.Int64)
	}
	if productID.Valid {
		po.ProductID = model.Int64(productID.Int64)
	}
	if productName.Valid {
		po.ProductName = model.String(productName.String)
	}
	if productPrice.Valid {
		po.ProductPrice = model.Int64(productPrice.Int64)
	}
	po.TotalPrice = fromNumeric(total)
	return po, nil
}

func scanProductOrders(rows pgx.Rows) ([]model.ProductOrder, error) {
	defer rows.Close()
	out := []model.ProductOrder{}
	for rows.Next() {
		po, err := scanProductOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("store/postgres: scan product order: %w", err)
		}
		out = append(out, po)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store/postgres: iterate product orders: %w", err)
	}
	return out, nil
}

func productOrderArgs(po model.ProductOrder) []interface{} {
	return []interface{}{po.QueueID, po.ProductID, po.ProductName, po.ProductPrice, po.Quantity, po.Discount, numeric(po.TotalPrice)}
}

func (g *ProductOrderGateway) Insert(ctx context.Context, po model.ProductOrder) (int64, error) {
	conn := db.Conn(ctx, g.pool)
	if po.ID == nil {
		return insertReturningID(ctx, conn, "product_order", false, `
			INSERT INTO product_order (queue_id, product_id, product_name, product_price, quantity, discount, total_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			productOrderArgs(po)...)
	}
	return insertReturningID(ctx, conn, "product_order", true, `
		INSERT INTO product_order (queue_id, product_id, product_name, product_price, quantity, discount, total_price, id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING RETURNING id`,
		append(productOrderArgs(po), *po.ID)...)
}

func (g *ProductOrderGateway) Update(ctx context.Context, po model.ProductOrder) (int64, error) {
	if po.ID == nil {
		return 0, nil
	}
	tag, err := db.Conn(ctx, g.pool).Exec(ctx, `
		UPDATE product_order
		SET queue_id = $1, product_id = $2, product_name = $3, product_price = $4,
		    quantity = $5, discount = $6, total_price = $7
		WHERE id = $8`,
		append(productOrderArgs(po), *po.ID)...)
	return rowsAffected("product_order", "update", tag, err)
}

func (g *ProductOrderGateway) Upsert(ctx context.Context, po model.ProductOrder) (int64, error) {
	if po.ID == nil {
		return g.Insert(ctx, po)
	}
	return insertReturningID(ctx, db.Conn(ctx, g.pool), "product_order", true, `
		INSERT INTO product_order (queue_id, product_id, product_name, product_price, quantity, discount, total_price, id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			queue_id = EXCLUDED.queue_id,
			product_id = EXCLUDED.product_id,
			product_name = EXCLUDED.product_name,
			product_price = EXCLUDED.product_price,
			quantity = EXCLUDED.quantity,
			discount = EXCLUDED.discount,
			total_price = EXCLUDED.total_price
		RETURNING id`,
		append(productOrderArgs(po), *po.ID)...)
}

func (g *ProductOrderGateway) Delete(ctx context.Context, id int64) (int64, error) {
	tag, err := db.Conn(ctx, g.pool).Exec(ctx, `DELETE FROM product_order WHERE id = $1`, id)
	return rowsAffected("product_order", "delete", tag, err)
}

func (g *ProductOrderGateway) SelectAll(ctx context.Context) ([]model.ProductOrder, error) {
	rows, err := db.Conn(ctx, g.pool).Query(ctx,
		`SELECT `+productOrderColumns+` FROM product_order ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store/postgres: select product orders: %w", err)
	}
	return scanProductOrders(rows)
}

func (g *ProductOrderGateway) SelectByID(ctx context.Context, id int64) (*model.ProductOrder, error) {
	po, err := scanProductOrder(db.Conn(ctx, g.pool).QueryRow(ctx,
		`SELECT `+productOrderColumns+` FROM product_order WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store/postgres: select product order %d: %w", id, err)
	}
	return &po, nil
}

func (g *ProductOrderGateway) SelectByIDs(ctx context.Context, ids []int64) ([]model.ProductOrder, error) {
	rows, err := db.Conn(ctx, g.pool).Query(ctx,
		`SELECT `+productOrderColumns+` FROM product_order WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("store/postgres: select product orders by ids: %w", err)
	}
	return scanProductOrders(rows)
}

func (g *ProductOrderGateway) SelectAllByQueueID(ctx context.Context, queueID int64) ([]model.ProductOrder, error) {
	rows, err := db.Conn(ctx, g.pool).Query(ctx,
		`SELECT `+productOrderColumns+` FROM product_order WHERE queue_id = $1 ORDER BY id`, queueID)
	if err != nil {
		return nil, fmt.Errorf("store/postgres: select product orders of queue %d: %w", queueID, err)
	}
	return scanProductOrders(rows)
}
