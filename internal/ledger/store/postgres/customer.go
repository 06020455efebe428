package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ledgerbook/ledger/internal/ledger/display"
	"github.com/ledgerbook/ledger/internal/ledger/model"
	"github.com/ledgerbook/ledger/internal/platform/db"
)

// CustomerGateway persists customers in the customer table.
type CustomerGateway struct {
	pool *pgxpool.Pool
}

// customerDebts aggregates the debt of every customer owing money.
const customerDebts = `
	SELECT q.customer_id, -SUM(ABS(po.total_price)) AS debt
	FROM queue q
	JOIN product_order po ON po.queue_id = q.id
	WHERE q.status = 'UNPAID' AND q.customer_id IS NOT NULL
	GROUP BY q.customer_id`

const customerColumns = `id, name, balance`

func scanCustomers(rows pgx.Rows) ([]model.Customer, error) {
	defer rows.Close()
	out := []model.Customer{}
	for rows.Next() {
		var (
			c  model.Customer
			id int64
		)
		if err := rows.Scan(&id, &c.Name, &c.Balance); err != nil {
			return nil, fmt.Errorf("store/postgres: scan customer: %w", err)
		}
		c.ID = model.Int64(id)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store/postgres: iterate customers: %w", err)
	}
	return out, nil
}

func (g *CustomerGateway) Insert(ctx context.Context, c model.Customer) (int64, error) {
	conn := db.Conn(ctx, g.pool)
	if c.ID == nil {
		return insertReturningID(ctx, conn, "customer", false,
			`INSERT INTO customer (name, balance) VALUES ($1, $2) RETURNING id`, c.Name, c.Balance)
	}
	return insertReturningID(ctx, conn, "customer", true,
		`INSERT INTO customer (id, name, balance) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO NOTHING RETURNING id`, *c.ID, c.Name, c.Balance)
}

func (g *CustomerGateway) Update(ctx context.Context, c model.Customer) (int64, error) {
	if c.ID == nil {
		return 0, nil
	}
	tag, err := db.Conn(ctx, g.pool).Exec(ctx,
		`UPDATE customer SET name = $2, balance = $3 WHERE id = $1`, *c.ID, c.Name, c.Balance)
	return rowsAffected("customer", "update", tag, err)
}

func (g *CustomerGateway) Delete(ctx context.Context, id int64) (int64, error) {
	tag, err := db.Conn(ctx, g.pool).Exec(ctx, `DELETE FROM customer WHERE id = $1`, id)
	return rowsAffected("customer", "delete", tag, err)
}

func (g *CustomerGateway) SelectAll(ctx context.Context) ([]model.Customer, error) {
	rows, err := db.Conn(ctx, g.pool).Query(ctx, `SELECT `+customerColumns+` FROM customer ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store/postgres: select customers: %w", err)
	}
	return scanCustomers(rows)
}

func (g *CustomerGateway) SelectByID(ctx context.Context, id int64) (*model.Customer, error) {
	c := model.Customer{ID: model.Int64(id)}
	err := db.Conn(ctx, g.pool).QueryRow(ctx,
		`SELECT name, balance FROM customer WHERE id = $1`, id).Scan(&c.Name, &c.Balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store/postgres: select customer %d: %w", id, err)
	}
	return &c, nil
}

func (g *CustomerGateway) SelectByIDs(ctx context.Context, ids []int64) ([]model.Customer, error) {
	rows, err := db.Conn(ctx, g.pool).Query(ctx,
		`SELECT `+customerColumns+` FROM customer WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("store/postgres: select customers by ids: %w", err)
	}
	return scanCustomers(rows)
}

func (g *CustomerGateway) IsExistsByID(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := db.Conn(ctx, g.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM customer WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("store/postgres: customer exists: %w", err)
	}
	return exists, nil
}

func (g *CustomerGateway) Search(ctx context.Context, query string) ([]model.Customer, error) {
	tokens := display.SearchTokens(query)
	if len(tokens) == 0 {
		return []model.Customer{}, nil
	}
	w := searchWhere("name", tokens)
	rows, err := db.Conn(ctx, g.pool).Query(ctx, fmt.Sprintf(
		`SELECT %s FROM customer %s ORDER BY name COLLATE ledger_name, id`, customerColumns, w.clause()),
		w.args...)
	if err != nil {
		return nil, fmt.Errorf("store/postgres: search customers: %w", err)
	}
	return scanCustomers(rows)
}

func customerFilterWhere(filters display.CustomerFilters) *where {
	w := &where{}
	if filters.Balance.Min != nil {
		w.add("balance >= ?", *filters.Balance.Min)
	}
	if filters.Balance.Max != nil {
		w.add("balance <= ?", *filters.Balance.Max)
	}
	debt := filters.Debt.Abs()
	if debt.Min != nil {
		w.add("ABS(debt) >= ?", numeric(*debt.Min))
	}
	if debt.Max != nil {
		w.add("ABS(debt) <= ?", numeric(*debt.Max))
	}
	return w
}

// customerRowsCTE exposes every customer with its derived debt as customer_rows.
const customerRowsCTE = `
	WITH debts AS (` + customerDebts + `),
	customer_rows AS (
		SELECT c.id, c.name, c.balance, COALESCE(d.debt, 0) AS debt
		FROM customer c
		LEFT JOIN debts d ON d.customer_id = c.id
	)`

func (g *CustomerGateway) SelectPaginatedInfo(ctx context.Context, page display.PageRequest, sort display.CustomerSortMethod, filters display.CustomerFilters) ([]model.CustomerPaginatedInfo, error) {
	w := customerFilterWhere(filters)
	orderBy := "name COLLATE ledger_name"
	if sort.SortBy == display.CustomerSortByBalance {
		orderBy = "balance"
	}
	query := fmt.Sprintf(`%s
		SELECT id, name, balance, debt FROM customer_rows
		%s
		ORDER BY %s %s, id ASC
		LIMIT %s OFFSET %s`,
		customerRowsCTE, w.clause(), orderBy, direction(sort.Ascending), w.next(page.Limit()), w.next(page.Offset()))

	rows, err := db.Conn(ctx, g.pool).Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("store/postgres: select customer page: %w", err)
	}
	defer rows.Close()

	out := []model.CustomerPaginatedInfo{}
	for rows.Next() {
		var (
			info model.CustomerPaginatedInfo
			id   int64
			debt pgtype.Numeric
		)
		if err := rows.Scan(&id, &info.Name, &info.Balance, &debt); err != nil {
			return nil, fmt.Errorf("store/postgres: scan customer page: %w", err)
		}
		info.ID = model.Int64(id)
		info.Debt = fromNumeric(debt)
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store/postgres: iterate customer page: %w", err)
	}
	return out, nil
}

func (g *CustomerGateway) CountFiltered(ctx context.Context, filters display.CustomerFilters) (int64, error) {
	w := customerFilterWhere(filters)
	var count int64
	err := db.Conn(ctx, g.pool).QueryRow(ctx,
		fmt.Sprintf(`%s SELECT COUNT(*) FROM customer_rows %s`, customerRowsCTE, w.clause()), w.args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("store/postgres: count customers: %w", err)
	}
	return count, nil
}

func (g *CustomerGateway) TotalDebtByID(ctx context.Context, id int64) (decimal.Decimal, error) {
	var debt pgtype.Numeric
	err := db.Conn(ctx, g.pool).QueryRow(ctx, `
		SELECT COALESCE(-SUM(ABS(po.total_price)), 0)
		FROM queue q
		JOIN product_order po ON po.queue_id = q.id
		WHERE q.status = 'UNPAID' AND q.customer_id = $1`, id).Scan(&debt)
	if err != nil {
		return decimal.Zero, fmt.Errorf("store/postgres: total debt of customer %d: %w", id, err)
	}
	return fromNumeric(debt), nil
}

func (g *CustomerGateway) SelectAllBalanceInfo(ctx context.Context) ([]model.CustomerBalanceInfo, error) {
	rows, err := db.Conn(ctx, g.pool).Query(ctx,
		`SELECT id, balance FROM customer WHERE balance > 0 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store/postgres: select balance info: %w", err)
	}
	defer rows.Close()

	out := []model.CustomerBalanceInfo{}
	for rows.Next() {
		var info model.CustomerBalanceInfo
		if err := rows.Scan(&info.ID, &info.Balance); err != nil {
			return nil, fmt.Errorf("store/postgres: scan balance info: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (g *CustomerGateway) SelectAllDebtInfo(ctx context.Context) ([]model.CustomerDebtInfo, error) {
	rows, err := db.Conn(ctx, g.pool).Query(ctx,
		`WITH debts AS (`+customerDebts+`)
		 SELECT customer_id, debt FROM debts WHERE debt < 0 ORDER BY customer_id`)
	if err != nil {
		return nil, fmt.Errorf("store/postgres: select debt info: %w", err)
	}
	defer rows.Close()

	out := []model.CustomerDebtInfo{}
	for rows.Next() {
		var (
			info model.CustomerDebtInfo
			debt pgtype.Numeric
		)
		if err := rows.Scan(&info.ID, &debt); err != nil {
			return nil, fmt.Errorf("store/postgres: scan debt info: %w", err)
		}
		info.Debt = fromNumeric(debt)
		out = append(out, info)
	}
	return out, rows.Err()
}
