package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerbook/ledger/internal/ledger/display"
	"github.com/ledgerbook/ledger/internal/ledger/model"
	"github.com/ledgerbook/ledger/internal/platform/db"
)

// QueueGateway persists queue rows in the queue table.
type QueueGateway struct {
	pool *pgxpool.Pool
}

const queueColumns = `id, customer_id, status, date, payment_method, note`

func scanQueue(row pgx.Row) (model.Queue, error) {
	var (
		q          model.Queue
		id         int64
		customerID pgtype.Int8
		note       pgtype.Text
	)
	if err := row.Scan(&id, &customerID, &q.Status, &q.Date, &q.PaymentMethod, &note); err != nil {
		return model.Queue{}, err
	}
	q.ID = model.Int64(id)
	if customerID.Valid {
		q.CustomerID = model.Int64(customerID.Int64)
	}
	if note.Valid {
		q.Note = model.String(note.String)
	}
	return q, nil
}

func scanQueues(rows pgx.Rows) ([]model.Queue, error) {
	defer rows.Close()
	out := []model.Queue{}
	for rows.Next() {
		q, err := scanQueue(rows)
		if err != nil {
			return nil, fmt.Errorf("store/postgres: scan queue: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store/postgres: iterate queues: %w", err)
	}
	return out, nil
}

func (g *QueueGateway) Insert(ctx context.Context, q model.Queue) (int64, error) {
	conn := db.Conn(ctx, g.pool)
	if q.ID == nil {
		return insertReturningID(ctx, conn, "queue", false, `
			INSERT INTO queue (customer_id, status, date, payment_method, note)
			VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			q.CustomerID, q.Status, q.Date, q.PaymentMethod, q.Note)
	}
	return insertReturningID(ctx, conn, "queue", true, `
		INSERT INTO queue (id, customer_id, status, date, payment_method, note)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING RETURNING id`,
		*q.ID, q.CustomerID, q.Status, q.Date, q.PaymentMethod, q.Note)
}

func (g *QueueGateway) Update(ctx context.Context, q model.Queue) (int64, error) {
	if q.ID == nil {
		return 0, nil
	}
	tag, err := db.Conn(ctx, g.pool).Exec(ctx, `
		UPDATE queue
		SET customer_id = $2, status = $3, date = $4, payment_method = $5, note = $6
		WHERE id = $1`,
		*q.ID, q.CustomerID, q.Status, q.Date, q.PaymentMethod, q.Note)
	return rowsAffected("queue", "update", tag, err)
}

func (g *QueueGateway) Delete(ctx context.Context, id int64) (int64, error) {
	tag, err := db.Conn(ctx, g.pool).Exec(ctx, `DELETE FROM queue WHERE id = $1`, id)
	return rowsAffected("queue", "delete", tag, err)
}

func (g *QueueGateway) SelectAll(ctx context.Context) ([]model.Queue, error) {
	rows, err := db.Conn(ctx, g.pool).Query(ctx, `SELECT `+queueColumns+` FROM queue ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store/postgres: select queues: %w", err)
	}
	return scanQueues(rows)
}

func (g *QueueGateway) SelectByID(ctx context.Context, id int64) (*model.Queue, error) {
	q, err := scanQueue(db.Conn(ctx, g.pool).QueryRow(ctx,
		`SELECT `+queueColumns+` FROM queue WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store/postgres: select queue %d: %w", id, err)
	}
	return &q, nil
}

func (g *QueueGateway) SelectByIDs(ctx context.Context, ids []int64) ([]model.Queue, error) {
	rows, err := db.Conn(ctx, g.pool).Query(ctx,
		`SELECT `+queueColumns+` FROM queue WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("store/postgres: select queues by ids: %w", err)
	}
	return scanQueues(rows)
}

func (g *QueueGateway) IsExistsByID(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := db.Conn(ctx, g.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM queue WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("store/postgres: queue exists: %w", err)
	}
	return exists, nil
}

// queueRowsCTE exposes every queue with its customer name and grand total as queue_rows.
const queueRowsCTE = `
	WITH totals AS (
		SELECT queue_id, SUM(total_price) AS total
		FROM product_order
		WHERE queue_id IS NOT NULL
		GROUP BY queue_id
	),
	queue_rows AS (
		SELECT q.id, q.customer_id, c.name AS customer_name, q.status, q.date,
		       COALESCE(t.total, 0) AS grand_total_price
		FROM queue q
		LEFT JOIN customer c ON c.id = q.customer_id
		LEFT JOIN totals t ON t.queue_id = q.id
	)`

func queueFilterWhere(filters display.QueueFilters) *where {
	w := &where{}
	if len(filters.CustomerIDs) > 0 {
		w.add("(customer_id IS NULL OR customer_id = ANY(?))", filters.CustomerIDs)
	}
	if !filters.NullCustomerShown {
		w.add("customer_id IS NOT NULL")
	}
	if len(filters.Statuses) > 0 {
		statuses := make([]string, len(filters.Statuses))
		for i, s := range filters.Statuses {
			statuses[i] = string(s)
		}
		w.add("status = ANY(?)", statuses)
	}
	if filters.TotalPrice.Min != nil {
		w.add("grand_total_price >= ?", numeric(*filters.TotalPrice.Min))
	}
	if filters.TotalPrice.Max != nil {
		w.add("grand_total_price <= ?", numeric(*filters.TotalPrice.Max))
	}
	if start, end, ok := filters.Date.Bounds(); ok {
		w.add("date BETWEEN ? AND ?", start, end)
	}
	return w
}

func queueOrderBy(sort display.QueueSortMethod) string {
	dir := direction(sort.Ascending)
	switch sort.SortBy {
	case display.QueueSortByDate:
		return fmt.Sprintf("date %s, id ASC", dir)
	case display.QueueSortByTotalPrice:
		return fmt.Sprintf("grand_total_price %s, id ASC", dir)
	}
	nulls := "NULLS LAST"
	if !sort.Ascending {
		nulls = "NULLS FIRST"
	}
	return fmt.Sprintf("customer_name COLLATE ledger_name %s %s, id ASC", dir, nulls)
}

func (g *QueueGateway) selectInfo(ctx context.Context, page *display.PageRequest, sort display.QueueSortMethod, filters display.QueueFilters) ([]model.QueuePaginatedInfo, error) {
	w := queueFilterWhere(filters)
	query := fmt.Sprintf(`%s
		SELECT id, customer_id, customer_name, status, date, grand_total_price
		FROM queue_rows
		%s
		ORDER BY %s`, queueRowsCTE, w.clause(), queueOrderBy(sort))
	if page != nil {
		query += fmt.Sprintf(" LIMIT %s OFFSET %s", w.next(page.Limit()), w.next(page.Offset()))
	}

	rows, err := db.Conn(ctx, g.pool).Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("store/postgres: select queue page: %w", err)
	}
	defer rows.Close()

	out := []model.QueuePaginatedInfo{}
	for rows.Next() {
		var (
			info         model.QueuePaginatedInfo
			id           int64
			customerID   pgtype.Int8
			customerName pgtype.Text
			total        pgtype.Numeric
			date         time.Time
		)
		if err := rows.Scan(&id, &customerID, &customerName, &info.Status, &date, &total); err != nil {
			return nil, fmt.Errorf("store/postgres: scan queue page: %w", err)
		}
		info.ID = model.Int64(id)
		if customerID.Valid {
			info.CustomerID = model.Int64(customerID.Int64)
		}
		if customerName.Valid {
			info.CustomerName = model.String(customerName.String)
		}
		info.Date = date
		info.GrandTotalPrice = fromNumeric(total)
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store/postgres: iterate queue page: %w", err)
	}
	return out, nil
}

func (g *QueueGateway) SelectAllPaginatedInfo(ctx context.Context, sort display.QueueSortMethod, filters display.QueueFilters) ([]model.QueuePaginatedInfo, error) {
	return g.selectInfo(ctx, nil, sort, filters)
}

func (g *QueueGateway) SelectPaginatedInfo(ctx context.Context, page display.PageRequest, sort display.QueueSortMethod, filters display.QueueFilters) ([]model.QueuePaginatedInfo, error) {
	return g.selectInfo(ctx, &page, sort, filters)
}

func (g *QueueGateway) CountFiltered(ctx context.Context, filters display.QueueFilters) (int64, error) {
	w := queueFilterWhere(filters)
	var count int64
	err := db.Conn(ctx, g.pool).QueryRow(ctx,
		fmt.Sprintf(`%s SELECT COUNT(*) FROM queue_rows %s`, queueRowsCTE, w.clause()), w.args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("store/postgres: count queues: %w", err)
	}
	return count, nil
}
