// Package postgres implements the ledger gateways on PostgreSQL with hand-written SQL.
//
// Name ordering uses the ledger_name ICU collation installed by the migrations, and search
// folds case and accents with lower(unaccent(lower(...))).
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ledgerbook/ledger/internal/ledger/store"
	"github.com/ledgerbook/ledger/internal/platform/db"
)

// Store wires every gateway to one pool.
type Store struct {
	pool *pgxpool.Pool
}

// New returns a store backed by pool. The schema must already be migrated.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Gateways exposes the store through the gateway contracts.
func (s *Store) Gateways() store.Store {
	return store.Store{
		Transactor:    s,
		Customers:     &CustomerGateway{pool: s.pool},
		Products:      &ProductGateway{pool: s.pool},
		Queues:        &QueueGateway{pool: s.pool},
		ProductOrders: &ProductOrderGateway{pool: s.pool},
		Integrity:     s,
	}
}

// WithinTx runs fn in a RepeatableRead transaction. Nested calls join the outer transaction and
// after-commit hooks fire once the outermost one commits.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := db.TxFrom(ctx); ok {
		return fn(ctx)
	}
	ctx, finish := store.JoinScope(ctx)
	err := db.WithTx(ctx, s.pool, fn)
	finish(err)
	return err
}

// insertReturningID runs an INSERT ... RETURNING id. A conflict swallowed by ON CONFLICT DO
// NOTHING yields 0. Explicit ids push the identity sequence past the new maximum.
func insertReturningID(ctx context.Context, conn db.DBTX, table string, explicit bool, query string, args ...interface{}) (int64, error) {
	var id int64
	err := conn.QueryRow(ctx, query, args...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("store/postgres: insert %s: %w", table, err)
	}
	if explicit {
		if err := syncSequence(ctx, conn, table); err != nil {
			return 0, err
		}
	}
	return id, nil
}

func syncSequence(ctx context.Context, conn db.DBTX, table string) error {
	query := fmt.Sprintf(
		`SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), GREATEST((SELECT MAX(id) FROM %[1]s), 1))`,
		table)
	if _, err := conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("store/postgres: sync %s sequence: %w", table, err)
	}
	return nil
}

func rowsAffected(table, op string, tag interface{ RowsAffected() int64 }, err error) (int64, error) {
	if err != nil {
		return 0, fmt.Errorf("store/postgres: %s %s: %w", op, table, err)
	}
	return tag.RowsAffected(), nil
}

func numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func fromNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

// where accumulates conditions with positional arguments.
type where struct {
	conditions []string
	args       []interface{}
}

// add appends a condition; every "?" in cond is replaced with the next placeholder.
func (w *where) add(cond string, args ...interface{}) {
	for _, arg := range args {
		w.args = append(w.args, arg)
		cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.conditions = append(w.conditions, cond)
}

func (w *where) clause() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.conditions, " AND ")
}

// next returns the placeholder the following argument will take.
func (w *where) next(arg interface{}) string {
	w.args = append(w.args, arg)
	return fmt.Sprintf("$%d", len(w.args))
}

func escapeLike(token string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(token)
}

// searchWhere matches rows whose column contains every token after case and accent folding.
func searchWhere(column string, tokens []string) *where {
	w := &where{}
	for _, token := range tokens {
		w.add(fmt.Sprintf(`lower(unaccent(lower(%s))) LIKE '%%' || lower(unaccent(lower(?))) || '%%' ESCAPE '\'`, column), escapeLike(token))
	}
	return w
}

func direction(ascending bool) string {
	if ascending {
		return "ASC"
	}
	return "DESC"
}
