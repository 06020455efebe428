package postgres

import (
	"context"
	"fmt"

	"github.com/ledgerbook/ledger/internal/ledger/store"
	"github.com/ledgerbook/ledger/internal/platform/db"
)

// integrityChecks run in order; each yields (entity id, detail) rows ordered by id.
var integrityChecks = []struct {
	kind  store.AnomalyKind
	query string
}{
	{store.AnomalyNegativeBalance, `
		SELECT id, 'balance ' || balance FROM customer WHERE balance < 0 ORDER BY id`},
	{store.AnomalyNegativeLineTotal, `
		SELECT id, 'total_price ' || total_price FROM product_order WHERE total_price < 0 ORDER BY id`},
	{store.AnomalyUnattributedUnpaid, `
		SELECT q.id, 'grand_total ' || COALESCE(SUM(po.total_price), 0)
		FROM queue q
		LEFT JOIN product_order po ON po.queue_id = q.id
		WHERE q.status = 'UNPAID' AND q.customer_id IS NULL
		GROUP BY q.id
		ORDER BY q.id`},
}

// ScanIntegrity reports rows that break ledger invariants.
func (s *Store) ScanIntegrity(ctx context.Context) ([]store.Anomaly, error) {
	conn := db.Conn(ctx, s.pool)
	out := []store.Anomaly{}
	for _, check := range integrityChecks {
		rows, err := conn.Query(ctx, check.query)
		if err != nil {
			return nil, fmt.Errorf("store/postgres: integrity %s: %w", check.kind, err)
		}
		for rows.Next() {
			a := store.Anomaly{Kind: check.kind}
			if err := rows.Scan(&a.EntityID, &a.Detail); err != nil {
				rows.Close()
				return nil, fmt.Errorf("store/postgres: scan integrity %s: %w", check.kind, err)
			}
			out = append(out, a)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("store/postgres: iterate integrity %s: %w", check.kind, err)
		}
	}
	return out, nil
}
