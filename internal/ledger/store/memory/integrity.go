package memory

import (
	"context"
	"fmt"

	"github.com/ledgerbook/ledger/internal/ledger/model"
	"github.com/ledgerbook/ledger/internal/ledger/store"
)

// ScanIntegrity reports negative balances, negative line totals and unpaid queues without a
// customer, in that order, each ordered by id.
func (s *Store) ScanIntegrity(ctx context.Context) ([]store.Anomaly, error) {
	out := []store.Anomaly{}
	s.read(ctx, func(st *state) {
		for _, id := range sortedKeys(st.customers) {
			if c := st.customers[id]; c.Balance < 0 {
				out = append(out, store.Anomaly{
					Kind:     store.AnomalyNegativeBalance,
					EntityID: id,
					Detail:   fmt.Sprintf("balance %d", c.Balance),
				})
			}
		}
		for _, id := range sortedKeys(st.productOrders) {
			if po := st.productOrders[id]; po.TotalPrice.IsNegative() {
				out = append(out, store.Anomaly{
					Kind:     store.AnomalyNegativeLineTotal,
					EntityID: id,
					Detail:   fmt.Sprintf("total_price %s", po.TotalPrice),
				})
			}
		}
		for _, id := range sortedKeys(st.queues) {
			if q := st.queues[id]; q.Status == model.QueueStatusUnpaid && q.CustomerID == nil {
				out = append(out, store.Anomaly{
					Kind:     store.AnomalyUnattributedUnpaid,
					EntityID: id,
					Detail:   fmt.Sprintf("grand_total %s", st.hydrate(q).GrandTotalPrice()),
				})
			}
		}
	})
	return out, nil
}
