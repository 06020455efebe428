package memory

import (
	"context"
	"fmt"

	"github.com/ledgerbook/ledger/internal/ledger/display"
	"github.com/ledgerbook/ledger/internal/ledger/model"
)

// QueueGateway stores queue rows in memory.
type QueueGateway struct {
	s *Store
}

// row strips the hydrated relations and rounds the date to the precision postgres keeps.
func row(q model.Queue) model.Queue {
	q.Customer = nil
	q.ProductOrders = nil
	q.Date = truncate(q.Date)
	return q
}

func checkCustomer(st *state, customerID *int64) error {
	if customerID == nil {
		return nil
	}
	if _, ok := st.customers[*customerID]; !ok {
		return fmt.Errorf("queue customer %d: %w", *customerID, ErrForeignKey)
	}
	return nil
}

func (g *QueueGateway) Insert(ctx context.Context, q model.Queue) (int64, error) {
	return g.s.write(ctx, func(st *state) (int64, error) {
		if err := checkCustomer(st, q.CustomerID); err != nil {
			return 0, err
		}
		id := st.allocate("queue", q.ID, func(id int64) bool { _, ok := st.queues[id]; return ok })
		if id == 0 {
			return 0, nil
		}
		q = row(q)
		q.ID = model.Int64(id)
		st.queues[id] = q
		return id, nil
	})
}

func (g *QueueGateway) Update(ctx context.Context, q model.Queue) (int64, error) {
	return g.s.write(ctx, func(st *state) (int64, error) {
		if q.ID == nil {
			return 0, nil
		}
		if _, ok := st.queues[*q.ID]; !ok {
			return 0, nil
		}
		if err := checkCustomer(st, q.CustomerID); err != nil {
			return 0, err
		}
		st.queues[*q.ID] = row(q)
		return 1, nil
	})
}

// Delete removes the queue together with its line items.
func (g *QueueGateway) Delete(ctx context.Context, id int64) (int64, error) {
	return g.s.write(ctx, func(st *state) (int64, error) {
		if _, ok := st.queues[id]; !ok {
			return 0, nil
		}
		delete(st.queues, id)
		for poID, po := range st.productOrders {
			if po.QueueID != nil && *po.QueueID == id {
				delete(st.productOrders, poID)
			}
		}
		return 1, nil
	})
}

func (g *QueueGateway) SelectAll(ctx context.Context) ([]model.Queue, error) {
	var out []model.Queue
	g.s.read(ctx, func(st *state) {
		out = make([]model.Queue, 0, len(st.queues))
		for _, id := range sortedKeys(st.queues) {
			out = append(out, st.queues[id])
		}
	})
	return out, nil
}

func (g *QueueGateway) SelectByID(ctx context.Context, id int64) (*model.Queue, error) {
	var out *model.Queue
	g.s.read(ctx, func(st *state) {
		if q, ok := st.queues[id]; ok {
			out = &q
		}
	})
	return out, nil
}

func (g *QueueGateway) SelectByIDs(ctx context.Context, ids []int64) ([]model.Queue, error) {
	wanted := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	out := []model.Queue{}
	g.s.read(ctx, func(st *state) {
		for _, id := range sortedKeys(st.queues) {
			if _, ok := wanted[id]; ok {
				out = append(out, st.queues[id])
			}
		}
	})
	return out, nil
}

func (g *QueueGateway) IsExistsByID(ctx context.Context, id int64) (bool, error) {
	q, err := g.SelectByID(ctx, id)
	return q != nil, err
}

func (g *QueueGateway) filtered(ctx context.Context, filters display.QueueFilters) []model.Queue {
	var hydrated []model.Queue
	g.s.read(ctx, func(st *state) {
		hydrated = make([]model.Queue, 0, len(st.queues))
		for _, id := range sortedKeys(st.queues) {
			hydrated = append(hydrated, st.hydrate(st.queues[id]))
		}
	})
	return display.QueueFilterer{Filters: filters}.Filter(hydrated)
}

func (g *QueueGateway) SelectAllPaginatedInfo(ctx context.Context, sort display.QueueSortMethod, filters display.QueueFilters) ([]model.QueuePaginatedInfo, error) {
	sorted := display.QueueSorter{Method: sort, Collation: g.s.collation}.Sort(g.filtered(ctx, filters))
	return infos(sorted), nil
}

func (g *QueueGateway) SelectPaginatedInfo(ctx context.Context, page display.PageRequest, sort display.QueueSortMethod, filters display.QueueFilters) ([]model.QueuePaginatedInfo, error) {
	sorted := display.QueueSorter{Method: sort, Collation: g.s.collation}.Sort(g.filtered(ctx, filters))
	return infos(display.Paginate(sorted, page)), nil
}

func (g *QueueGateway) CountFiltered(ctx context.Context, filters display.QueueFilters) (int64, error) {
	return int64(len(g.filtered(ctx, filters))), nil
}

func infos(queues []model.Queue) []model.QueuePaginatedInfo {
	out := make([]model.QueuePaginatedInfo, len(queues))
	for i, q := range queues {
		out[i] = model.NewQueuePaginatedInfo(q)
	}
	return out
}
