package memory

import (
	"context"
	"fmt"

	"github.com/ledgerbook/ledger/internal/ledger/model"
)

// ProductOrderGateway stores line items in memory.
type ProductOrderGateway struct {
	s *Store
}

func checkProductOrder(st *state, po model.ProductOrder) error {
	if po.QueueID != nil {
		if _, ok := st.queues[*po.QueueID]; !ok {
			return fmt.Errorf("product order queue %d: %w", *po.QueueID, ErrForeignKey)
		}
	}
	if po.ProductID != nil {
		if _, ok := st.products[*po.ProductID]; !ok {
			return fmt.Errorf("product order product %d: %w", *po.ProductID, ErrForeignKey)
		}
	}
	return nil
}

func (st *state) insertProductOrder(po model.ProductOrder) (int64, error) {
	if err := checkProductOrder(st, po); err != nil {
		return 0, err
	}
	id := st.allocate("product_order", po.ID, func(id int64) bool { _, ok := st.productOrders[id]; return ok })
	if id == 0 {
		return 0, nil
	}
	po.ID = model.Int64(id)
	st.productOrders[id] = po
	return id, nil
}

func (g *ProductOrderGateway) Insert(ctx context.Context, po model.ProductOrder) (int64, error) {
	return g.s.write(ctx, func(st *state) (int64, error) {
		return st.insertProductOrder(po)
	})
}

func (g *ProductOrderGateway) Update(ctx context.Context, po model.ProductOrder) (int64, error) {
	return g.s.write(ctx, func(st *state) (int64, error) {
		if po.ID == nil {
			return 0, nil
		}
		if _, ok := st.productOrders[*po.ID]; !ok {
			return 0, nil
		}
		if err := checkProductOrder(st, po); err != nil {
			return 0, err
		}
		st.productOrders[*po.ID] = po
		return 1, nil
	})
}

func (g *ProductOrderGateway) Upsert(ctx context.Context, po model.ProductOrder) (int64, error) {
	return g.s.write(ctx, func(st *state) (int64, error) {
		if po.ID == nil {
			return st.insertProductOrder(po)
		}
		if _, ok := st.productOrders[*po.ID]; !ok {
			return st.insertProductOrder(po)
		}
		if err := checkProductOrder(st, po); err != nil {
			return 0, err
		}
		st.productOrders[*po.ID] = po
		return *po.ID, nil
	})
}

func (g *ProductOrderGateway) Delete(ctx context.Context, id int64) (int64, error) {
	return g.s.write(ctx, func(st *state) (int64, error) {
		if _, ok := st.productOrders[id]; !ok {
			return 0, nil
		}
		delete(st.productOrders, id)
		return 1, nil
	})
}

func (g *ProductOrderGateway) SelectAll(ctx context.Context) ([]model.ProductOrder, error) {
	var out []model.ProductOrder
	g.s.read(ctx, func(st *state) {
		out = make([]model.ProductOrder, 0, len(st.productOrders))
		for _, id := range sortedKeys(st.productOrders) {
			out = append(out, st.productOrders[id])
		}
	})
	return out, nil
}

func (g *ProductOrderGateway) SelectByID(ctx context.Context, id int64) (*model.ProductOrder, error) {
	var out *model.ProductOrder
	g.s.read(ctx, func(st *state) {
		if po, ok := st.productOrders[id]; ok {
			out = &po
		}
	})
	return out, nil
}

func (g *ProductOrderGateway) SelectByIDs(ctx context.Context, ids []int64) ([]model.ProductOrder, error) {
	wanted := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	out := []model.ProductOrder{}
	g.s.read(ctx, func(st *state) {
		for _, id := range sortedKeys(st.productOrders) {
			if _, ok := wanted[id]; ok {
				out = append(out, st.productOrders[id])
			}
		}
	})
	return out, nil
}

func (g *ProductOrderGateway) SelectAllByQueueID(ctx context.Context, queueID int64) ([]model.ProductOrder, error) {
	var out []model.ProductOrder
	g.s.read(ctx, func(st *state) { out = st.productOrdersOf(queueID) })
	return out, nil
}
