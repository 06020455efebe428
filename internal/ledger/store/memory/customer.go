package memory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ledgerbook/ledger/internal/ledger/display"
	"github.com/ledgerbook/ledger/internal/ledger/model"
)

// CustomerGateway stores customers in memory.
type CustomerGateway struct {
	s *Store
}

func (g *CustomerGateway) Insert(ctx context.Context, c model.Customer) (int64, error) {
	return g.s.write(ctx, func(st *state) (int64, error) {
		id := st.allocate("customer", c.ID, func(id int64) bool { _, ok := st.customers[id]; return ok })
		if id == 0 {
			return 0, nil
		}
		c.ID = model.Int64(id)
		c.Debt = decimal.Zero
		st.customers[id] = c
		return id, nil
	})
}

func (g *CustomerGateway) Update(ctx context.Context, c model.Customer) (int64, error) {
	return g.s.write(ctx, func(st *state) (int64, error) {
		if c.ID == nil {
			return 0, nil
		}
		if _, ok := st.customers[*c.ID]; !ok {
			return 0, nil
		}
		c.Debt = decimal.Zero
		st.customers[*c.ID] = c
		return 1, nil
	})
}

// Delete removes the customer and clears the reference on its queues.
func (g *CustomerGateway) Delete(ctx context.Context, id int64) (int64, error) {
	return g.s.write(ctx, func(st *state) (int64, error) {
		if _, ok := st.customers[id]; !ok {
			return 0, nil
		}
		delete(st.customers, id)
		for qid, q := range st.queues {
			if q.CustomerID != nil && *q.CustomerID == id {
				q.CustomerID = nil
				st.queues[qid] = q
			}
		}
		return 1, nil
	})
}

func (g *CustomerGateway) SelectAll(ctx context.Context) ([]model.Customer, error) {
	var out []model.Customer
	g.s.read(ctx, func(st *state) {
		out = make([]model.Customer, 0, len(st.customers))
		for _, id := range sortedKeys(st.customers) {
			out = append(out, st.customers[id])
		}
	})
	return out, nil
}

func (g *CustomerGateway) SelectByID(ctx context.Context, id int64) (*model.Customer, error) {
	var out *model.Customer
	g.s.read(ctx, func(st *state) {
		if c, ok := st.customers[id]; ok {
			out = &c
		}
	})
	return out, nil
}

func (g *CustomerGateway) SelectByIDs(ctx context.Context, ids []int64) ([]model.Customer, error) {
	all, err := g.SelectAll(ctx)
	if err != nil {
		return nil, err
	}
	wanted := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	out := []model.Customer{}
	for _, c := range all {
		if _, ok := wanted[*c.ID]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (g *CustomerGateway) IsExistsByID(ctx context.Context, id int64) (bool, error) {
	c, err := g.SelectByID(ctx, id)
	return c != nil, err
}

func (g *CustomerGateway) Search(ctx context.Context, query string) ([]model.Customer, error) {
	all, err := g.SelectAll(ctx)
	if err != nil {
		return nil, err
	}
	return display.SearchCustomers(all, query, g.s.collation), nil
}

// withDebt returns every customer with its aggregate debt, ordered by id.
func (g *CustomerGateway) withDebt(ctx context.Context) []model.Customer {
	var out []model.Customer
	g.s.read(ctx, func(st *state) {
		out = make([]model.Customer, 0, len(st.customers))
		for _, id := range sortedKeys(st.customers) {
			out = append(out, st.customers[id].WithDebt(st.totalDebt(id)))
		}
	})
	return out
}

func (g *CustomerGateway) filtered(ctx context.Context, filters display.CustomerFilters) []model.Customer {
	return display.CustomerFilterer{Filters: filters}.Filter(g.withDebt(ctx))
}

func (g *CustomerGateway) SelectPaginatedInfo(ctx context.Context, page display.PageRequest, sort display.CustomerSortMethod, filters display.CustomerFilters) ([]model.CustomerPaginatedInfo, error) {
	sorted := display.CustomerSorter{Method: sort, Collation: g.s.collation}.Sort(g.filtered(ctx, filters))
	rows := display.Paginate(sorted, page)
	out := make([]model.CustomerPaginatedInfo, len(rows))
	for i, c := range rows {
		out[i] = model.NewCustomerPaginatedInfo(c)
	}
	return out, nil
}

func (g *CustomerGateway) CountFiltered(ctx context.Context, filters display.CustomerFilters) (int64, error) {
	return int64(len(g.filtered(ctx, filters))), nil
}

func (g *CustomerGateway) TotalDebtByID(ctx context.Context, id int64) (decimal.Decimal, error) {
	debt := decimal.Zero
	g.s.read(ctx, func(st *state) { debt = st.totalDebt(id) })
	return debt, nil
}

func (g *CustomerGateway) SelectAllBalanceInfo(ctx context.Context) ([]model.CustomerBalanceInfo, error) {
	out := []model.CustomerBalanceInfo{}
	for _, c := range g.withDebt(ctx) {
		if c.Balance > 0 {
			out = append(out, model.CustomerBalanceInfo{ID: *c.ID, Balance: c.Balance})
		}
	}
	return out, nil
}

func (g *CustomerGateway) SelectAllDebtInfo(ctx context.Context) ([]model.CustomerDebtInfo, error) {
	out := []model.CustomerDebtInfo{}
	for _, c := range g.withDebt(ctx) {
		if c.Debt.IsNegative() {
			out = append(out, model.CustomerDebtInfo{ID: *c.ID, Debt: c.Debt})
		}
	}
	return out, nil
}
