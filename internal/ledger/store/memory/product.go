package memory

import (
	"context"

	"github.com/ledgerbook/ledger/internal/ledger/display"
	"github.com/ledgerbook/ledger/internal/ledger/model"
)

// ProductGateway stores products in memory.
type ProductGateway struct {
	s *Store
}

func (g *ProductGateway) Insert(ctx context.Context, p model.Product) (int64, error) {
	return g.s.write(ctx, func(st *state) (int64, error) {
		id := st.allocate("product", p.ID, func(id int64) bool { _, ok := st.products[id]; return ok })
		if id == 0 {
			return 0, nil
		}
		p.ID = model.Int64(id)
		st.products[id] = p
		return id, nil
	})
}

func (g *ProductGateway) Update(ctx context.Context, p model.Product) (int64, error) {
	return g.s.write(ctx, func(st *state) (int64, error) {
		if p.ID == nil {
			return 0, nil
		}
		if _, ok := st.products[*p.ID]; !ok {
			return 0, nil
		}
		st.products[*p.ID] = p
		return 1, nil
	})
}

// Delete removes the product. Line items keep their snapshot and lose the reference.
func (g *ProductGateway) Delete(ctx context.Context, id int64) (int64, error) {
	return g.s.write(ctx, func(st *state) (int64, error) {
		if _, ok := st.products[id]; !ok {
			return 0, nil
		}
		delete(st.products, id)
		for poID, po := range st.productOrders {
			if po.ProductID != nil && *po.ProductID == id {
				po.ProductID = nil
				st.productOrders[poID] = po
			}
		}
		return 1, nil
	})
}

func (g *ProductGateway) SelectAll(ctx context.Context) ([]model.Product, error) {
	var out []model.Product
	g.s.read(ctx, func(st *state) {
		out = make([]model.Product, 0, len(st.products))
		for _, id := range sortedKeys(st.products) {
			out = append(out, st.products[id])
		}
	})
	return out, nil
}

func (g *ProductGateway) SelectByID(ctx context.Context, id int64) (*model.Product, error) {
	var out *model.Product
	g.s.read(ctx, func(st *state) {
		if p, ok := st.products[id]; ok {
			out = &p
		}
	})
	return out, nil
}

func (g *ProductGateway) SelectByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	out := []model.Product{}
	g.s.read(ctx, func(st *state) {
		for _, id := range sortedKeys(st.products) {
			for _, want := range ids {
				if want == id {
					out = append(out, st.products[id])
					break
				}
			}
		}
	})
	return out, nil
}

func (g *ProductGateway) IsExistsByID(ctx context.Context, id int64) (bool, error) {
	p, err := g.SelectByID(ctx, id)
	return p != nil, err
}

func (g *ProductGateway) Search(ctx context.Context, query string) ([]model.Product, error) {
	all, err := g.SelectAll(ctx)
	if err != nil {
		return nil, err
	}
	return display.SearchProducts(all, query, g.s.collation), nil
}

func (g *ProductGateway) SelectPaginatedInfo(ctx context.Context, page display.PageRequest, sort display.ProductSortMethod, filters display.ProductFilters) ([]model.Product, error) {
	all, err := g.SelectAll(ctx)
	if err != nil {
		return nil, err
	}
	filtered := display.ProductFilterer{Filters: filters}.Filter(all)
	sorted := display.ProductSorter{Method: sort, Collation: g.s.collation}.Sort(filtered)
	return display.Paginate(sorted, page), nil
}

func (g *ProductGateway) CountFiltered(ctx context.Context, filters display.ProductFilters) (int64, error) {
	all, err := g.SelectAll(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(display.ProductFilterer{Filters: filters}.Filter(all))), nil
}
