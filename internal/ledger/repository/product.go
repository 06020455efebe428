package repository

import (
	"context"

	"github.com/ledgerbook/ledger/internal/ledger/display"
	"github.com/ledgerbook/ledger/internal/ledger/model"
	"github.com/ledgerbook/ledger/internal/ledger/notify"
	"github.com/ledgerbook/ledger/internal/ledger/store"
)

// ProductRepository coordinates product reads and writes.
type ProductRepository struct {
	gateway   store.ProductGateway
	listeners *notify.Registry[model.Product]
	inst      instrument
}

func NewProductRepository(gateway store.ProductGateway, opts Options) *ProductRepository {
	return &ProductRepository{
		gateway:   gateway,
		listeners: notify.NewRegistry[model.Product]("product", opts.Dispatcher, opts.logger()),
		inst:      newInstrument("product", opts),
	}
}

func (r *ProductRepository) Subscribe(l notify.Listener[model.Product]) (unsubscribe func()) {
	return r.listeners.Subscribe(l)
}

func (r *ProductRepository) SelectAll(ctx context.Context) ([]model.Product, error) {
	return r.gateway.SelectAll(ctx)
}

func (r *ProductRepository) SelectByID(ctx context.Context, id int64) (*model.Product, error) {
	return r.gateway.SelectByID(ctx, id)
}

func (r *ProductRepository) SelectByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	return r.gateway.SelectByIDs(ctx, ids)
}

func (r *ProductRepository) IsExistsByID(ctx context.Context, id int64) (bool, error) {
	return r.gateway.IsExistsByID(ctx, id)
}

func (r *ProductRepository) Add(ctx context.Context, p model.Product) (id int64, err error) {
	done := r.inst.write(ctx, "add")
	defer func() { done(id, err) }()

	id, err = r.gateway.Insert(ctx, p)
	if err != nil || id == 0 {
		return 0, err
	}
	added, err := r.gateway.SelectByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if added != nil {
		afterCommit(ctx, r.listeners, notify.EventAdded, *added)
	}
	return id, nil
}

func (r *ProductRepository) Update(ctx context.Context, p model.Product) (affected int64, err error) {
	done := r.inst.write(ctx, "update")
	defer func() { done(affected, err) }()

	affected, err = r.gateway.Update(ctx, p)
	if err != nil || affected == 0 {
		return 0, err
	}
	updated, err := r.gateway.SelectByID(ctx, *p.ID)
	if err != nil {
		return 0, err
	}
	if updated != nil {
		afterCommit(ctx, r.listeners, notify.EventUpdated, *updated)
	}
	return affected, nil
}

// Delete removes the product. Line items keep their name and price snapshots.
func (r *ProductRepository) Delete(ctx context.Context, id int64) (affected int64, err error) {
	done := r.inst.write(ctx, "delete")
	defer func() { done(affected, err) }()

	deleted, err := r.gateway.SelectByID(ctx, id)
	if err != nil || deleted == nil {
		return 0, err
	}
	affected, err = r.gateway.Delete(ctx, id)
	if err != nil || affected == 0 {
		return 0, err
	}
	afterCommit(ctx, r.listeners, notify.EventDeleted, *deleted)
	return affected, nil
}

func (r *ProductRepository) Search(ctx context.Context, query string) ([]model.Product, error) {
	return r.gateway.Search(ctx, query)
}

func (r *ProductRepository) SelectPaginatedInfo(ctx context.Context, page display.PageRequest, sort display.ProductSortMethod, filters display.ProductFilters) ([]model.Product, error) {
	return r.gateway.SelectPaginatedInfo(ctx, page, sort, filters)
}

func (r *ProductRepository) CountFiltered(ctx context.Context, filters display.ProductFilters) (int64, error) {
	return r.gateway.CountFiltered(ctx, filters)
}
