package repository

import (
	"context"
	"fmt"

	"github.com/ledgerbook/ledger/internal/ledger/display"
	"github.com/ledgerbook/ledger/internal/ledger/model"
	"github.com/ledgerbook/ledger/internal/ledger/notify"
	"github.com/ledgerbook/ledger/internal/ledger/store"
)

// CustomerRepository coordinates customer reads and writes. Every customer it returns carries
// a debt freshly derived from the customer's unpaid queues.
type CustomerRepository struct {
	gateway   store.CustomerGateway
	listeners *notify.Registry[model.Customer]
	inst      instrument
}

// NewCustomerRepository builds the customer coordinator.
func NewCustomerRepository(gateway store.CustomerGateway, opts Options) *CustomerRepository {
	return &CustomerRepository{
		gateway:   gateway,
		listeners: notify.NewRegistry[model.Customer]("customer", opts.Dispatcher, opts.logger()),
		inst:      newInstrument("customer", opts),
	}
}

// Subscribe registers l for committed customer changes.
func (r *CustomerRepository) Subscribe(l notify.Listener[model.Customer]) (unsubscribe func()) {
	return r.listeners.Subscribe(l)
}

func (r *CustomerRepository) mapFields(ctx context.Context, c model.Customer) (model.Customer, error) {
	if c.ID == nil {
		return c, nil
	}
	debt, err := r.gateway.TotalDebtByID(ctx, *c.ID)
	if err != nil {
		return model.Customer{}, fmt.Errorf("repository: customer %d debt: %w", *c.ID, err)
	}
	return c.WithDebt(debt), nil
}

func (r *CustomerRepository) mapAll(ctx context.Context, customers []model.Customer) ([]model.Customer, error) {
	out := make([]model.Customer, len(customers))
	for i, c := range customers {
		mapped, err := r.mapFields(ctx, c)
		if err != nil {
			return nil, err
		}
		out[i] = mapped
	}
	return out, nil
}

func (r *CustomerRepository) SelectAll(ctx context.Context) ([]model.Customer, error) {
	customers, err := r.gateway.SelectAll(ctx)
	if err != nil {
		return nil, err
	}
	return r.mapAll(ctx, customers)
}

// SelectByID returns nil when the customer does not exist.
func (r *CustomerRepository) SelectByID(ctx context.Context, id int64) (*model.Customer, error) {
	c, err := r.gateway.SelectByID(ctx, id)
	if err != nil || c == nil {
		return nil, err
	}
	mapped, err := r.mapFields(ctx, *c)
	if err != nil {
		return nil, err
	}
	return &mapped, nil
}

// selectByKey resolves a nullable reference.
func (r *CustomerRepository) selectByKey(ctx context.Context, id *int64) (*model.Customer, error) {
	if id == nil {
		return nil, nil
	}
	return r.SelectByID(ctx, *id)
}

func (r *CustomerRepository) SelectByIDs(ctx context.Context, ids []int64) ([]model.Customer, error) {
	customers, err := r.gateway.SelectByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return r.mapAll(ctx, customers)
}

func (r *CustomerRepository) IsExistsByID(ctx context.Context, id int64) (bool, error) {
	return r.gateway.IsExistsByID(ctx, id)
}

// Add inserts c and returns its id, or 0 when c carries an id that is already taken.
func (r *CustomerRepository) Add(ctx context.Context, c model.Customer) (id int64, err error) {
	done := r.inst.write(ctx, "add")
	defer func() { done(id, err) }()

	id, err = r.gateway.Insert(ctx, c)
	if err != nil || id == 0 {
		return 0, err
	}
	added, err := r.SelectByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if added != nil {
		afterCommit(ctx, r.listeners, notify.EventAdded, *added)
	}
	return id, nil
}

// Update overwrites the stored customer. Debt on c is ignored.
func (r *CustomerRepository) Update(ctx context.Context, c model.Customer) (affected int64, err error) {
	done := r.inst.write(ctx, "update")
	defer func() { done(affected, err) }()

	affected, err = r.gateway.Update(ctx, c)
	if err != nil || affected == 0 {
		return 0, err
	}
	updated, err := r.SelectByID(ctx, *c.ID)
	if err != nil {
		return 0, err
	}
	if updated != nil {
		afterCommit(ctx, r.listeners, notify.EventUpdated, *updated)
	}
	return affected, nil
}

// Delete removes the customer. Queues that referenced it keep their rows with no customer.
func (r *CustomerRepository) Delete(ctx context.Context, id int64) (affected int64, err error) {
	done := r.inst.write(ctx, "delete")
	defer func() { done(affected, err) }()

	deleted, err := r.SelectByID(ctx, id)
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

// Search matches every whitespace separated token of query against customer names.
func (r *CustomerRepository) Search(ctx context.Context, query string) ([]model.Customer, error) {
	customers, err := r.gateway.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return r.mapAll(ctx, customers)
}

func (r *CustomerRepository) SelectPaginatedInfo(ctx context.Context, page display.PageRequest, sort display.CustomerSortMethod, filters display.CustomerFilters) ([]model.CustomerPaginatedInfo, error) {
	return r.gateway.SelectPaginatedInfo(ctx, page, sort, filters)
}

func (r *CustomerRepository) CountFiltered(ctx context.Context, filters display.CustomerFilters) (int64, error) {
	return r.gateway.CountFiltered(ctx, filters)
}

// SelectAllBalanceInfo lists customers holding a positive balance.
func (r *CustomerRepository) SelectAllBalanceInfo(ctx context.Context) ([]model.CustomerBalanceInfo, error) {
	return r.gateway.SelectAllBalanceInfo(ctx)
}

// SelectAllDebtInfo lists customers owing money.
func (r *CustomerRepository) SelectAllDebtInfo(ctx context.Context) ([]model.CustomerDebtInfo, error) {
	return r.gateway.SelectAllDebtInfo(ctx)
}
