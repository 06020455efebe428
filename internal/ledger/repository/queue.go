package repository

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/ledgerbook/ledger/internal/ledger/display"
	"github.com/ledgerbook/ledger/internal/ledger/model"
	"github.com/ledgerbook/ledger/internal/ledger/notify"
	"github.com/ledgerbook/ledger/internal/ledger/store"
	"github.com/ledgerbook/ledger/internal/shared"
)

// QueueRepository coordinates queue writes with their line items and the balance of the
// customers involved. Every write runs in a single transaction.
type QueueRepository struct {
	tx            store.Transactor
	gateway       store.QueueGateway
	customers     *CustomerRepository
	productOrders *ProductOrderRepository
	locker        Locker
	listeners     *notify.Registry[model.Queue]
	inst          instrument
}

func NewQueueRepository(tx store.Transactor, gateway store.QueueGateway, customers *CustomerRepository, productOrders *ProductOrderRepository, opts Options) *QueueRepository {
	return &QueueRepository{
		tx:            tx,
		gateway:       gateway,
		customers:     customers,
		productOrders: productOrders,
		locker:        opts.Locker,
		listeners:     notify.NewRegistry[model.Queue]("queue", opts.Dispatcher, opts.logger()),
		inst:          newInstrument("queue", opts),
	}
}

func (r *QueueRepository) Subscribe(l notify.Listener[model.Queue]) (unsubscribe func()) {
	return r.listeners.Subscribe(l)
}

// hydrate attaches the referenced customer and the line items.
func (r *QueueRepository) hydrate(ctx context.Context, q model.Queue) (model.Queue, error) {
	customer, err := r.customers.selectByKey(ctx, q.CustomerID)
	if err != nil {
		return model.Queue{}, err
	}
	q.Customer = customer
	q.ProductOrders = []model.ProductOrder{}
	if q.ID != nil {
		orders, err := r.productOrders.SelectAllByQueueID(ctx, *q.ID)
		if err != nil {
			return model.Queue{}, err
		}
		q.ProductOrders = orders
	}
	return q, nil
}

func (r *QueueRepository) hydrateAll(ctx context.Context, queues []model.Queue) ([]model.Queue, error) {
	out := make([]model.Queue, len(queues))
	for i, q := range queues {
		hydrated, err := r.hydrate(ctx, q)
		if err != nil {
			return nil, err
		}
		out[i] = hydrated
	}
	return out, nil
}

func (r *QueueRepository) SelectAll(ctx context.Context) ([]model.Queue, error) {
	queues, err := r.gateway.SelectAll(ctx)
	if err != nil {
		return nil, err
	}
	return r.hydrateAll(ctx, queues)
}

// SelectByID returns the hydrated queue, or nil when it does not exist.
func (r *QueueRepository) SelectByID(ctx context.Context, id int64) (*model.Queue, error) {
	q, err := r.gateway.SelectByID(ctx, id)
	if err != nil || q == nil {
		return nil, err
	}
	hydrated, err := r.hydrate(ctx, *q)
	if err != nil {
		return nil, err
	}
	return &hydrated, nil
}

func (r *QueueRepository) SelectByIDs(ctx context.Context, ids []int64) ([]model.Queue, error) {
	queues, err := r.gateway.SelectByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return r.hydrateAll(ctx, queues)
}

func (r *QueueRepository) IsExistsByID(ctx context.Context, id int64) (bool, error) {
	return r.gateway.IsExistsByID(ctx, id)
}

// SelectAllPaginatedInfo returns every matching row in display order, without a page window.
func (r *QueueRepository) SelectAllPaginatedInfo(ctx context.Context, sort display.QueueSortMethod, filters display.QueueFilters) ([]model.QueuePaginatedInfo, error) {
	return r.gateway.SelectAllPaginatedInfo(ctx, sort, filters)
}

func (r *QueueRepository) SelectPaginatedInfo(ctx context.Context, page display.PageRequest, sort display.QueueSortMethod, filters display.QueueFilters) ([]model.QueuePaginatedInfo, error) {
	return r.gateway.SelectPaginatedInfo(ctx, page, sort, filters)
}

func (r *QueueRepository) CountFiltered(ctx context.Context, filters display.QueueFilters) (int64, error) {
	return r.gateway.CountFiltered(ctx, filters)
}

// Add inserts q with its line items and charges the customer when q is paid from the account
// balance. It returns the new id, or 0 without side effects when q carries a taken id.
func (r *QueueRepository) Add(ctx context.Context, q model.Queue) (id int64, err error) {
	done := r.inst.write(ctx, "add")
	defer func() { done(id, err) }()

	err = r.lockedTx(ctx, []*int64{q.CustomerID}, func(ctx context.Context, _ []int64) error {
		insertedID, err := r.gateway.Insert(ctx, q)
		if err != nil || insertedID == 0 {
			return err
		}
		orders := make([]model.ProductOrder, len(q.ProductOrders))
		for i, po := range q.ProductOrders {
			orders[i] = po.WithQueueID(&insertedID)
		}
		if _, err := r.productOrders.AddMany(ctx, orders); err != nil {
			return err
		}

		inserted, err := r.SelectByID(ctx, insertedID)
		if err != nil {
			return err
		}
		if inserted != nil && inserted.Customer != nil {
			customer := *inserted.Customer
			if _, err := r.customers.Update(ctx, customer.WithBalance(customer.BalanceOnMadePayment(*inserted))); err != nil {
				return err
			}
		}

		// Re-read so listeners see the charged customer.
		added, err := r.SelectByID(ctx, insertedID)
		if err != nil {
			return err
		}
		if added != nil {
			afterCommit(ctx, r.listeners, notify.EventAdded, *added)
		}
		id = insertedID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Update replaces the stored queue with q. Line items missing from q are deleted, the rest are
// upserted. A previous customer that no longer owns the queue gets its payment reverted before
// the current customer is settled, so a switch never double counts.
func (r *QueueRepository) Update(ctx context.Context, q model.Queue) (affected int64, err error) {
	done := r.inst.write(ctx, "update")
	defer func() { done(affected, err) }()

	if q.ID == nil {
		return 0, nil
	}
	current, err := r.gateway.SelectByID(ctx, *q.ID)
	if err != nil || current == nil {
		return 0, err
	}
	err = r.lockedTx(ctx, []*int64{current.CustomerID, q.CustomerID}, func(ctx context.Context, locked []int64) error {
		old, err := r.SelectByID(ctx, *q.ID)
		if err != nil || old == nil {
			return err
		}
		if r.locker != nil && old.CustomerID != nil && !slices.Contains(locked, *old.CustomerID) {
			return fmt.Errorf("repository: queue %d customer changed while locking: %w", *q.ID, shared.ErrLockNotAcquired)
		}

		if err := r.syncProductOrders(ctx, *old, q); err != nil {
			return err
		}

		oldCustomer, err := r.customers.selectByKey(ctx, old.CustomerID)
		if err != nil {
			return err
		}
		newCustomer, err := r.customers.selectByKey(ctx, q.CustomerID)
		if err != nil {
			return err
		}
		if oldCustomer != nil && (newCustomer == nil || !model.SameID(oldCustomer.ID, newCustomer.ID)) {
			reverted := oldCustomer.WithBalance(oldCustomer.BalanceOnRevertedPayment(*old))
			if _, err := r.customers.Update(ctx, reverted); err != nil {
				return err
			}
		}
		if newCustomer != nil {
			incoming := q.Clone()
			incoming.Customer = newCustomer
			settled := newCustomer.WithBalance(newCustomer.BalanceOnUpdatedPayment(*old, incoming))
			if _, err := r.customers.Update(ctx, settled); err != nil {
				return err
			}
		}

		n, err := r.gateway.Update(ctx, q)
		if err != nil || n == 0 {
			return err
		}
		updated, err := r.SelectByID(ctx, *q.ID)
		if err != nil {
			return err
		}
		if updated != nil {
			afterCommit(ctx, r.listeners, notify.EventUpdated, *updated)
		}
		affected = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// syncProductOrders upserts the line items of next and deletes those of old it no longer holds.
func (r *QueueRepository) syncProductOrders(ctx context.Context, old, next model.Queue) error {
	keep := make(map[int64]struct{}, len(next.ProductOrders))
	upserts := make([]model.ProductOrder, len(next.ProductOrders))
	for i, po := range next.ProductOrders {
		upserts[i] = po.WithQueueID(next.ID)
		if po.ID != nil {
			keep[*po.ID] = struct{}{}
		}
	}
	var deletes []int64
	for _, po := range old.ProductOrders {
		if po.ID == nil {
			continue
		}
		if _, ok := keep[*po.ID]; !ok {
			deletes = append(deletes, *po.ID)
		}
	}
	if _, err := r.productOrders.UpsertMany(ctx, upserts); err != nil {
		return err
	}
	_, err := r.productOrders.DeleteMany(ctx, deletes)
	return err
}

// Delete removes the queue and its line items and refunds a payment made from the customer's
// balance. Debt needs no write: it is derived from the remaining unpaid queues.
func (r *QueueRepository) Delete(ctx context.Context, id int64) (affected int64, err error) {
	done := r.inst.write(ctx, "delete")
	defer func() { done(affected, err) }()

	current, err := r.gateway.SelectByID(ctx, id)
	if err != nil || current == nil {
		return 0, err
	}
	err = r.lockedTx(ctx, []*int64{current.CustomerID}, func(ctx context.Context, locked []int64) error {
		deleted, err := r.SelectByID(ctx, id)
		if err != nil || deleted == nil {
			return err
		}
		if r.locker != nil && deleted.CustomerID != nil && !slices.Contains(locked, *deleted.CustomerID) {
			return fmt.Errorf("repository: queue %d customer changed while locking: %w", id, shared.ErrLockNotAcquired)
		}
		n, err := r.gateway.Delete(ctx, id)
		if err != nil || n == 0 {
			return err
		}
		customer, err := r.customers.selectByKey(ctx, deleted.CustomerID)
		if err != nil {
			return err
		}
		if customer != nil {
			if _, err := r.customers.Update(ctx, customer.WithBalance(customer.BalanceOnRevertedPayment(*deleted))); err != nil {
				return err
			}
		}
		afterCommit(ctx, r.listeners, notify.EventDeleted, *deleted)
		affected = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// lock takes the per-customer locks of every non-nil id. Without a Locker it only reports the
// ids. The returned func must be called once the write is over.
// lockedTx runs fn in a transaction while holding the locks of customerIDs. The locks are
// released before any after-commit hook runs.
func (r *QueueRepository) lockedTx(ctx context.Context, customerIDs []*int64, fn func(ctx context.Context, locked []int64) error) (err error) {
	ctx, finish := store.JoinScope(ctx)
	defer func() { finish(err) }()

	unlock, locked, err := r.lock(ctx, customerIDs...)
	if err != nil {
		return err
	}
	defer unlock()

	return r.tx.WithinTx(ctx, func(ctx context.Context) error {
		return fn(ctx, locked)
	})
}

func (r *QueueRepository) lock(ctx context.Context, customerIDs ...*int64) (func(), []int64, error) {
	ids := nonNil(customerIDs...)
	if r.locker == nil || len(ids) == 0 {
		return func() {}, ids, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = shared.CustomerLockKey(id)
	}
	release, err := r.locker.Acquire(ctx, keys...)
	if err != nil {
		return nil, nil, fmt.Errorf("repository: lock customers %v: %w", ids, err)
	}
	return func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			r.inst.logger.WarnContext(ctx, "release customer locks", slog.Any("customers", ids), slog.Any("error", err))
		}
	}, ids, nil
}
