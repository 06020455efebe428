package repository

import (
	"context"

	"github.com/ledgerbook/ledger/internal/ledger/model"
	"github.com/ledgerbook/ledger/internal/ledger/notify"
	"github.com/ledgerbook/ledger/internal/ledger/store"
)

// ProductOrderRepository coordinates line item writes. Batch variants run in one transaction
// and notify listeners once per batch.
type ProductOrderRepository struct {
	tx        store.Transactor
	gateway   store.ProductOrderGateway
	listeners *notify.Registry[model.ProductOrder]
	inst      instrument
}

func NewProductOrderRepository(tx store.Transactor, gateway store.ProductOrderGateway, opts Options) *ProductOrderRepository {
	return &ProductOrderRepository{
		tx:        tx,
		gateway:   gateway,
		listeners: notify.NewRegistry[model.ProductOrder]("product_order", opts.Dispatcher, opts.logger()),
		inst:      newInstrument("product_order", opts),
	}
}

func (r *ProductOrderRepository) Subscribe(l notify.Listener[model.ProductOrder]) (unsubscribe func()) {
	return r.listeners.Subscribe(l)
}

func (r *ProductOrderRepository) SelectAll(ctx context.Context) ([]model.ProductOrder, error) {
	return r.gateway.SelectAll(ctx)
}

func (r *ProductOrderRepository) SelectByID(ctx context.Context, id int64) (*model.ProductOrder, error) {
	return r.gateway.SelectByID(ctx, id)
}

func (r *ProductOrderRepository) SelectByIDs(ctx context.Context, ids []int64) ([]model.ProductOrder, error) {
	return r.gateway.SelectByIDs(ctx, ids)
}

func (r *ProductOrderRepository) SelectAllByQueueID(ctx context.Context, queueID int64) ([]model.ProductOrder, error) {
	return r.gateway.SelectAllByQueueID(ctx, queueID)
}

// Add inserts po and returns its id, 0 on an id collision.
func (r *ProductOrderRepository) Add(ctx context.Context, po model.ProductOrder) (int64, error) {
	ids, err := r.AddMany(ctx, []model.ProductOrder{po})
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	return ids[0], nil
}

// AddMany inserts every line item and returns the ids that were assigned. Colliding items are
// skipped.
func (r *ProductOrderRepository) AddMany(ctx context.Context, orders []model.ProductOrder) (ids []int64, err error) {
	done := r.inst.write(ctx, "add")
	defer func() { done(int64(len(ids)), err) }()

	err = r.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, po := range orders {
			id, err := r.gateway.Insert(ctx, po)
			if err != nil {
				return err
			}
			if id != 0 {
				ids = append(ids, id)
			}
		}
		return r.notifyByIDs(ctx, notify.EventAdded, ids)
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *ProductOrderRepository) Update(ctx context.Context, po model.ProductOrder) (int64, error) {
	return r.UpdateMany(ctx, []model.ProductOrder{po})
}

// UpdateMany overwrites every stored line item and returns the number of rows touched.
func (r *ProductOrderRepository) UpdateMany(ctx context.Context, orders []model.ProductOrder) (affected int64, err error) {
	done := r.inst.write(ctx, "update")
	defer func() { done(affected, err) }()

	err = r.tx.WithinTx(ctx, func(ctx context.Context) error {
		var ids []int64
		for _, po := range orders {
			n, err := r.gateway.Update(ctx, po)
			if err != nil {
				return err
			}
			if n > 0 {
				affected += n
				ids = append(ids, *po.ID)
			}
		}
		return r.notifyByIDs(ctx, notify.EventUpdated, ids)
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func (r *ProductOrderRepository) Delete(ctx context.Context, id int64) (int64, error) {
	return r.DeleteMany(ctx, []int64{id})
}

// DeleteMany removes the line items and notifies listeners with their last stored state.
func (r *ProductOrderRepository) DeleteMany(ctx context.Context, ids []int64) (affected int64, err error) {
	done := r.inst.write(ctx, "delete")
	defer func() { done(affected, err) }()

	if len(ids) == 0 {
		return 0, nil
	}
	err = r.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := r.gateway.SelectByIDs(ctx, ids)
		if err != nil {
			return err
		}
		deleted := make([]model.ProductOrder, 0, len(existing))
		for _, po := range existing {
			n, err := r.gateway.Delete(ctx, *po.ID)
			if err != nil {
				return err
			}
			if n > 0 {
				affected += n
				deleted = append(deleted, po)
			}
		}
		afterCommit(ctx, r.listeners, notify.EventDeleted, deleted...)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// Upsert inserts po or overwrites the row with its id, returning the row id.
func (r *ProductOrderRepository) Upsert(ctx context.Context, po model.ProductOrder) (int64, error) {
	ids, err := r.UpsertMany(ctx, []model.ProductOrder{po})
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	return ids[0], nil
}

// UpsertMany upserts every line item and returns the resulting row ids in input order.
func (r *ProductOrderRepository) UpsertMany(ctx context.Context, orders []model.ProductOrder) (ids []int64, err error) {
	done := r.inst.write(ctx, "upsert")
	defer func() { done(int64(len(ids)), err) }()

	err = r.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, po := range orders {
			id, err := r.gateway.Upsert(ctx, po)
			if err != nil {
				return err
			}
			if id != 0 {
				ids = append(ids, id)
			}
		}
		return r.notifyByIDs(ctx, notify.EventUpserted, ids)
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// notifyByIDs re-reads the rows so listeners see stored state, not the caller's input.
func (r *ProductOrderRepository) notifyByIDs(ctx context.Context, event notify.Event, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	orders, err := r.gateway.SelectByIDs(ctx, ids)
	if err != nil {
		return err
	}
	afterCommit(ctx, r.listeners, event, orders...)
	return nil
}
