// Package repository coordinates ledger writes across gateways. Coordinators own the
// reconciliation of customer balances, derive debt on read, and notify listeners once the
// surrounding transaction commits.
package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/ledgerbook/ledger/internal/ledger/notify"
	"github.com/ledgerbook/ledger/internal/ledger/store"
)

// Locker serializes writers across processes. Acquire takes every key or fails.
type Locker interface {
	Acquire(ctx context.Context, keys ...string) (release func(context.Context) error, err error)
}

// Options carries the collaborators shared by every coordinator. Zero values are valid: inline
// delivery, a discarding logger, no metrics and no cross-process locking.
type Options struct {
	Dispatcher notify.Dispatcher
	Logger     *slog.Logger
	Metrics    *Metrics
	Locker     Locker
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// Repositories groups the coordinators built over one store.
type Repositories struct {
	Customers     *CustomerRepository
	Products      *ProductRepository
	ProductOrders *ProductOrderRepository
	Queues        *QueueRepository
}

// New wires every coordinator over s.
func New(s store.Store, opts Options) *Repositories {
	customers := NewCustomerRepository(s.Customers, opts)
	productOrders := NewProductOrderRepository(s.Transactor, s.ProductOrders, opts)
	return &Repositories{
		Customers:     customers,
		Products:      NewProductRepository(s.Products, opts),
		ProductOrders: productOrders,
		Queues:        NewQueueRepository(s.Transactor, s.Queues, customers, productOrders, opts),
	}
}

// instrument records the outcome of coordinator writes.
type instrument struct {
	entity  string
	logger  *slog.Logger
	metrics *Metrics
}

func newInstrument(entity string, opts Options) instrument {
	return instrument{entity: entity, logger: opts.logger(), metrics: opts.Metrics}
}

// write starts timing op. The returned func takes the affected rows (or the inserted id) and
// the error of the write.
func (i instrument) write(ctx context.Context, op string) func(affected int64, err error) {
	start := time.Now()
	return func(affected int64, err error) {
		result := resultSuccess
		switch {
		case err != nil:
			result = resultFailure
			i.logger.ErrorContext(ctx, "ledger write failed",
				slog.String("entity", i.entity),
				slog.String("op", op),
				slog.Any("error", err))
		case affected == 0:
			result = resultNoop
		}
		i.metrics.observe(i.entity, op, result, time.Since(start))
	}
}

// afterCommit delivers models to the registry once the transaction carried by ctx commits.
func afterCommit[M any](ctx context.Context, registry *notify.Registry[M], event notify.Event, models ...M) {
	if len(models) == 0 {
		return
	}
	store.AfterCommit(ctx, func() { registry.Notify(event, models) })
}

func nonNil(ids ...*int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id != nil {
			out = append(out, *id)
		}
	}
	return out
}
