package main

import (
	"log/slog"

	"github.com/ledgerbook/ledger/internal/ledger/model"
	"github.com/ledgerbook/ledger/internal/ledger/notify"
	"github.com/ledgerbook/ledger/internal/ledger/repository"
)

// subscribeChangeLog logs every committed change at debug level.
func subscribeChangeLog(repos *repository.Repositories, logger *slog.Logger) (unsubscribe func()) {
	unsubs := []func(){
		repos.Customers.Subscribe(changeLog(logger, "customer", func(c model.Customer) *int64 { return c.ID })),
		repos.Products.Subscribe(changeLog(logger, "product", func(p model.Product) *int64 { return p.ID })),
		repos.ProductOrders.Subscribe(changeLog(logger, "product_order", func(po model.ProductOrder) *int64 { return po.ID })),
		repos.Queues.Subscribe(changeLog(logger, "queue", func(q model.Queue) *int64 { return q.ID })),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func changeLog[M any](logger *slog.Logger, entity string, id func(M) *int64) notify.Funcs[M] {
	log := func(event notify.Event) func([]M) {
		return func(models []M) {
			ids := make([]int64, 0, len(models))
			for _, m := range models {
				if v := id(m); v != nil {
					ids = append(ids, *v)
				}
			}
			logger.Debug("ledger change",
				slog.String("entity", entity),
				slog.String("event", string(event)),
				slog.Any("ids", ids))
		}
	}
	return notify.Funcs[M]{
		Added:    log(notify.EventAdded),
		Updated:  log(notify.EventUpdated),
		Deleted:  log(notify.EventDeleted),
		Upserted: log(notify.EventUpserted),
	}
}
