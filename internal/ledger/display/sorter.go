package display

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerbook/ledger/internal/ledger/model"
)

// CustomerSorter orders customers in memory exactly like the paginated store query.
type CustomerSorter struct {
	Method    CustomerSortMethod
	Collation Collation
}

// Sort returns a sorted copy. Equal keys fall back to id ascending in both directions.
func (s CustomerSorter) Sort(customers []model.Customer) []model.Customer {
	out := append([]model.Customer(nil), customers...)
	compareName := s.Collation.Comparator()
	sort.SliceStable(out, func(i, j int) bool {
		var cmp int
		switch s.Method.SortBy {
		case CustomerSortByBalance:
			cmp = compareInt64(out[i].Balance, out[j].Balance)
		default:
			cmp = compareName(out[i].Name, out[j].Name)
		}
		if cmp = direction(cmp, s.Method.Ascending); cmp != 0 {
			return cmp < 0
		}
		return compareID(out[i].ID, out[j].ID) < 0
	})
	return out
}

// ProductSorter orders products in memory exactly like the paginated store query.
type ProductSorter struct {
	Method    ProductSortMethod
	Collation Collation
}

// Sort returns a sorted copy. Equal keys fall back to id ascending in both directions.
func (s ProductSorter) Sort(products []model.Product) []model.Product {
	out := append([]model.Product(nil), products...)
	compareName := s.Collation.Comparator()
	sort.SliceStable(out, func(i, j int) bool {
		var cmp int
		switch s.Method.SortBy {
		case ProductSortByPrice:
			cmp = compareInt64(out[i].Price, out[j].Price)
		default:
			cmp = compareName(out[i].Name, out[j].Name)
		}
		if cmp = direction(cmp, s.Method.Ascending); cmp != 0 {
			return cmp < 0
		}
		return compareID(out[i].ID, out[j].ID) < 0
	})
	return out
}

// QueueSorter orders hydrated queues in memory exactly like the paginated store query.
type QueueSorter struct {
	Method    QueueSortMethod
	Collation Collation
}

type queueKey struct {
	id    *int64
	name  *string
	date  time.Time
	total decimal.Decimal
}

// Sort returns a sorted copy. Queues without a customer rank above every name, so they come
// last ascending and first descending. Equal keys fall back to id ascending.
func (s QueueSorter) Sort(queues []model.Queue) []model.Queue {
	keys := make([]queueKey, len(queues))
	for i, q := range queues {
		info := model.NewQueuePaginatedInfo(q)
		keys[i] = queueKey{id: info.ID, name: info.CustomerName, date: info.Date, total: info.GrandTotalPrice}
	}
	order := s.order(keys)
	out := make([]model.Queue, len(order))
	for i, idx := range order {
		out[i] = queues[idx]
	}
	return out
}

// SortInfo orders paginated queue rows with the same rules as Sort.
func (s QueueSorter) SortInfo(rows []model.QueuePaginatedInfo) []model.QueuePaginatedInfo {
	keys := make([]queueKey, len(rows))
	for i, row := range rows {
		keys[i] = queueKey{id: row.ID, name: row.CustomerName, date: row.Date, total: row.GrandTotalPrice}
	}
	order := s.order(keys)
	out := make([]model.QueuePaginatedInfo, len(order))
	for i, idx := range order {
		out[i] = rows[idx]
	}
	return out
}

func (s QueueSorter) order(keys []queueKey) []int {
	compareName := s.Collation.Comparator()
	order := make([]int, len(keys))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := keys[order[i]], keys[order[j]]
		var cmp int
		switch s.Method.SortBy {
		case QueueSortByDate:
			cmp = a.date.Compare(b.date)
		case QueueSortByTotalPrice:
			cmp = a.total.Cmp(b.total)
		default:
			cmp = compareNullableName(compareName, a.name, b.name)
		}
		if cmp = direction(cmp, s.Method.Ascending); cmp != 0 {
			return cmp < 0
		}
		return compareID(a.id, b.id) < 0
	})
	return order
}

func compareNullableName(compare func(a, b string) int, a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return compare(*a, *b)
}
