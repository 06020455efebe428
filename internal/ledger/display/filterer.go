package display

import (
	"slices"

	"github.com/ledgerbook/ledger/internal/ledger/model"
)

// CustomerFilterer selects customers in memory exactly like the filtered store query.
type CustomerFilterer struct {
	Filters CustomerFilters
}

// Matches reports whether c passes every filter. Debt is compared by magnitude.
func (f CustomerFilterer) Matches(c model.Customer) bool {
	return f.Filters.Balance.Contains(c.Balance) && f.Filters.Debt.Abs().Contains(c.Debt.Abs())
}

// Filter keeps the matching customers in their original order.
func (f CustomerFilterer) Filter(customers []model.Customer) []model.Customer {
	return filter(customers, f.Matches)
}

// ProductFilterer selects products in memory exactly like the filtered store query.
type ProductFilterer struct {
	Filters ProductFilters
}

// Matches reports whether p passes every filter.
func (f ProductFilterer) Matches(p model.Product) bool {
	return f.Filters.Price.Contains(p.Price)
}

// Filter keeps the matching products in their original order.
func (f ProductFilterer) Filter(products []model.Product) []model.Product {
	return filter(products, f.Matches)
}

// QueueFilterer selects hydrated queues in memory exactly like the filtered store query.
type QueueFilterer struct {
	Filters QueueFilters
}

// Matches reports whether q passes every filter.
func (f QueueFilterer) Matches(q model.Queue) bool {
	return f.matchesCustomer(q.CustomerID) &&
		f.matchesStatus(q.Status) &&
		f.Filters.TotalPrice.Contains(q.GrandTotalPrice()) &&
		f.Filters.Date.Contains(q.Date)
}

// Filter keeps the matching queues in their original order.
func (f QueueFilterer) Filter(queues []model.Queue) []model.Queue {
	return filter(queues, f.Matches)
}

func (f QueueFilterer) matchesCustomer(customerID *int64) bool {
	if customerID == nil {
		return f.Filters.NullCustomerShown
	}
	return len(f.Filters.CustomerIDs) == 0 || slices.Contains(f.Filters.CustomerIDs, *customerID)
}

func (f QueueFilterer) matchesStatus(status model.QueueStatus) bool {
	return len(f.Filters.Statuses) == 0 || slices.Contains(f.Filters.Statuses, status)
}

// SearchCustomers returns customers whose name contains every token of query, ordered by
// name then id.
func SearchCustomers(customers []model.Customer, query string, collation Collation) []model.Customer {
	tokens := SearchTokens(query)
	found := filter(customers, func(c model.Customer) bool { return MatchesSearch(c.Name, tokens) })
	return CustomerSorter{Method: CustomerSortMethod{SortBy: CustomerSortByName, Ascending: true}, Collation: collation}.Sort(found)
}

// SearchProducts returns products whose name contains every token of query, ordered by name
// then id.
func SearchProducts(products []model.Product, query string, collation Collation) []model.Product {
	tokens := SearchTokens(query)
	found := filter(products, func(p model.Product) bool { return MatchesSearch(p.Name, tokens) })
	return ProductSorter{Method: ProductSortMethod{SortBy: ProductSortByName, Ascending: true}, Collation: collation}.Sort(found)
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}
