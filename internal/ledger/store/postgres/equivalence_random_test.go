//go:build integration

package postgres_test

import (
	"context"
	"math/rand/v2"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ledgerbook/ledger/internal/ledger/display"
	"github.com/ledgerbook/ledger/internal/ledger/model"
)

const randomCases = 40

func randomInt64Range(r *rand.Rand, limit int) display.Int64Range {
	var out display.Int64Range
	if r.IntN(2) == 0 {
		out.Min = int64Ptr(int64(r.IntN(limit)))
	}
	if r.IntN(2) == 0 {
		out.Max = int64Ptr(int64(r.IntN(limit)))
	}
	return out
}

func randomDecimalRange(r *rand.Rand, limit int, negative bool) display.DecimalRange {
	bound := func() *decimal.Decimal {
		v := int64(r.IntN(limit))
		if negative && r.IntN(2) == 0 {
			v = -v
		}
		return decimalPtr(v)
	}
	var out display.DecimalRange
	if r.IntN(2) == 0 {
		out.Min = bound()
	}
	if r.IntN(2) == 0 {
		out.Max = bound()
	}
	return out
}

func randomPage(r *rand.Rand) display.PageRequest {
	if r.IntN(6) == 0 {
		return display.PageRequest{}
	}
	return display.PageRequest{Number: r.IntN(5), Size: 1 + r.IntN(15)}
}

func (s *EquivalenceSuite) randomQueueFilters(r *rand.Rand) display.QueueFilters {
	f := display.QueueFilters{NullCustomerShown: r.IntN(2) == 0}
	for _, id := range s.customers {
		if r.IntN(4) == 0 {
			f.CustomerIDs = append(f.CustomerIDs, id)
		}
	}
	if r.IntN(8) == 0 {
		f.CustomerIDs = append(f.CustomerIDs, 9999)
	}
	for _, status := range model.QueueStatuses() {
		if r.IntN(2) == 0 {
			f.Statuses = append(f.Statuses, status)
		}
	}
	if r.IntN(3) == 0 {
		f.TotalPrice = randomDecimalRange(r, 700, false)
	}
	presets := []display.QueueDateRange{
		display.QueueDateAllTime,
		display.QueueDateToday,
		display.QueueDateYesterday,
		display.QueueDateThisWeek,
		display.QueueDateThisMonth,
		display.QueueDateThisYear,
	}
	switch r.IntN(3) {
	case 0:
		f.Date = display.NewQueueDate(presets[r.IntN(len(presets))], s.now)
	case 1:
		start := s.now.AddDate(0, 0, -r.IntN(400))
		f.Date = display.CustomQueueDate(start, start.AddDate(0, 0, r.IntN(120)))
	}
	return f
}

func (s *EquivalenceSuite) TestRandomQueueListings() {
	ctx := context.Background()
	r := rand.New(rand.NewPCG(19, 23))
	sorts := []display.QueueSortBy{display.QueueSortByCustomerName, display.QueueSortByDate, display.QueueSortByTotalPrice}

	for i := 0; i < randomCases; i++ {
		f := s.randomQueueFilters(r)
		sort := display.QueueSortMethod{SortBy: sorts[r.IntN(len(sorts))], Ascending: r.IntN(2) == 0}
		page := randomPage(r)

		want, err := s.mem.Queues.SelectPaginatedInfo(ctx, page, sort, f)
		s.Require().NoError(err)
		got, err := s.pg.Queues.SelectPaginatedInfo(ctx, page, sort, f)
		s.Require().NoError(err)
		s.Equal(queueIDs(want), queueIDs(got), "case %d sort %+v filters %+v page %+v", i, sort, f, page)
		for j := range want {
			if j < len(got) {
				s.True(want[j].GrandTotalPrice.Equal(got[j].GrandTotalPrice), "case %d total of queue %d", i, *want[j].ID)
			}
		}

		wantCount, err := s.mem.Queues.CountFiltered(ctx, f)
		s.Require().NoError(err)
		gotCount, err := s.pg.Queues.CountFiltered(ctx, f)
		s.Require().NoError(err)
		s.Equal(wantCount, gotCount, "case %d filters %+v", i, f)
	}
}

func (s *EquivalenceSuite) TestRandomCustomerListings() {
	ctx := context.Background()
	r := rand.New(rand.NewPCG(29, 31))
	sorts := []display.CustomerSortBy{display.CustomerSortByName, display.CustomerSortByBalance}

	for i := 0; i < randomCases; i++ {
		var f display.CustomerFilters
		if r.IntN(2) == 0 {
			f.Balance = randomInt64Range(r, 2000)
		}
		if r.IntN(2) == 0 {
			f.Debt = randomDecimalRange(r, 1500, true)
		}
		sort := display.CustomerSortMethod{SortBy: sorts[r.IntN(len(sorts))], Ascending: r.IntN(2) == 0}
		page := randomPage(r)

		want, err := s.mem.Customers.SelectPaginatedInfo(ctx, page, sort, f)
		s.Require().NoError(err)
		got, err := s.pg.Customers.SelectPaginatedInfo(ctx, page, sort, f)
		s.Require().NoError(err)
		s.Equal(customerIDs(want), customerIDs(got), "case %d sort %+v filters %+v page %+v", i, sort, f, page)

		wantCount, err := s.mem.Customers.CountFiltered(ctx, f)
		s.Require().NoError(err)
		gotCount, err := s.pg.Customers.CountFiltered(ctx, f)
		s.Require().NoError(err)
		s.Equal(wantCount, gotCount, "case %d filters %+v", i, f)
	}
}

func (s *EquivalenceSuite) TestRandomProductListings() {
	ctx := context.Background()
	r := rand.New(rand.NewPCG(37, 41))
	sorts := []display.ProductSortBy{display.ProductSortByName, display.ProductSortByPrice}

	for i := 0; i < randomCases; i++ {
		f := display.ProductFilters{Price: randomInt64Range(r, 500)}
		sort := display.ProductSortMethod{SortBy: sorts[r.IntN(len(sorts))], Ascending: r.IntN(2) == 0}
		page := randomPage(r)

		want, err := s.mem.Products.SelectPaginatedInfo(ctx, page, sort, f)
		s.Require().NoError(err)
		got, err := s.pg.Products.SelectPaginatedInfo(ctx, page, sort, f)
		s.Require().NoError(err)
		s.Equal(productIDs(want), productIDs(got), "case %d sort %+v filters %+v page %+v", i, sort, f, page)
	}
}

func (s *EquivalenceSuite) TestRandomSearch() {
	ctx := context.Background()
	r := rand.New(rand.NewPCG(43, 47))

	for i := 0; i < randomCases; i++ {
		name := []rune(names[r.IntN(len(names))])
		start := r.IntN(len(name))
		token := string(name[start : start+1+r.IntN(len(name)-start)])
		if r.IntN(2) == 0 {
			token = strings.ToUpper(token)
		}
		query := token
		if r.IntN(3) == 0 {
			query += " " + string(rune('0'+r.IntN(5)))
		}

		want, err := s.mem.Customers.Search(ctx, query)
		s.Require().NoError(err)
		got, err := s.pg.Customers.Search(ctx, query)
		s.Require().NoError(err)
		s.Equal(customerModelIDs(want), customerModelIDs(got), "case %d query %q", i, query)
	}
}
