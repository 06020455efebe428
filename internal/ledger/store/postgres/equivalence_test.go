//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/ledgerbook/ledger/internal/ledger/display"
	"github.com/ledgerbook/ledger/internal/ledger/model"
	"github.com/ledgerbook/ledger/internal/ledger/store"
	"github.com/ledgerbook/ledger/internal/ledger/store/memory"
	"github.com/ledgerbook/ledger/internal/ledger/store/postgres"
	"github.com/ledgerbook/ledger/internal/platform/db"
)

// Run with: go test -tags integration ./internal/ledger/store/postgres/...

var names = []string{"ana", "Ána", "bruno", "Beto", "carla", "Çarla", "dimas", "Dédé", "eko", "Éka", "zaki", "yuni", "Søren", "Straße", "Æsir", "Łukasz"}

type EquivalenceSuite struct {
	suite.Suite
	container *tcpostgres.PostgresContainer
	pg        store.Store
	mem       store.Store
	customers []int64
	now       time.Time
}

func TestEquivalenceSuite(t *testing.T) {
	suite.Run(t, new(EquivalenceSuite))
}

func (s *EquivalenceSuite) SetupSuite() {
	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("ledger_test"),
		tcpostgres.WithUsername("ledger"),
		tcpostgres.WithPassword("ledger"),
		tcpostgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)
	pool, err := db.New(ctx, dsn)
	s.Require().NoError(err)
	s.T().Cleanup(pool.Close)
	s.Require().NoError(db.Migrate(ctx, pool, nil))

	s.pg = postgres.New(pool).Gateways()
	s.mem = memory.New(display.Collation{}).Gateways()
	s.now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	s.seed(ctx, rand.New(rand.NewPCG(7, 11)))
}

func (s *EquivalenceSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

// seed writes the same random data set into both stores in the same order, so generated ids
// line up.
func (s *EquivalenceSuite) seed(ctx context.Context, r *rand.Rand) {
	both := func(fn func(st store.Store) (int64, error)) int64 {
		want, err := fn(s.mem)
		s.Require().NoError(err)
		got, err := fn(s.pg)
		s.Require().NoError(err)
		s.Require().Equal(want, got)
		return want
	}

	for i := 0; i < 30; i++ {
		c := model.Customer{
			Name:    fmt.Sprintf("%s %02d", names[r.IntN(len(names))], r.IntN(5)),
			Balance: int64(r.IntN(2000)),
		}
		s.customers = append(s.customers, both(func(st store.Store) (int64, error) {
			return st.Customers.Insert(ctx, c)
		}))
	}
	for i := 0; i < 20; i++ {
		p := model.Product{Name: names[r.IntN(len(names))], Price: int64(r.IntN(500))}
		both(func(st store.Store) (int64, error) { return st.Products.Insert(ctx, p) })
	}

	statuses := model.QueueStatuses()
	for i := 0; i < 80; i++ {
		q := model.Queue{
			Status:        statuses[r.IntN(len(statuses))],
			PaymentMethod: model.PaymentMethodCash,
			Date:          s.now.Add(-time.Duration(r.IntN(24*400)) * time.Hour),
		}
		if r.IntN(5) > 0 {
			q.CustomerID = model.Int64(s.customers[r.IntN(len(s.customers))])
		}
		queueID := both(func(st store.Store) (int64, error) { return st.Queues.Insert(ctx, q) })

		for j := 0; j < 1+r.IntN(3); j++ {
			total := decimal.NewFromInt(int64(r.IntN(300)))
			po := model.NewProductOrder(model.ProductOrderParams{
				QueueID:    model.Int64(queueID),
				Quantity:   float64(1 + r.IntN(3)),
				TotalPrice: &total,
			})
			both(func(st store.Store) (int64, error) { return st.ProductOrders.Insert(ctx, po) })
		}
	}
}

func int64Ptr(v int64) *int64 { return &v }

func decimalPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func (s *EquivalenceSuite) TestCustomerListings() {
	ctx := context.Background()
	filters := []display.CustomerFilters{
		{},
		{Balance: display.Int64Range{Min: int64Ptr(500)}},
		{Balance: display.Int64Range{Min: int64Ptr(100), Max: int64Ptr(900)}},
		{Debt: display.DecimalRange{Min: decimalPtr(1)}},
		{Debt: display.DecimalRange{Min: decimalPtr(-100), Max: decimalPtr(-400)}},
	}
	for _, f := range filters {
		for _, by := range []display.CustomerSortBy{display.CustomerSortByName, display.CustomerSortByBalance} {
			for _, asc := range []bool{true, false} {
				sort := display.CustomerSortMethod{SortBy: by, Ascending: asc}
				for _, page := range []display.PageRequest{{Number: 1, Size: 7}, {Number: 3, Size: 7}, {}} {
					want, err := s.mem.Customers.SelectPaginatedInfo(ctx, page, sort, f)
					s.Require().NoError(err)
					got, err := s.pg.Customers.SelectPaginatedInfo(ctx, page, sort, f)
					s.Require().NoError(err)
					s.Equal(customerIDs(want), customerIDs(got), "sort %+v filters %+v page %+v", sort, f, page)
					for i := range want {
						s.True(want[i].Debt.Equal(got[i].Debt), "debt of customer %d", *want[i].ID)
					}
				}

				wantCount, err := s.mem.Customers.CountFiltered(ctx, f)
				s.Require().NoError(err)
				gotCount, err := s.pg.Customers.CountFiltered(ctx, f)
				s.Require().NoError(err)
				s.Equal(wantCount, gotCount)
			}
		}
	}
}

func (s *EquivalenceSuite) TestProductListings() {
	ctx := context.Background()
	filters := []display.ProductFilters{{}, {Price: display.Int64Range{Min: int64Ptr(100), Max: int64Ptr(300)}}}
	for _, f := range filters {
		for _, by := range []display.ProductSortBy{display.ProductSortByName, display.ProductSortByPrice} {
			for _, asc := range []bool{true, false} {
				sort := display.ProductSortMethod{SortBy: by, Ascending: asc}
				want, err := s.mem.Products.SelectPaginatedInfo(ctx, display.PageRequest{Size: 50}, sort, f)
				s.Require().NoError(err)
				got, err := s.pg.Products.SelectPaginatedInfo(ctx, display.PageRequest{Size: 50}, sort, f)
				s.Require().NoError(err)
				s.Equal(productIDs(want), productIDs(got), "sort %+v filters %+v", sort, f)
			}
		}
	}
}

func (s *EquivalenceSuite) TestQueueListings() {
	ctx := context.Background()
	filters := []display.QueueFilters{
		display.DefaultQueueFilters(),
		{NullCustomerShown: true},
		{CustomerIDs: s.customers[:5], Statuses: []model.QueueStatus{model.QueueStatusUnpaid}},
		{CustomerIDs: s.customers[5:12], NullCustomerShown: true, TotalPrice: display.DecimalRange{Min: decimalPtr(200)}},
		{NullCustomerShown: true, Date: display.NewQueueDate(display.QueueDateThisYear, s.now)},
		{NullCustomerShown: true, Date: display.CustomQueueDate(s.now.AddDate(0, -6, 0), s.now.AddDate(0, -1, 0))},
	}
	sorts := []display.QueueSortBy{display.QueueSortByCustomerName, display.QueueSortByDate, display.QueueSortByTotalPrice}
	for _, f := range filters {
		for _, by := range sorts {
			for _, asc := range []bool{true, false} {
				sort := display.QueueSortMethod{SortBy: by, Ascending: asc}

				want, err := s.mem.Queues.SelectAllPaginatedInfo(ctx, sort, f)
				s.Require().NoError(err)
				got, err := s.pg.Queues.SelectAllPaginatedInfo(ctx, sort, f)
				s.Require().NoError(err)
				s.Equal(queueIDs(want), queueIDs(got), "sort %+v filters %+v", sort, f)

				page := display.PageRequest{Number: 2, Size: 9}
				want, err = s.mem.Queues.SelectPaginatedInfo(ctx, page, sort, f)
				s.Require().NoError(err)
				got, err = s.pg.Queues.SelectPaginatedInfo(ctx, page, sort, f)
				s.Require().NoError(err)
				s.Equal(queueIDs(want), queueIDs(got))

				wantCount, err := s.mem.Queues.CountFiltered(ctx, f)
				s.Require().NoError(err)
				gotCount, err := s.pg.Queues.CountFiltered(ctx, f)
				s.Require().NoError(err)
				s.Equal(wantCount, gotCount)
			}
		}
	}
}

func (s *EquivalenceSuite) TestSearch() {
	ctx := context.Background()
	for _, q := range []string{"ana", "ANA", "carla 0", "e", "  ", "zzz", "soren", "STRASSE", "aesir", "lukasz 0", "ss"} {
		want, err := s.mem.Customers.Search(ctx, q)
		s.Require().NoError(err)
		got, err := s.pg.Customers.Search(ctx, q)
		s.Require().NoError(err)
		s.Equal(customerModelIDs(want), customerModelIDs(got), "query %q", q)
	}
}

func (s *EquivalenceSuite) TestIntegrityScanAgrees() {
	ctx := context.Background()
	want, err := s.mem.Integrity.ScanIntegrity(ctx)
	s.Require().NoError(err)
	got, err := s.pg.Integrity.ScanIntegrity(ctx)
	s.Require().NoError(err)

	require.Len(s.T(), got, len(want))
	for i := range want {
		s.Equal(want[i].Kind, got[i].Kind)
		s.Equal(want[i].EntityID, got[i].EntityID)
	}
}

func customerIDs(items []model.CustomerPaginatedInfo) []int64 {
	out := make([]int64, len(items))
	for i, c := range items {
		out[i] = *c.ID
	}
	return out
}

func customerModelIDs(items []model.Customer) []int64 {
	out := make([]int64, len(items))
	for i, c := range items {
		out[i] = *c.ID
	}
	return out
}

func productIDs(items []model.Product) []int64 {
	out := make([]int64, len(items))
	for i, p := range items {
		out[i] = *p.ID
	}
	return out
}

func queueIDs(items []model.QueuePaginatedInfo) []int64 {
	out := make([]int64, len(items))
	for i, q := range items {
		out[i] = *q.ID
	}
	return out
}
