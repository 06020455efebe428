package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/ledgerbook/ledger/internal/ledger/display"
	"github.com/ledgerbook/ledger/internal/ledger/model"
	"github.com/ledgerbook/ledger/internal/ledger/notify"
	"github.com/ledgerbook/ledger/internal/ledger/store"
	"github.com/ledgerbook/ledger/internal/ledger/store/memory"
	"github.com/ledgerbook/ledger/internal/shared"
)

type events[M any] struct {
	added, updated, deleted, upserted [][]M
}

func (e *events[M]) listener() notify.Funcs[M] {
	return notify.Funcs[M]{
		Added:    func(m []M) { e.added = append(e.added, m) },
		Updated:  func(m []M) { e.updated = append(e.updated, m) },
		Deleted:  func(m []M) { e.deleted = append(e.deleted, m) },
		Upserted: func(m []M) { e.upserted = append(e.upserted, m) },
	}
}

func (e *events[M]) count() int {
	return len(e.added) + len(e.updated) + len(e.deleted) + len(e.upserted)
}

func item(total int64) model.ProductOrder {
	price := decimal.NewFromInt(total)
	return model.NewProductOrder(model.ProductOrderParams{Quantity: 1, TotalPrice: &price})
}

func queueOf(customerID *int64, status model.QueueStatus, method model.PaymentMethod, totals ...int64) model.Queue {
	q := model.Queue{
		CustomerID:    customerID,
		Status:        status,
		PaymentMethod: method,
		Date:          time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	for _, total := range totals {
		q.ProductOrders = append(q.ProductOrders, item(total))
	}
	return q
}

func paidQueue(customerID int64, totals ...int64) model.Queue {
	return queueOf(model.Int64(customerID), model.QueueStatusCompleted, model.PaymentMethodAccountBalance, totals...)
}

// ============================================================================
// QUEUE COORDINATOR SUITE
// ============================================================================

type QueueRepositoryTestSuite struct {
	suite.Suite
	ctx       context.Context
	store     store.Store
	repos     *Repositories
	metrics   *Metrics
	queues    *events[model.Queue]
	customers *events[model.Customer]
}

func (s *QueueRepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New(display.Collation{}).Gateways()
	s.metrics = NewMetrics(prometheus.NewRegistry())
	s.repos = New(s.store, Options{Metrics: s.metrics})
	s.queues = &events[model.Queue]{}
	s.customers = &events[model.Customer]{}
	s.repos.Queues.Subscribe(s.queues.listener())
	s.repos.Customers.Subscribe(s.customers.listener())
}

func (s *QueueRepositoryTestSuite) addCustomer(name string, balance int64) int64 {
	id, err := s.repos.Customers.Add(s.ctx, model.Customer{Name: name, Balance: balance})
	s.Require().NoError(err)
	s.Require().NotZero(id)
	return id
}

func (s *QueueRepositoryTestSuite) customer(id int64) model.Customer {
	c, err := s.repos.Customers.SelectByID(s.ctx, id)
	s.Require().NoError(err)
	s.Require().NotNil(c)
	return *c
}

func (s *QueueRepositoryTestSuite) queue(id int64) model.Queue {
	q, err := s.repos.Queues.SelectByID(s.ctx, id)
	s.Require().NoError(err)
	s.Require().NotNil(q)
	return *q
}

func (s *QueueRepositoryTestSuite) TestBalanceConservation() {
	t := s.T()
	amy := s.addCustomer("Amy", 500)

	id, err := s.repos.Queues.Add(s.ctx, paidQueue(amy, 100))
	require.NoError(t, err)
	assert.Equal(t, int64(400), s.customer(amy).Balance)

	q := s.queue(id)
	q.ProductOrders[0].TotalPrice = decimal.NewFromInt(300)
	n, err := s.repos.Queues.Update(s.ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, int64(200), s.customer(amy).Balance)

	n, err = s.repos.Queues.Delete(s.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, int64(500), s.customer(amy).Balance)

	orders, err := s.repos.ProductOrders.SelectAll(s.ctx)
	require.NoError(t, err)
	assert.Empty(t, orders, "line items cascade with the queue")
}

func (s *QueueRepositoryTestSuite) TestCustomerSwitchCountsOnce() {
	t := s.T()
	amy := s.addCustomer("Amy", 500)
	ben := s.addCustomer("Ben", 1000)

	id, err := s.repos.Queues.Add(s.ctx, paidQueue(amy, 100))
	require.NoError(t, err)

	q := s.queue(id)
	q.CustomerID = model.Int64(ben)
	_, err = s.repos.Queues.Update(s.ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(500), s.customer(amy).Balance)
	assert.Equal(t, int64(900), s.customer(ben).Balance)

	q = s.queue(id)
	q.CustomerID = nil
	_, err = s.repos.Queues.Update(s.ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(500), s.customer(amy).Balance)
	assert.Equal(t, int64(1000), s.customer(ben).Balance)
	assert.Nil(t, s.queue(id).Customer)
}

func (s *QueueRepositoryTestSuite) TestSwitchingToCashRefunds() {
	t := s.T()
	amy := s.addCustomer("Amy", 500)
	id, err := s.repos.Queues.Add(s.ctx, paidQueue(amy, 100, 50))
	require.NoError(t, err)
	assert.Equal(t, int64(350), s.customer(amy).Balance)

	q := s.queue(id)
	q.PaymentMethod = model.PaymentMethodCash
	_, err = s.repos.Queues.Update(s.ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(500), s.customer(amy).Balance)
}

func (s *QueueRepositoryTestSuite) TestInsufficientBalanceIsNotCharged() {
	t := s.T()
	amy := s.addCustomer("Amy", 50)
	_, err := s.repos.Queues.Add(s.ctx, paidQueue(amy, 100))
	require.NoError(t, err)
	assert.Equal(t, int64(50), s.customer(amy).Balance)
}

func (s *QueueRepositoryTestSuite) TestDebtDerivation() {
	t := s.T()
	amy := s.addCustomer("Amy", 0)

	unpaid := queueOf(model.Int64(amy), model.QueueStatusUnpaid, model.PaymentMethodCash, 100, 50)
	first, err := s.repos.Queues.Add(s.ctx, unpaid)
	require.NoError(t, err)
	second, err := s.repos.Queues.Add(s.ctx, queueOf(model.Int64(amy), model.QueueStatusUnpaid, model.PaymentMethodCash, 25))
	require.NoError(t, err)
	assert.True(t, s.customer(amy).Debt.Equal(decimal.NewFromInt(-175)))

	q := s.queue(first)
	q.Status = model.QueueStatusCompleted
	_, err = s.repos.Queues.Update(s.ctx, q)
	require.NoError(t, err)
	assert.True(t, s.customer(amy).Debt.Equal(decimal.NewFromInt(-25)))

	_, err = s.repos.Queues.Delete(s.ctx, second)
	require.NoError(t, err)
	assert.True(t, s.customer(amy).Debt.IsZero())

	info, err := s.repos.Customers.SelectAllDebtInfo(s.ctx)
	require.NoError(t, err)
	assert.Empty(t, info)
}

func (s *QueueRepositoryTestSuite) TestAddCollisionHasNoSideEffects() {
	t := s.T()
	amy := s.addCustomer("Amy", 500)
	id, err := s.repos.Queues.Add(s.ctx, paidQueue(amy, 100))
	require.NoError(t, err)
	before := s.queues.count()

	dup := paidQueue(amy, 300)
	dup.ID = model.Int64(id)
	got, err := s.repos.Queues.Add(s.ctx, dup)
	require.NoError(t, err)
	assert.Zero(t, got)
	assert.Equal(t, int64(400), s.customer(amy).Balance)
	assert.Len(t, s.queue(id).ProductOrders, 1)
	assert.Equal(t, before, s.queues.count())
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.writes.WithLabelValues("queue", "add", resultNoop)))
}

func (s *QueueRepositoryTestSuite) TestUpdateDiffsLineItems() {
	t := s.T()
	id, err := s.repos.Queues.Add(s.ctx, queueOf(nil, model.QueueStatusInQueue, model.PaymentMethodCash, 10, 20))
	require.NoError(t, err)

	q := s.queue(id)
	kept := q.ProductOrders[0]
	kept.Quantity = 3
	q.ProductOrders = []model.ProductOrder{kept, item(40)}
	_, err = s.repos.Queues.Update(s.ctx, q)
	require.NoError(t, err)

	orders := s.queue(id).ProductOrders
	require.Len(t, orders, 2)
	assert.Equal(t, *kept.ID, *orders[0].ID)
	assert.Equal(t, 3.0, orders[0].Quantity)
	assert.True(t, orders[1].TotalPrice.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, id, *orders[1].QueueID)
}

func (s *QueueRepositoryTestSuite) TestMissingQueueIsANoop() {
	t := s.T()
	n, err := s.repos.Queues.Update(s.ctx, paidQueue(1, 10))
	require.NoError(t, err)
	assert.Zero(t, n)

	missing := paidQueue(1, 10)
	missing.ID = model.Int64(99)
	n, err = s.repos.Queues.Update(s.ctx, missing)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = s.repos.Queues.Delete(s.ctx, 99)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, s.queues.count())
}

func (s *QueueRepositoryTestSuite) TestNotificationsCarryRemappedEntities() {
	t := s.T()
	amy := s.addCustomer("Amy", 500)
	id, err := s.repos.Queues.Add(s.ctx, paidQueue(amy, 100))
	require.NoError(t, err)

	require.Len(t, s.queues.added, 1)
	added := s.queues.added[0][0]
	assert.Equal(t, id, *added.ID)
	require.NotNil(t, added.Customer)
	assert.Equal(t, int64(400), added.Customer.Balance)
	assert.True(t, added.GrandTotalPrice().Equal(decimal.NewFromInt(100)))

	require.Len(t, s.customers.updated, 1)
	assert.Equal(t, int64(400), s.customers.updated[0][0].Balance)

	_, err = s.repos.Queues.Delete(s.ctx, id)
	require.NoError(t, err)
	require.Len(t, s.queues.deleted, 1)
	assert.Equal(t, id, *s.queues.deleted[0][0].ID)
	assert.Len(t, s.queues.deleted[0][0].ProductOrders, 1, "deleted snapshot is taken before the cascade")
}

func (s *QueueRepositoryTestSuite) TestRollbackDropsWritesAndNotifications() {
	t := s.T()
	amy := s.addCustomer("Amy", 500)
	boom := errors.New("boom")

	err := s.store.Transactor.WithinTx(s.ctx, func(ctx context.Context) error {
		id, err := s.repos.Queues.Add(ctx, paidQueue(amy, 100))
		require.NoError(t, err)
		require.NotZero(t, id)
		assert.Empty(t, s.queues.added, "listeners wait for the commit")
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, int64(500), s.customer(amy).Balance)
	all, err := s.repos.Queues.SelectAll(s.ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Empty(t, s.queues.added)
	assert.Empty(t, s.customers.updated)
}

func (s *QueueRepositoryTestSuite) TestNestedWritesNotifyAfterOuterCommit() {
	t := s.T()
	amy := s.addCustomer("Amy", 500)

	err := s.store.Transactor.WithinTx(s.ctx, func(ctx context.Context) error {
		if _, err := s.repos.Queues.Add(ctx, paidQueue(amy, 100)); err != nil {
			return err
		}
		_, err := s.repos.Queues.Add(ctx, paidQueue(amy, 50))
		assert.Empty(t, s.queues.added)
		return err
	})
	require.NoError(t, err)
	assert.Len(t, s.queues.added, 2)
	assert.Equal(t, int64(350), s.customer(amy).Balance)
}

func (s *QueueRepositoryTestSuite) TestForeignKeyViolationRollsBack() {
	t := s.T()
	_, err := s.repos.Queues.Add(s.ctx, paidQueue(77, 100))
	require.Error(t, err)

	all, err := s.repos.Queues.SelectAll(s.ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.writes.WithLabelValues("queue", "add", resultFailure)))
}

func TestQueueRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(QueueRepositoryTestSuite))
}

// ============================================================================
// LOCKING
// ============================================================================

type fakeLocker struct {
	acquired [][]string
	released int
	held     map[string]bool
	err      error
}

func (f *fakeLocker) Acquire(_ context.Context, keys ...string) (func(context.Context) error, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.held == nil {
		f.held = map[string]bool{}
	}
	for _, key := range keys {
		if f.held[key] {
			return nil, shared.ErrLockNotAcquired
		}
	}
	for _, key := range keys {
		f.held[key] = true
	}
	f.acquired = append(f.acquired, keys)
	return func(context.Context) error {
		for _, key := range keys {
			delete(f.held, key)
		}
		f.released++
		return nil
	}, nil
}

func TestQueueWritesLockInvolvedCustomers(t *testing.T) {
	ctx := context.Background()
	locker := &fakeLocker{}
	repos := New(memory.New(display.Collation{}).Gateways(), Options{Locker: locker})

	amy, err := repos.Customers.Add(ctx, model.Customer{Name: "Amy", Balance: 500})
	require.NoError(t, err)
	ben, err := repos.Customers.Add(ctx, model.Customer{Name: "Ben", Balance: 500})
	require.NoError(t, err)

	id, err := repos.Queues.Add(ctx, paidQueue(amy, 100))
	require.NoError(t, err)

	q, err := repos.Queues.SelectByID(ctx, id)
	require.NoError(t, err)
	q.CustomerID = model.Int64(ben)
	_, err = repos.Queues.Update(ctx, *q)
	require.NoError(t, err)

	_, err = repos.Queues.Delete(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{shared.CustomerLockKey(amy)},
		{shared.CustomerLockKey(amy), shared.CustomerLockKey(ben)},
		{shared.CustomerLockKey(ben)},
	}, locker.acquired)
	assert.Equal(t, 3, locker.released)
}

func TestQueueWriteFailsWhenLockIsHeld(t *testing.T) {
	ctx := context.Background()
	locker := &fakeLocker{err: shared.ErrLockNotAcquired}
	repos := New(memory.New(display.Collation{}).Gateways(), Options{Locker: locker})

	amy, err := repos.Customers.Add(ctx, model.Customer{Name: "Amy", Balance: 500})
	require.NoError(t, err)

	_, err = repos.Queues.Add(ctx, paidQueue(amy, 100))
	require.ErrorIs(t, err, shared.ErrLockNotAcquired)

	c, err := repos.Customers.SelectByID(ctx, amy)
	require.NoError(t, err)
	assert.Equal(t, int64(500), c.Balance)

	id, err := repos.Queues.Add(ctx, queueOf(nil, model.QueueStatusInQueue, model.PaymentMethodCash, 10))
	require.NoError(t, err, "queues without a customer take no lock")
	assert.NotZero(t, id)
}

func TestQueueListenersRunAfterLocksAreReleased(t *testing.T) {
	ctx := context.Background()
	locker := &fakeLocker{}
	repos := New(memory.New(display.Collation{}).Gateways(), Options{Locker: locker})

	amy, err := repos.Customers.Add(ctx, model.Customer{Name: "Amy", Balance: 500})
	require.NoError(t, err)

	var heldOnNotify []int
	var followUp error
	repos.Queues.Subscribe(notify.Funcs[model.Queue]{
		Added: func([]model.Queue) {
			heldOnNotify = append(heldOnNotify, len(locker.held))
			if len(heldOnNotify) == 1 {
				_, followUp = repos.Queues.Add(ctx, paidQueue(amy, 50))
			}
		},
		Deleted: func([]model.Queue) { heldOnNotify = append(heldOnNotify, len(locker.held)) },
	})

	id, err := repos.Queues.Add(ctx, paidQueue(amy, 100))
	require.NoError(t, err)
	require.NoError(t, followUp, "a listener may write queues of the same customer")

	_, err = repos.Queues.Delete(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 0, 0}, heldOnNotify)
	assert.Empty(t, locker.held)

	c, err := repos.Customers.SelectByID(ctx, amy)
	require.NoError(t, err)
	assert.Equal(t, int64(450), c.Balance)
}

func TestSerialListenerMayWriteThroughCoordinators(t *testing.T) {
	ctx := context.Background()
	serial := notify.NewSerial(1)
	repos := New(memory.New(display.Collation{}).Gateways(), Options{Dispatcher: serial})

	amy, err := repos.Customers.Add(ctx, model.Customer{Name: "Amy", Balance: 500})
	require.NoError(t, err)

	var mu sync.Mutex
	added := 0
	repos.Queues.Subscribe(notify.Funcs[model.Queue]{
		Added: func([]model.Queue) {
			mu.Lock()
			added++
			first := added == 1
			mu.Unlock()
			if first {
				_, err := repos.Queues.Add(ctx, paidQueue(amy, 10))
				assert.NoError(t, err)
				_, err = repos.Queues.Add(ctx, paidQueue(amy, 20))
				assert.NoError(t, err)
			}
		},
	})

	_, err = repos.Queues.Add(ctx, paidQueue(amy, 100))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return added == 3
	}, 2*time.Second, 10*time.Millisecond)

	closeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, serial.Close(closeCtx))

	c, err := repos.Customers.SelectByID(ctx, amy)
	require.NoError(t, err)
	assert.Equal(t, int64(370), c.Balance)
}

// ============================================================================
// CUSTOMER, PRODUCT AND LINE ITEM COORDINATORS
// ============================================================================

func TestCustomerReadsDeriveDebt(t *testing.T) {
	ctx := context.Background()
	repos := New(memory.New(display.Collation{}).Gateways(), Options{})

	amy, err := repos.Customers.Add(ctx, model.Customer{Name: "Amy", Debt: decimal.NewFromInt(-999)})
	require.NoError(t, err)
	_, err = repos.Queues.Add(ctx, queueOf(model.Int64(amy), model.QueueStatusUnpaid, model.PaymentMethodCash, 40))
	require.NoError(t, err)

	all, err := repos.Customers.SelectAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Debt.Equal(decimal.NewFromInt(-40)), "stored debt is never trusted")

	found, err := repos.Customers.Search(ctx, "am")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.True(t, found[0].Debt.Equal(decimal.NewFromInt(-40)))

	byIDs, err := repos.Customers.SelectByIDs(ctx, []int64{amy, 404})
	require.NoError(t, err)
	require.Len(t, byIDs, 1)
	assert.True(t, byIDs[0].Debt.Equal(decimal.NewFromInt(-40)))
}

func TestCustomerDeleteKeepsQueues(t *testing.T) {
	ctx := context.Background()
	repos := New(memory.New(display.Collation{}).Gateways(), Options{})
	seen := &events[model.Customer]{}
	repos.Customers.Subscribe(seen.listener())

	amy, err := repos.Customers.Add(ctx, model.Customer{Name: "Amy"})
	require.NoError(t, err)
	qid, err := repos.Queues.Add(ctx, queueOf(model.Int64(amy), model.QueueStatusUnpaid, model.PaymentMethodCash, 40))
	require.NoError(t, err)

	n, err := repos.Customers.Delete(ctx, amy)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.Len(t, seen.deleted, 1)
	assert.True(t, seen.deleted[0][0].Debt.Equal(decimal.NewFromInt(-40)), "pre-deletion snapshot")

	q, err := repos.Queues.SelectByID(ctx, qid)
	require.NoError(t, err)
	assert.Nil(t, q.CustomerID)
	assert.Nil(t, q.Customer)

	n, err = repos.Customers.Delete(ctx, amy)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, seen.deleted, 1)
}

func TestCustomerPagination(t *testing.T) {
	ctx := context.Background()
	repos := New(memory.New(display.Collation{}).Gateways(), Options{})
	for _, c := range []model.Customer{{Name: "A", Balance: 0}, {Name: "B", Balance: 100}, {Name: "C", Balance: 200}} {
		_, err := repos.Customers.Add(ctx, c)
		require.NoError(t, err)
	}

	filters := display.CustomerFilters{Balance: display.Int64Range{Min: model.Int64(100), Max: model.Int64(100)}}
	page, err := repos.Customers.SelectPaginatedInfo(ctx, display.PageRequest{Number: 1, Size: 10},
		display.CustomerSortMethod{SortBy: display.CustomerSortByName, Ascending: true}, filters)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "B", page[0].Name)

	count, err := repos.Customers.CountFiltered(ctx, filters)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	balances, err := repos.Customers.SelectAllBalanceInfo(ctx)
	require.NoError(t, err)
	assert.Len(t, balances, 2)
}

func TestProductRepositoryNotifies(t *testing.T) {
	ctx := context.Background()
	repos := New(memory.New(display.Collation{}).Gateways(), Options{})
	seen := &events[model.Product]{}
	unsubscribe := repos.Products.Subscribe(seen.listener())

	id, err := repos.Products.Add(ctx, model.Product{Name: "Kopi", Price: 12000})
	require.NoError(t, err)
	_, err = repos.Products.Update(ctx, model.Product{ID: model.Int64(id), Name: "Kopi susu", Price: 15000})
	require.NoError(t, err)

	require.Len(t, seen.added, 1)
	require.Len(t, seen.updated, 1)
	assert.Equal(t, "Kopi susu", seen.updated[0][0].Name)

	n, err := repos.Products.Update(ctx, model.Product{ID: model.Int64(404), Name: "Ghost"})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, seen.updated, 1)

	unsubscribe()
	_, err = repos.Products.Delete(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, seen.deleted)

	exists, err := repos.Products.IsExistsByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestProductOrderBatches(t *testing.T) {
	ctx := context.Background()
	repos := New(memory.New(display.Collation{}).Gateways(), Options{})
	seen := &events[model.ProductOrder]{}
	repos.ProductOrders.Subscribe(seen.listener())

	qid, err := repos.Queues.Add(ctx, queueOf(nil, model.QueueStatusInQueue, model.PaymentMethodCash))
	require.NoError(t, err)

	ids, err := repos.ProductOrders.AddMany(ctx, []model.ProductOrder{item(10).WithQueueID(&qid), item(20).WithQueueID(&qid)})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	require.Len(t, seen.added, 1)
	assert.Len(t, seen.added[0], 2, "one notification per batch")

	changed := item(30).WithQueueID(&qid)
	changed.ID = model.Int64(ids[0])
	upserted, err := repos.ProductOrders.UpsertMany(ctx, []model.ProductOrder{changed, item(5).WithQueueID(&qid)})
	require.NoError(t, err)
	require.Len(t, upserted, 2)
	assert.Equal(t, ids[0], upserted[0])
	require.Len(t, seen.upserted, 1)
	assert.Len(t, seen.upserted[0], 2)

	n, err := repos.ProductOrders.DeleteMany(ctx, []int64{ids[1], 404})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.Len(t, seen.deleted, 1)
	assert.Equal(t, ids[1], *seen.deleted[0][0].ID)

	orders, err := repos.ProductOrders.SelectAllByQueueID(ctx, qid)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.True(t, orders[0].TotalPrice.Equal(decimal.NewFromInt(30)))

	collided, err := repos.ProductOrders.Add(ctx, changed)
	require.NoError(t, err)
	assert.Zero(t, collided)
	assert.Len(t, seen.added, 1)
}
