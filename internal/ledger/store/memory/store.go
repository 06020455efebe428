// Package memory is an in-process transactional ledger store. Transactions work on a clone of
// the committed state and swap it in on success, so a failed transaction leaves no trace.
// Queries reuse the display sorters and filterers, which makes this package the reference the
// postgres gateways are checked against.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerbook/ledger/internal/ledger/display"
	"github.com/ledgerbook/ledger/internal/ledger/model"
	"github.com/ledgerbook/ledger/internal/ledger/store"
)

// ErrForeignKey is returned when a write references a row that does not exist.
var ErrForeignKey = errors.New("memory: foreign key violation")

type state struct {
	customers     map[int64]model.Customer
	products      map[int64]model.Product
	queues        map[int64]model.Queue
	productOrders map[int64]model.ProductOrder
	seq           map[string]int64
}

func newState() *state {
	return &state{
		customers:     map[int64]model.Customer{},
		products:      map[int64]model.Product{},
		queues:        map[int64]model.Queue{},
		productOrders: map[int64]model.ProductOrder{},
		seq:           map[string]int64{},
	}
}

// clone copies every table. Rows are values whose pointer fields are never mutated in place,
// so a shallow copy per row is enough.
func (st *state) clone() *state {
	out := newState()
	for k, v := range st.customers {
		out.customers[k] = v
	}
	for k, v := range st.products {
		out.products[k] = v
	}
	for k, v := range st.queues {
		out.queues[k] = v
	}
	for k, v := range st.productOrders {
		out.productOrders[k] = v
	}
	for k, v := range st.seq {
		out.seq[k] = v
	}
	return out
}

// allocate resolves the id of a new row. A requested id already present yields 0. Explicit ids
// move the sequence forward like postgres setval.
func (st *state) allocate(table string, requested *int64, exists func(int64) bool) int64 {
	if requested != nil {
		if exists(*requested) {
			return 0
		}
		if *requested > st.seq[table] {
			st.seq[table] = *requested
		}
		return *requested
	}
	st.seq[table]++
	for exists(st.seq[table]) {
		st.seq[table]++
	}
	return st.seq[table]
}

// totalDebt mirrors the postgres aggregate: -Σ |total_price| over line items of UNPAID queues.
func (st *state) totalDebt(customerID int64) decimal.Decimal {
	debt := decimal.Zero
	for _, po := range st.productOrders {
		if po.QueueID == nil {
			continue
		}
		q, ok := st.queues[*po.QueueID]
		if !ok || q.Status != model.QueueStatusUnpaid || !model.SameID(q.CustomerID, model.Int64(customerID)) {
			continue
		}
		debt = debt.Sub(po.TotalPrice.Abs())
	}
	return debt
}

// hydrate attaches the customer and line items to a stored queue row.
func (st *state) hydrate(q model.Queue) model.Queue {
	if q.CustomerID != nil {
		if c, ok := st.customers[*q.CustomerID]; ok {
			q.Customer = &c
		}
	}
	q.ProductOrders = st.productOrdersOf(*q.ID)
	return q
}

func (st *state) productOrdersOf(queueID int64) []model.ProductOrder {
	out := []model.ProductOrder{}
	for _, po := range st.productOrders {
		if po.QueueID != nil && *po.QueueID == queueID {
			out = append(out, po)
		}
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].ID < *out[j].ID })
	return out
}

type txKey struct{}

// Store holds the committed state.
type Store struct {
	mu        sync.RWMutex
	state     *state
	collation display.Collation
}

// New returns an empty store ordering names with collation.
func New(collation display.Collation) *Store {
	return &Store{state: newState(), collation: collation}
}

// Gateways exposes the store through the gateway contracts.
func (s *Store) Gateways() store.Store {
	return store.Store{
		Transactor:    s,
		Customers:     &CustomerGateway{s: s},
		Products:      &ProductGateway{s: s},
		Queues:        &QueueGateway{s: s},
		ProductOrders: &ProductOrderGateway{s: s},
		Integrity:     s,
	}
}

// WithinTx runs fn against a private copy of the state and publishes it when fn succeeds.
// Nested calls join the outer transaction. Transactions are serialized.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*state); ok {
		return fn(ctx)
	}
	ctx, finish := store.JoinScope(ctx)
	err := s.runTx(ctx, fn)
	finish(err)
	return err
}

func (s *Store) runTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := s.state.clone()
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	s.state = tx
	return nil
}

func (s *Store) read(ctx context.Context, fn func(st *state)) {
	if tx, ok := ctx.Value(txKey{}).(*state); ok {
		fn(tx)
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.state)
}

func (s *Store) write(ctx context.Context, fn func(st *state) (int64, error)) (int64, error) {
	if tx, ok := ctx.Value(txKey{}).(*state); ok {
		return fn(tx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Single statements are atomic too: work on a copy so a failed write changes nothing.
	tx := s.state.clone()
	n, err := fn(tx)
	if err != nil {
		return 0, err
	}
	s.state = tx
	return n, nil
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func truncate(t time.Time) time.Time {
	return t.Truncate(time.Microsecond)
}
