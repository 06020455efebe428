// Package store declares the persistence contracts the ledger repositories are written against.
//
// Gateways own no business logic. Inserts return 0 when the id is already taken, selects by id
// return nil when the row is missing, and updates and deletes report the number of rows they
// touched. None of these cases are errors.
package store

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ledgerbook/ledger/internal/ledger/display"
	"github.com/ledgerbook/ledger/internal/ledger/model"
)

// Transactor runs fn atomically. Calls made with a context that already carries a transaction
// join it instead of opening a new one. Any error returned by fn rolls back every write.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CustomerGateway persists customers. Returned customers carry a zero Debt; the aggregate is
// read separately through TotalDebtByID.
type CustomerGateway interface {
	Insert(ctx context.Context, c model.Customer) (int64, error)
	Update(ctx context.Context, c model.Customer) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
	SelectAll(ctx context.Context) ([]model.Customer, error)
	SelectByID(ctx context.Context, id int64) (*model.Customer, error)
	SelectByIDs(ctx context.Context, ids []int64) ([]model.Customer, error)
	IsExistsByID(ctx context.Context, id int64) (bool, error)
	Search(ctx context.Context, query string) ([]model.Customer, error)
	SelectPaginatedInfo(ctx context.Context, page display.PageRequest, sort display.CustomerSortMethod, filters display.CustomerFilters) ([]model.CustomerPaginatedInfo, error)
	CountFiltered(ctx context.Context, filters display.CustomerFilters) (int64, error)
	// TotalDebtByID is -Σ total price of line items on the customer's UNPAID queues.
	TotalDebtByID(ctx context.Context, id int64) (decimal.Decimal, error)
	SelectAllBalanceInfo(ctx context.Context) ([]model.CustomerBalanceInfo, error)
	SelectAllDebtInfo(ctx context.Context) ([]model.CustomerDebtInfo, error)
}

// ProductGateway persists products.
type ProductGateway interface {
	Insert(ctx context.Context, p model.Product) (int64, error)
	Update(ctx context.Context, p model.Product) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
	SelectAll(ctx context.Context) ([]model.Product, error)
	SelectByID(ctx context.Context, id int64) (*model.Product, error)
	SelectByIDs(ctx context.Context, ids []int64) ([]model.Product, error)
	IsExistsByID(ctx context.Context, id int64) (bool, error)
	Search(ctx context.Context, query string) ([]model.Product, error)
	SelectPaginatedInfo(ctx context.Context, page display.PageRequest, sort display.ProductSortMethod, filters display.ProductFilters) ([]model.Product, error)
	CountFiltered(ctx context.Context, filters display.ProductFilters) (int64, error)
}

// QueueGateway persists queue rows. Returned queues are not hydrated: Customer and
// ProductOrders are left empty.
type QueueGateway interface {
	Insert(ctx context.Context, q model.Queue) (int64, error)
	Update(ctx context.Context, q model.Queue) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
	SelectAll(ctx context.Context) ([]model.Queue, error)
	SelectByID(ctx context.Context, id int64) (*model.Queue, error)
	SelectByIDs(ctx context.Context, ids []int64) ([]model.Queue, error)
	IsExistsByID(ctx context.Context, id int64) (bool, error)
	SelectAllPaginatedInfo(ctx context.Context, sort display.QueueSortMethod, filters display.QueueFilters) ([]model.QueuePaginatedInfo, error)
	SelectPaginatedInfo(ctx context.Context, page display.PageRequest, sort display.QueueSortMethod, filters display.QueueFilters) ([]model.QueuePaginatedInfo, error)
	CountFiltered(ctx context.Context, filters display.QueueFilters) (int64, error)
}

// ProductOrderGateway persists line items.
type ProductOrderGateway interface {
	Insert(ctx context.Context, po model.ProductOrder) (int64, error)
	Update(ctx context.Context, po model.ProductOrder) (int64, error)
	// Upsert inserts po or overwrites the row holding its id, returning the row id.
	Upsert(ctx context.Context, po model.ProductOrder) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
	SelectAll(ctx context.Context) ([]model.ProductOrder, error)
	SelectByID(ctx context.Context, id int64) (*model.ProductOrder, error)
	SelectByIDs(ctx context.Context, ids []int64) ([]model.ProductOrder, error)
	SelectAllByQueueID(ctx context.Context, queueID int64) ([]model.ProductOrder, error)
}

// AnomalyKind classifies integrity findings.
type AnomalyKind string

const (
	AnomalyNegativeBalance    AnomalyKind = "negative_balance"
	AnomalyNegativeLineTotal  AnomalyKind = "negative_line_total"
	AnomalyUnattributedUnpaid AnomalyKind = "unattributed_unpaid"
)

// Anomaly is a row that breaks a ledger invariant.
type Anomaly struct {
	Kind     AnomalyKind `json:"kind"`
	EntityID int64       `json:"entity_id"`
	Detail   string      `json:"detail"`
}

// IntegrityScanner reports rows that break ledger invariants.
type IntegrityScanner interface {
	ScanIntegrity(ctx context.Context) ([]Anomaly, error)
}

// Store bundles every gateway of one backend.
type Store struct {
	Transactor    Transactor
	Customers     CustomerGateway
	Products      ProductGateway
	Queues        QueueGateway
	ProductOrders ProductOrderGateway
	Integrity     IntegrityScanner
}
