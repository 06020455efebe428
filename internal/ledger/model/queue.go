package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// QueueStatus represents the lifecycle state of a queue.
type QueueStatus string

const (
	QueueStatusInQueue   QueueStatus = "IN_QUEUE"
	QueueStatusInProcess QueueStatus = "IN_PROCESS"
	QueueStatusUnpaid    QueueStatus = "UNPAID"
	QueueStatusCompleted QueueStatus = "COMPLETED"
)

// QueueStatuses lists every status in declaration order.
func QueueStatuses() []QueueStatus {
	return []QueueStatus{QueueStatusInQueue, QueueStatusInProcess, QueueStatusUnpaid, QueueStatusCompleted}
}

// Valid reports whether s is a known status.
func (s QueueStatus) Valid() bool {
	switch s {
	case QueueStatusInQueue, QueueStatusInProcess, QueueStatusUnpaid, QueueStatusCompleted:
		return true
	}
	return false
}

// PaymentMethod describes how a queue is settled.
type PaymentMethod string

const (
	PaymentMethodCash           PaymentMethod = "CASH"
	PaymentMethodAccountBalance PaymentMethod = "ACCOUNT_BALANCE"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCash || m == PaymentMethodAccountBalance
}

// Queue is a customer order moving through its status lifecycle. Customer and ProductOrders
// are hydrated on read and are never stored on the queue row.
type Queue struct {
	ID            *int64         `json:"id,omitempty" db:"id"`
	CustomerID    *int64         `json:"customer_id,omitempty" db:"customer_id"`
	Customer      *Customer      `json:"customer,omitempty" db:"-"`
	Status        QueueStatus    `json:"status" db:"status"`
	Date          time.Time      `json:"date" db:"date"`
	PaymentMethod PaymentMethod  `json:"payment_method" db:"payment_method"`
	Note          *string        `json:"note,omitempty" db:"note"`
	ProductOrders []ProductOrder `json:"product_orders" db:"-"`
}

// GrandTotalPrice sums the total price of every line item.
func (q Queue) GrandTotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, po := range q.ProductOrders {
		total = total.Add(po.TotalPrice)
	}
	return total
}

// TotalDiscount sums the flat discount of every line item.
func (q Queue) TotalDiscount() decimal.Decimal {
	total := decimal.Zero
	for _, po := range q.ProductOrders {
		total = total.Add(decimal.NewFromInt(po.Discount))
	}
	return total
}

// IsPaidByBalance reports whether the queue is completed and settled from the account balance.
func (q Queue) IsPaidByBalance() bool {
	return q.Status == QueueStatusCompleted && q.PaymentMethod == PaymentMethodAccountBalance
}

// Clone returns a deep copy so callers can mutate line items without aliasing.
func (q Queue) Clone() Queue {
	out := q
	if q.ProductOrders != nil {
		out.ProductOrders = make([]ProductOrder, len(q.ProductOrders))
		copy(out.ProductOrders, q.ProductOrders)
	}
	if q.Customer != nil {
		c := *q.Customer
		out.Customer = &c
	}
	return out
}

// QueuePaginatedInfo is the row shape returned by paginated queue listings.
type QueuePaginatedInfo struct {
	ID              *int64          `json:"id,omitempty" db:"id"`
	CustomerID      *int64          `json:"customer_id,omitempty" db:"customer_id"`
	CustomerName    *string         `json:"customer_name,omitempty" db:"customer_name"`
	Status          QueueStatus     `json:"status" db:"status"`
	Date            time.Time       `json:"date" db:"date"`
	GrandTotalPrice decimal.Decimal `json:"grand_total_price" db:"grand_total_price"`
}

// NewQueuePaginatedInfo projects a hydrated queue.
func NewQueuePaginatedInfo(q Queue) QueuePaginatedInfo {
	info := QueuePaginatedInfo{
		ID:              q.ID,
		CustomerID:      q.CustomerID,
		Status:          q.Status,
		Date:            q.Date,
		GrandTotalPrice: q.GrandTotalPrice(),
	}
	if q.Customer != nil {
		name := q.Customer.Name
		info.CustomerName = &name
	}
	return info
}
