package display

import (
	"github.com/shopspring/decimal"

	"github.com/ledgerbook/ledger/internal/ledger/model"
)

// Int64Range is an inclusive range where either bound may be absent.
type Int64Range struct {
	Min *int64 `json:"min,omitempty"`
	Max *int64 `json:"max,omitempty"`
}

// Contains reports whether v lies inside the range.
func (r Int64Range) Contains(v int64) bool {
	return (r.Min == nil || v >= *r.Min) && (r.Max == nil || v <= *r.Max)
}

// IsUnbounded reports whether the range filters nothing.
func (r Int64Range) IsUnbounded() bool {
	return r.Min == nil && r.Max == nil
}

// DecimalRange is an inclusive decimal range where either bound may be absent.
type DecimalRange struct {
	Min *decimal.Decimal `json:"min,omitempty"`
	Max *decimal.Decimal `json:"max,omitempty"`
}

// Contains reports whether v lies inside the range.
func (r DecimalRange) Contains(v decimal.Decimal) bool {
	return (r.Min == nil || v.GreaterThanOrEqual(*r.Min)) && (r.Max == nil || v.LessThanOrEqual(*r.Max))
}

// Abs returns the range with both bounds made non-negative. Debt is stored negative but filtered
// by magnitude.
func (r DecimalRange) Abs() DecimalRange {
	out := DecimalRange{}
	if r.Min != nil {
		v := r.Min.Abs()
		out.Min = &v
	}
	if r.Max != nil {
		v := r.Max.Abs()
		out.Max = &v
	}
	return out
}

// IsUnbounded reports whether the range filters nothing.
func (r DecimalRange) IsUnbounded() bool {
	return r.Min == nil && r.Max == nil
}

// CustomerFilters narrows customer listings. Debt compares absolute values.
type CustomerFilters struct {
	Balance Int64Range   `json:"balance"`
	Debt    DecimalRange `json:"debt"`
}

// ProductFilters narrows product listings.
type ProductFilters struct {
	Price Int64Range `json:"price"`
}

// QueueFilters narrows queue listings. Empty CustomerIDs or Statuses place no restriction.
type QueueFilters struct {
	CustomerIDs       []int64             `json:"customer_ids"`
	NullCustomerShown bool                `json:"null_customer_shown"`
	Statuses          []model.QueueStatus `json:"statuses"`
	TotalPrice        DecimalRange        `json:"total_price"`
	Date              QueueDate           `json:"date"`
}

// DefaultQueueFilters shows every queue.
func DefaultQueueFilters() QueueFilters {
	return QueueFilters{NullCustomerShown: true, Statuses: model.QueueStatuses()}
}
