package model

import "github.com/shopspring/decimal"

// Customer is a ledger account holder. Debt is never persisted; repositories map it from the
// unpaid queue aggregate on every read.
type Customer struct {
	ID      *int64          `json:"id,omitempty" db:"id"`
	Name    string          `json:"name" db:"name"`
	Balance int64           `json:"balance" db:"balance"`
	Debt    decimal.Decimal `json:"debt" db:"-"`
}

// HasID reports whether the customer has been persisted.
func (c Customer) HasID() bool {
	return c.ID != nil
}

// WithBalance returns a copy of the customer holding the given balance.
func (c Customer) WithBalance(balance int64) Customer {
	c.Balance = balance
	return c
}

// WithDebt returns a copy of the customer holding the given debt.
func (c Customer) WithDebt(debt decimal.Decimal) Customer {
	c.Debt = debt
	return c
}

// CustomerBalanceInfo is a compact projection of customers holding a positive balance.
type CustomerBalanceInfo struct {
	ID      int64 `json:"id" db:"id"`
	Balance int64 `json:"balance" db:"balance"`
}

// CustomerDebtInfo is a compact projection of customers owing money.
type CustomerDebtInfo struct {
	ID   int64           `json:"id" db:"id"`
	Debt decimal.Decimal `json:"debt" db:"debt"`
}

// CustomerPaginatedInfo is the row shape returned by paginated customer listings.
type CustomerPaginatedInfo struct {
	ID      *int64          `json:"id,omitempty" db:"id"`
	Name    string          `json:"name" db:"name"`
	Balance int64           `json:"balance" db:"balance"`
	Debt    decimal.Decimal `json:"debt" db:"debt"`
}

// NewCustomerPaginatedInfo projects a fully mapped customer.
func NewCustomerPaginatedInfo(c Customer) CustomerPaginatedInfo {
	return CustomerPaginatedInfo{ID: c.ID, Name: c.Name, Balance: c.Balance, Debt: c.Debt}
}

// Int64 returns a pointer to v. Handy for nullable keys.
func Int64(v int64) *int64 {
	return &v
}

// String returns a pointer to v.
func String(v string) *string {
	return &v
}

// SameID reports whether both keys are set and equal.
func SameID(a, b *int64) bool {
	return a != nil && b != nil && *a == *b
}
