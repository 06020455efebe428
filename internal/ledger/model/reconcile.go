package model

import "github.com/shopspring/decimal"

// belongsTo reports whether q is attributed to c through its hydrated customer.
func (c Customer) belongsTo(q Queue) bool {
	return q.Customer != nil && SameID(c.ID, q.Customer.ID)
}

func (c Customer) balanceDecimal() decimal.Decimal {
	return decimal.NewFromInt(c.Balance)
}

// IsBalanceSufficient checks whether c can pay newQueue from the account balance. Any
// deduction already made for oldQueue by the same customer is added back first, so editing
// a paid queue is judged against the balance it started from. oldQueue may be nil.
func (c Customer) IsBalanceSufficient(oldQueue *Queue, newQueue Queue) bool {
	if !c.belongsTo(newQueue) {
		return false
	}
	original := c.balanceDecimal()
	if oldQueue != nil &&
		SameID(oldQueue.CustomerID, c.ID) &&
		SameID(newQueue.CustomerID, c.ID) &&
		oldQueue.IsPaidByBalance() {
		original = original.Add(oldQueue.GrandTotalPrice())
	}
	return original.Sub(newQueue.GrandTotalPrice()).GreaterThanOrEqual(decimal.Zero)
}

// BalanceOnMadePayment returns the balance after c pays a newly created queue.
func (c Customer) BalanceOnMadePayment(q Queue) int64 {
	total := q.GrandTotalPrice()
	if c.belongsTo(q) && q.IsPaidByBalance() && c.balanceDecimal().GreaterThanOrEqual(total) {
		return c.balanceDecimal().Sub(total).IntPart()
	}
	return c.Balance
}

// BalanceOnUpdatedPayment returns the balance of c, the customer of newQueue, after a queue
// changes from oldQueue to newQueue.
//
// Keep every branch in sync with the rule tables in reconcile_test.go. A previous owner
// switching away is reverted by the caller through BalanceOnRevertedPayment, never here.
func (c Customer) BalanceOnUpdatedPayment(oldQueue, newQueue Queue) int64 {
	if !c.belongsTo(newQueue) {
		return c.Balance
	}
	isCompleted := newQueue.Status == QueueStatusCompleted
	isCash := newQueue.PaymentMethod == PaymentMethodCash
	isAccountBalance := newQueue.PaymentMethod == PaymentMethodAccountBalance
	oldTotal := oldQueue.GrandTotalPrice()
	newTotal := newQueue.GrandTotalPrice()
	isTotalChanged := !oldTotal.Equal(newTotal)

	wasCompleted := oldQueue.Status == QueueStatusCompleted
	wasAccountBalance := oldQueue.PaymentMethod == PaymentMethodAccountBalance
	oldHasCustomer := oldQueue.CustomerID != nil && oldQueue.Customer != nil
	// Switched only from one persisted customer to another. Null to non-null is a fresh
	// assignment, not a switch.
	isSwitched := c.ID != nil && oldQueue.CustomerID != nil && *c.ID != *oldQueue.CustomerID

	if isCompleted && isAccountBalance {
		if isTotalChanged && wasAccountBalance && wasCompleted && oldHasCustomer && !isSwitched {
			// Still paid by balance: only the difference between both totals moves.
			return c.balanceDecimal().Add(oldTotal).Sub(newTotal).IntPart()
		}
		if isSwitched || isTotalChanged || !oldHasCustomer || !wasCompleted || !wasAccountBalance {
			return c.balanceDecimal().Sub(newTotal).IntPart()
		}
		return c.Balance
	}
	if oldHasCustomer && wasAccountBalance && wasCompleted && !isSwitched &&
		((isAccountBalance && !isCompleted) || isCash) {
		return c.balanceDecimal().Add(oldTotal).IntPart()
	}
	return c.Balance
}

// BalanceOnRevertedPayment returns the balance after undoing the payment of q, e.g. when the
// queue is deleted.
func (c Customer) BalanceOnRevertedPayment(q Queue) int64 {
	if c.belongsTo(q) && q.IsPaidByBalance() {
		return c.balanceDecimal().Add(q.GrandTotalPrice()).IntPart()
	}
	return c.Balance
}

// DebtOnMadePayment returns the debt after c is assigned a newly created queue.
func (c Customer) DebtOnMadePayment(q Queue) decimal.Decimal {
	if c.belongsTo(q) && q.Status == QueueStatusUnpaid {
		return c.Debt.Sub(q.GrandTotalPrice())
	}
	return c.Debt
}

// DebtOnUpdatedPayment returns the debt of c, the customer of newQueue, after a queue changes
// from oldQueue to newQueue. Stored debt is always derived from unpaid queues; this exists so
// callers can preview the post-transaction value.
func (c Customer) DebtOnUpdatedPayment(oldQueue, newQueue Queue) decimal.Decimal {
	if !c.belongsTo(newQueue) {
		return c.Debt
	}
	isUnpaid := newQueue.Status == QueueStatusUnpaid
	wasUnpaid := oldQueue.Status == QueueStatusUnpaid
	oldTotal := oldQueue.GrandTotalPrice()
	newTotal := newQueue.GrandTotalPrice()
	isTotalChanged := !oldTotal.Equal(newTotal)
	// Changed covers both a switch and a fresh assignment from a null customer.
	isCustomerChanged := c.ID != nil && (oldQueue.CustomerID == nil || *c.ID != *oldQueue.CustomerID)

	switch {
	case !isUnpaid && wasUnpaid && (!isCustomerChanged || isTotalChanged):
		return c.Debt.Add(oldTotal)
	case isUnpaid && (!wasUnpaid || isCustomerChanged):
		return c.Debt.Sub(newTotal)
	case isUnpaid && isTotalChanged:
		return c.Debt.Add(oldTotal).Sub(newTotal)
	}
	return c.Debt
}

// DebtOnRevertedPayment returns the debt after undoing q, e.g. when the queue is deleted.
func (c Customer) DebtOnRevertedPayment(q Queue) decimal.Decimal {
	if c.belongsTo(q) && q.Status == QueueStatusUnpaid {
		return c.Debt.Add(q.GrandTotalPrice())
	}
	return c.Debt
}
