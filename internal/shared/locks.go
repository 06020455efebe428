package shared

import "fmt"

// CustomerLockKey builds the redis key serializing writes that touch one customer's balance.
func CustomerLockKey(customerID int64) string {
	return fmt.Sprintf("ledger:customer:%d:lock", customerID)
}
