package shared

import "errors"

// ErrLockNotAcquired indicates another writer holds a ledger lock.
var ErrLockNotAcquired = errors.New("lock not acquired")
