package app

import (
	"os"
	"strconv"
	"sync"
)

// TestModeEnv switches the binaries into test mode. The testing package sets it on import.
const TestModeEnv = "LEDGER_TEST_MODE"

var testMode = sync.OnceValue(func() bool { return testModeFrom(os.Getenv) })

// testModeFrom parses TestModeEnv with strconv.ParseBool. Unset or malformed values are false.
func testModeFrom(getenv func(string) string) bool {
	on, err := strconv.ParseBool(getenv(TestModeEnv))
	return err == nil && on
}

// InTestMode reports whether the binaries should skip connecting to PostgreSQL or redis. The
// environment is read once per process.
func InTestMode() bool {
	return testMode()
}
