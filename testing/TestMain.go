// Package testing forces test mode for packages that import it, so binaries skip runtime side
// effects such as connecting to PostgreSQL or redis.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

// testModeEnv matches app.TestModeEnv.
const testModeEnv = "LEDGER_TEST_MODE"

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv(testModeEnv, "1")
	})
}

func init() {
	ensureTestMode()
}

// TestMain can be delegated to from a package's own TestMain.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
