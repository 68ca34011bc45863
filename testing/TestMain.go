package testing

import (
	"os"
	stdtesting "testing"

	_ "github.com/mealdesk/mealdesk-console/internal/testing/guard"
)

// TestMain runs a package's tests with the test-mode environment
// already applied by the guard package's init.
func TestMain(m *stdtesting.M) {
	os.Exit(m.Run())
}
