package extract

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain fails the package when a test leaves resolver caches or parse
// workers running.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
