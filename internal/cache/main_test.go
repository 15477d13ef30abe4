package cache

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies Watch's background goroutine always exits with its
// context, per the teacher's concurrency-test convention (e.g.
// internal/mangle/engine_test.go's goleak.VerifyTestMain).
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
