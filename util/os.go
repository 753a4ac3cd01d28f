package util

import (
	"context"
	"os"
	"time"
)

const (
	ExitCodeStartFailed      = 1001
	ExitCodeHttpServerFailed = 1002
	ExitCodeInvalidConfig    = 1003
)

// OsExit is swapped out by tests that exercise fatal paths.
var OsExit = os.Exit

// CancelAndWait cancels ctx and gives goroutines listening on it a moment to
// observe the cancellation before the caller tears down test fixtures.
func CancelAndWait(cancel context.CancelFunc) {
	cancel()
	time.Sleep(50 * time.Millisecond)
}
