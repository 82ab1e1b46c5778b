//go:build integration

package integration

import (
	"fmt"
	"time"
)

// pollInterval is the pause between readiness checks.
const pollInterval = 500 * time.Millisecond

// WaitForBroker retries check until it returns nil or timeout is reached. A
// listening port does not mean the queue manager accepts connections yet.
func WaitForBroker(check func() error, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	attempts := 0
	var lastErr error
	for time.Now().Before(deadline) {
		attempts++
		if lastErr = check(); lastErr == nil {
			return nil
		}
		time.Sleep(pollInterval)
	}
	return fmt.Errorf("broker not ready after %s (%d attempts): %w", timeout, attempts, lastErr)
}
