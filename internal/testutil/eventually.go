package testutil

import (
	"testing"
	"time"
)

// Eventually polls cond every interval until it holds, failing the test after timeout.
func Eventually(t testing.TB, timeout, interval time.Duration, cond func() bool, format string, args ...any) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf(format, args...)
		}
		time.Sleep(interval)
	}
}
