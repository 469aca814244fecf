// Package testing switches the cabinet into test mode for any test binary
// that imports it: access logs are silenced and, unless STORAGE_BACKEND is
// already set, services are built on the in-memory store.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

// ensureTestMode sets CABINET_TEST_MODE once per process.
func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("CABINET_TEST_MODE", "1")
		if os.Getenv("STORAGE_BACKEND") == "" {
			_ = os.Setenv("STORAGE_BACKEND", "memory")
		}
	})
}

func init() {
	ensureTestMode()
}

// TestMain lets a package delegate its own TestMain here.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
