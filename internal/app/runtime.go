package app

import (
	"os"
	"sync/atomic"
)

const testModeEnv = "CABINET_TEST_MODE"

const (
	modeUnknown int32 = iota
	modeLive
	modeTest
)

var runtimeMode atomic.Int32

// InTestMode reports whether CABINET_TEST_MODE=1 was set when the flag was
// first read. Test mode silences access logs.
func InTestMode() bool {
	mode := runtimeMode.Load()
	if mode == modeUnknown {
		mode = readMode()
		runtimeMode.CompareAndSwap(modeUnknown, mode)
	}
	return mode == modeTest
}

// RefreshTestMode rereads CABINET_TEST_MODE.
func RefreshTestMode() {
	runtimeMode.Store(readMode())
}

func readMode() int32 {
	if os.Getenv(testModeEnv) == "1" {
		return modeTest
	}
	return modeLive
}
