//go:build !linux || !cgo

package cdparanoia

import (
	"fmt"
	"os"
)

func init() {
	fmt.Fprintln(os.Stderr, "NOTE: cdparanoia is only supported on linux with cgo. You are operating on a mock implementation for testing which returns white noise.")
}

// nativeIdentify finds the simulated drive under any device name.
func nativeIdentify(device string, lm LogMode) (nativeDrive, string) {
	return &simDrive{disc: DefaultSimulatedDisc()}, ""
}

func nativeVersion() string {
	return "mock"
}

func nativeInterfaceVersion() string {
	return "mock"
}
