package main

import (
	"os"
	"runtime"
)

func init() {
	// The tray event loop must own the main thread on macOS.
	runtime.LockOSThread()
}

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
