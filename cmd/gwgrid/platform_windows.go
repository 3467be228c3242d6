//go:build windows

package main

import (
	"syscall"
)

const (
	// BinaryExtension extension used on windows
	BinaryExtension = ".exe"
	// StopSignal syscall used to stop servers and clients
	StopSignal = syscall.SIGKILL
)
