//go:build !windows

package main

import (
	"syscall"
)

const (
	// BinaryExtension extension used on unix
	BinaryExtension = ""
	// StopSignal syscall used to stop servers and clients
	StopSignal = syscall.SIGTERM
)
