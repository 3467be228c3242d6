//go:build windows

package process

import (
	"syscall"
)

// Signal kills the process, windows has no signal delivery to other processes
func (p process) Signal(sig syscall.Signal) error {
	return p.Process.Kill()
}
