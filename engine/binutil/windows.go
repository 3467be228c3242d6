// +build windows

package binutil

import "github.com/xiaonanln/gwgrid/engine/gwlog"

// Releaser releases the daemon context when the process quits
type Releaser interface {
	Release() error
}

type nopRelease int

func (_ nopRelease) Release() error {
	return nil
}

// Daemonize does nothing on windows
func Daemonize(pidFile string) Releaser {
	gwlog.Warnf("can not run in daemon mode in windows, -d ignored")
	return nopRelease(0)
}
