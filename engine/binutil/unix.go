// +build !windows

package binutil

import (
	"os"

	"github.com/sevlyar/go-daemon"
	"github.com/xiaonanln/gwgrid/engine/gwlog"
)

// Releaser releases the daemon context when the process quits
type Releaser interface {
	Release() error
}

// Daemonize forks the process into background, the parent exits
func Daemonize(pidFile string) Releaser {
	context := &daemon.Context{
		PidFileName: pidFile,
		PidFilePerm: 0644,
	}
	child, err := context.Reborn()
	if err != nil {
		gwlog.Panicf("daemonize failed: %v", err)
	}

	if child != nil {
		gwlog.Infof("run in daemon mode")
		os.Exit(0)
	}
	return context
}
