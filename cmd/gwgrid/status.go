package main

import (
	"path/filepath"

	"github.com/xiaonanln/gwgrid/cmd/gwgrid/process"
)

// WorldStatus is the set of gwgrid processes running on this host
type WorldStatus struct {
	ServerProcs []process.Process
	ClientProcs []process.Process
}

// IsRunning returns if any server or client is running
func (ws *WorldStatus) IsRunning() bool {
	return len(ws.ServerProcs) > 0 || len(ws.ClientProcs) > 0
}

// Procs returns clients before servers, the order they should be stopped in
func (ws *WorldStatus) Procs() []process.Process {
	var procs []process.Process
	procs = append(procs, ws.ClientProcs...)
	procs = append(procs, ws.ServerProcs...)
	return procs
}

func detectWorldStatus() *WorldStatus {
	ws := &WorldStatus{}
	procs, err := process.Processes()
	checkErrorOrQuit(err, "list processes failed")

	serverPath := env.Executable(_GridServer)
	clientPath := env.Executable(_GridClient)
	for _, proc := range procs {
		path, err := proc.Path()
		if err != nil {
			continue
		}
		switch filepath.Clean(path) {
		case serverPath:
			ws.ServerProcs = append(ws.ServerProcs, proc)
		case clientPath:
			ws.ClientProcs = append(ws.ClientProcs, proc)
		}
	}
	return ws
}

func status() {
	showWorldStatus(detectWorldStatus())
}

func showWorldStatus(ws *WorldStatus) {
	showMsg("%d gridservers running, %d gridclients running", len(ws.ServerProcs), len(ws.ClientProcs))
	for _, proc := range ws.Procs() {
		showMsg("\t%-10d%-16s%s", proc.Pid(), proc.Executable(), proc.Cmdline())
	}
}
