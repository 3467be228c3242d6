package main

import (
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xiaonanln/gwgrid/engine/common"
	"github.com/xiaonanln/gwgrid/engine/config"
	"github.com/xiaonanln/gwgrid/engine/directory"
	"github.com/xiaonanln/gwgrid/engine/session"
)

const startSettleTime = time.Second

// start runs one gridserver for every cell of the world directory
func start() {
	ws := detectWorldStatus()
	if len(ws.ServerProcs) > 0 {
		showWorldStatus(ws)
		showMsgAndQuit("gridservers are already running")
	}

	dir, err := directory.Open(config.GetDirectory(), config.GetConfigDir())
	checkErrorOrQuit(err, "open directory failed")
	snapshot, err := directory.Load(dir)
	dir.Close()
	checkErrorOrQuit(err, "load directory failed")
	if len(snapshot) == 0 {
		showMsgAndQuit("directory has no cells")
	}

	for _, cell := range snapshot.Cells() {
		startServer(cell, snapshot[cell])
	}

	time.Sleep(startSettleTime)
	status()
}

func startServer(cell common.GridCell, id session.ServerIdentity) {
	showMsg("start gridserver %s for cell %s on port %d ...", id.Name, cell, id.Port)
	cmd := exec.Command(env.Executable(_GridServer), serverArgs(cell, id)...)
	cmd.Dir = env.ComponentDir(_GridServer)
	err := cmd.Start()
	checkErrorOrQuit(err, "start gridserver failed")
	cmd.Process.Release()
}

func serverArgs(cell common.GridCell, id session.ServerIdentity) []string {
	args := []string{
		"-cellx", strconv.Itoa(int(cell.X)),
		"-cellz", strconv.Itoa(int(cell.Z)),
		"-port", strconv.Itoa(id.Port),
		"-name", id.Name,
		"-pidfile", "gridserver-" + strconv.Itoa(id.Port) + ".pid",
	}
	if configFile, err := filepath.Abs(config.GetConfigFilePath()); err == nil {
		args = append(args, "-configfile", configFile)
	}
	return args
}
