package main

import (
	"syscall"
	"time"

	"github.com/xiaonanln/gwgrid/cmd/gwgrid/process"
)

const (
	stopCheckInterval = time.Millisecond * 100
	stopTimeout       = time.Second * 30
)

func stop() {
	stopWithSignal(StopSignal)
}

func kill() {
	stopWithSignal(syscall.SIGKILL)
}

func stopWithSignal(signal syscall.Signal) {
	ws := detectWorldStatus()
	showWorldStatus(ws)
	if !ws.IsRunning() {
		showMsgAndQuit("no gridserver or gridclient is running currently")
	}

	for _, proc := range ws.Procs() {
		stopProc(proc, signal)
	}
}

func stopProc(proc process.Process, signal syscall.Signal) {
	showMsg("stop process %s pid=%d", proc.Executable(), proc.Pid())
	err := proc.Signal(signal)
	checkErrorOrQuit(err, "stop process failed")

	deadline := time.Now().Add(stopTimeout)
	for time.Now().Before(deadline) {
		time.Sleep(stopCheckInterval)
		running, err := process.Running(proc.Pid())
		checkErrorOrQuit(err, "check process failed")
		if !running {
			return
		}
	}
	showMsgAndQuit("process %s pid=%d did not stop in %s", proc.Executable(), proc.Pid(), stopTimeout)
}
