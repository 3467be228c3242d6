// Package process lists and signals local processes
package process

import (
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	psutil_process "github.com/shirou/gopsutil/process"
)

// Process is a running process on this host
type Process interface {
	Pid() int32
	Executable() string
	Path() (string, error)
	Cmdline() string
	Signal(sig syscall.Signal) error
}

type process struct {
	*psutil_process.Process
}

func (p process) Pid() int32 {
	return p.Process.Pid
}

func (p process) Executable() string {
	name, _ := p.Process.Name()
	return name
}

// Path returns the absolute executable path, falling back to argv[0] resolved against cwd
func (p process) Path() (string, error) {
	path, err := p.Process.Exe()
	if err == nil && path != "" {
		return path, nil
	}
	cmdline, err := p.Process.CmdlineSlice()
	if err != nil {
		return "", err
	}
	if len(cmdline) == 0 {
		return "", errors.New("empty command line")
	}
	path = cmdline[0]
	if !filepath.IsAbs(path) {
		cwd, err := p.Process.Cwd()
		if err != nil {
			return "", err
		}
		path = filepath.Join(cwd, path)
	}
	return path, nil
}

func (p process) Cmdline() string {
	cmdline, err := p.Process.CmdlineSlice()
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return strings.Join(cmdline, " ")
}

// Processes returns all processes of this host
func Processes() ([]Process, error) {
	ps, err := psutil_process.Processes()
	if err != nil {
		return nil, err
	}

	procs := make([]Process, 0, len(ps))
	for _, p := range ps {
		procs = append(procs, process{p})
	}
	return procs, nil
}

// Running returns if a process with pid still exists
func Running(pid int32) (bool, error) {
	return psutil_process.PidExists(pid)
}
