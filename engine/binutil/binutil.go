package binutil

import (
	"net/http"
	_ "net/http/pprof"

	"github.com/xiaonanln/gwgrid/engine/gwlog"
)

// SetupPprofServer starts the HTTP server for go tool pprof, nothing happens if addr is empty
func SetupPprofServer(addr string) {
	if addr == "" {
		gwlog.Infof("pprof server not enabled")
		return
	}

	gwlog.Infof("pprof http://%s/debug/pprof/ ... available commands: ", addr)
	gwlog.Infof("    go tool pprof http://%s/debug/pprof/heap", addr)
	gwlog.Infof("    go tool pprof http://%s/debug/pprof/profile", addr)

	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil {
			gwlog.Errorf("pprof server stopped: %v", err)
		}
	}()
}

// SetupGWLog setup the log system of a component
func SetupGWLog(component string, logLevel string, logFile string, logStderr bool) {
	gwlog.SetSource(component)
	gwlog.Infof("Set log level to %s", logLevel)
	gwlog.SetLevel(gwlog.ParseLevel(logLevel))

	outputs := make([]string, 0, 2)
	if logFile != "" {
		outputs = append(outputs, logFile)
	}
	if logStderr {
		outputs = append(outputs, "stderr")
	}
	gwlog.SetOutput(outputs)
}
