// gwgrid builds and manages the gridservers and gridclients of a local world
package main

import (
	"flag"
	"os"
	"strings"

	"github.com/xiaonanln/gwgrid/engine/config"
)

var args struct {
	configFile string
	root       string
}

func parseArgs() {
	flag.StringVar(&args.configFile, "configfile", "", "set config file path")
	flag.StringVar(&args.root, "root", ".", "gwgrid source directory")
	flag.Usage = func() {
		showMsg("usage: gwgrid [-configfile gwgrid.ini] [-root dir] build|start|stop|kill|status")
		flag.PrintDefaults()
	}
	flag.Parse()
}

func main() {
	parseArgs()
	cmdArgs := flag.Args()
	showMsg("arguments: %s", strings.Join(cmdArgs, " "))

	if len(cmdArgs) != 1 {
		showMsg("should specify one command")
		flag.Usage()
		os.Exit(1)
	}

	if args.configFile != "" {
		config.SetConfigFile(args.configFile)
	}
	detectRoot(args.root)

	switch cmd := cmdArgs[0]; cmd {
	case "build":
		build()
	case "start":
		start()
	case "stop":
		stop()
	case "kill":
		kill()
	case "status":
		status()
	default:
		showMsgAndQuit("unknown command: %s", cmd)
	}
}
