package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xiaonanln/gwgrid/engine/binutil"
	"github.com/xiaonanln/gwgrid/engine/common"
	"github.com/xiaonanln/gwgrid/engine/config"
	"github.com/xiaonanln/gwgrid/engine/consts"
	"github.com/xiaonanln/gwgrid/engine/directory"
	"github.com/xiaonanln/gwgrid/engine/gwlog"
)

var args struct {
	configFile string
	logLevel   string
	offline    bool
	direction  string
	speed      float64
	startX     int
	startZ     int
	duration   time.Duration
	pprofAddr  string
}

func parseArgs() {
	flag.StringVar(&args.configFile, "configfile", "", "set config file path")
	flag.StringVar(&args.logLevel, "log", "", "set log level, will override log level in config")
	flag.BoolVar(&args.offline, "offline", false, "run against an offline session")
	flag.StringVar(&args.direction, "dir", "east", "walking direction: north, northeast, east, ...")
	flag.Float64Var(&args.speed, "speed", consts.GRID_CELL_SIZE/8, "walking speed in world units per second")
	flag.IntVar(&args.startX, "startx", 0, "x of the start cell")
	flag.IntVar(&args.startZ, "startz", 0, "z of the start cell")
	flag.DurationVar(&args.duration, "duration", 0, "quit after walking this long, 0 walks forever")
	flag.StringVar(&args.pprofAddr, "pprof", "", "pprof http address, disabled if empty")
	flag.Parse()
}

func main() {
	parseArgs()

	if args.configFile != "" {
		config.SetConfigFile(args.configFile)
	}

	cfg := config.Get()
	logLevel := args.logLevel
	if logLevel == "" {
		logLevel = cfg.Client.LogLevel
	}
	binutil.SetupGWLog("gridclient", logLevel, cfg.Client.LogFile, cfg.Client.LogStderr)
	defer gwlog.Sync()
	binutil.SetupPprofServer(args.pprofAddr)

	dir, ok := common.ParseDirection(args.direction)
	if !ok {
		gwlog.Fatalf("unknown direction: %s", args.direction)
	}
	start := common.GridCell{X: int32(args.startX), Z: int32(args.startZ)}
	walker := NewWalker(start.Center(), dir, common.Coord(args.speed))

	offline := cfg.Client.Offline || args.offline
	var worldDir directory.Directory
	if !offline {
		var err error
		worldDir, err = directory.Open(config.GetDirectory(), config.GetConfigDir())
		if err != nil {
			gwlog.Fatalf("open directory failed: %v", err)
		}
	}

	gc, err := newGridClient(cfg, worldDir, walker, offline)
	if err != nil {
		gwlog.Fatalf("create grid client failed: %v", err)
	}
	gc.maxWalk = args.duration
	if err := gc.start(); err != nil {
		gwlog.Fatalf("start grid client failed: %v", err)
	}

	setupSignals(gc)
	gc.run()
}

func setupSignals(gc *GridClient) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signalChan
		gwlog.Infof("signal %s received, grid client is quitting ...", sig)
		gc.terminate()
	}()
}
