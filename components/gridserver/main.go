package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/xiaonanln/gwgrid/engine/binutil"
	"github.com/xiaonanln/gwgrid/engine/cellserver"
	"github.com/xiaonanln/gwgrid/engine/common"
	"github.com/xiaonanln/gwgrid/engine/config"
	"github.com/xiaonanln/gwgrid/engine/directory"
	"github.com/xiaonanln/gwgrid/engine/gwlog"
	"github.com/xiaonanln/gwgrid/engine/gwvar"
	"github.com/xiaonanln/gwgrid/engine/session"
)

const (
	loadReportInterval = time.Second * 10
)

var args struct {
	configFile      string
	logLevel        string
	runInDaemonMode bool
	pidFile         string
	pprofAddr       string
	name            string
	port            int
	cellX           int
	cellZ           int
}

func parseArgs() {
	flag.StringVar(&args.configFile, "configfile", "", "set config file path")
	flag.StringVar(&args.logLevel, "log", "", "set log level, will override log level in config")
	flag.BoolVar(&args.runInDaemonMode, "d", false, "run in daemon mode")
	flag.StringVar(&args.pidFile, "pidfile", "gridserver.pid", "pid file in daemon mode")
	flag.StringVar(&args.pprofAddr, "pprof", "", "pprof http address, disabled if empty")
	flag.StringVar(&args.name, "name", "", "server name, will override name in config")
	flag.IntVar(&args.port, "port", 0, "listen port, will override port in config")
	flag.IntVar(&args.cellX, "cellx", 0, "x of the served cell, will override cellx in config")
	flag.IntVar(&args.cellZ, "cellz", 0, "z of the served cell, will override cellz in config")
	flag.Parse()
}

// applyArgs overrides server config with the flags given on the command line
func applyArgs(cfg *config.ServerConfig) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			cfg.Name = args.name
		case "port":
			cfg.Port = args.port
		case "cellx":
			cfg.CellX = args.cellX
		case "cellz":
			cfg.CellZ = args.cellZ
		}
	})
}

func main() {
	parseArgs()

	if args.runInDaemonMode {
		daemoncontext := binutil.Daemonize(args.pidFile)
		defer daemoncontext.Release()
	}

	if args.configFile != "" {
		config.SetConfigFile(args.configFile)
	}

	serverConfig := config.GetServer()
	applyArgs(serverConfig)
	logLevel := args.logLevel
	if logLevel == "" {
		logLevel = serverConfig.LogLevel
	}
	binutil.SetupGWLog("gridserver", logLevel, serverConfig.LogFile, serverConfig.LogStderr)
	defer gwlog.Sync()
	binutil.SetupPprofServer(args.pprofAddr)

	srv := cellserver.New(cellserver.Config{
		Name:       serverConfig.Name,
		MaxClients: serverConfig.MaxClients,
		Banned:     serverConfig.Banned.ToList(),
		Password:   serverConfig.Password,
	})

	boundAddr, err := listen(srv, serverConfig)
	if err != nil {
		gwlog.Fatalf("%s: listen failed: %v", srv, err)
	}
	gwlog.Infof("%s: serving %s on %s", srv, serverConfig.Network, boundAddr)
	gwvar.IsServing.Set(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := binutil.StartupLoadMonitor(ctx, loadReportInterval, func(cpuPercent float64) {
		numClients := srv.NumClients()
		gwvar.NumClients.Set(int64(numClients))
		gwlog.Infof("%s: %d clients, cpu %.2f%%", srv, numClients, cpuPercent)
	}); err != nil {
		gwlog.Errorf("%s: load monitor not started: %v", srv, err)
	}

	var dir directory.Directory
	cell := common.GridCell{X: int32(serverConfig.CellX), Z: int32(serverConfig.CellZ)}
	if serverConfig.Register {
		dir, err = directory.Open(config.GetDirectory(), config.GetConfigDir())
		if err != nil {
			gwlog.Fatalf("%s: open directory failed: %v", srv, err)
		}
		identity := session.ServerIdentity{
			Address: serverConfig.Ip,
			Port:    portOf(boundAddr, serverConfig.Port),
			Name:    serverConfig.Name,
		}
		binutil.StartupCheckRegistration(ctx, dir, cell, identity)
	}

	waitSignal()

	gwlog.Infof("%s: shutting down ...", srv)
	gwvar.IsServing.Set(false)
	cancel()
	if dir != nil {
		if err := dir.Unregister(cell); err != nil {
			gwlog.Errorf("%s: unregister cell %s failed: %v", srv, cell, err)
		}
		dir.Close()
	}
	srv.Shutdown()
	gwlog.Infof("%s: shutdown", srv)
}

func listen(srv *cellserver.Server, cfg *config.ServerConfig) (net.Addr, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Ip, cfg.Port)
	switch cfg.Network {
	case "tcp":
		return srv.ListenTCP(addr)
	case "kcp":
		return srv.ListenKCP(addr)
	case "ws":
		return srv.ListenWebSocket(addr, cfg.WSPath)
	default:
		return nil, errors.Errorf("unknown network: %s", cfg.Network)
	}
}

func portOf(addr net.Addr, fallback int) int {
	switch a := addr.(type) {
	case *net.TCPAddr:
		return a.Port
	case *net.UDPAddr:
		return a.Port
	}
	return fallback
}

func waitSignal() {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	for {
		sig := <-signalChan
		if sig == syscall.SIGINT || sig == syscall.SIGTERM {
			gwlog.Infof("signal %s received", sig)
			return
		}
		gwlog.Infof("unexpected signal: %s", sig)
	}
}
