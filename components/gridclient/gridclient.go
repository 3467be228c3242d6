package main

import (
	"bytes"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/xiaonanln/go-xnsyncutil/xnsyncutil"
	"github.com/xiaonanln/goTimer"
	"github.com/xiaonanln/gwgrid/engine/async"
	"github.com/xiaonanln/gwgrid/engine/common"
	"github.com/xiaonanln/gwgrid/engine/config"
	"github.com/xiaonanln/gwgrid/engine/consts"
	"github.com/xiaonanln/gwgrid/engine/directory"
	"github.com/xiaonanln/gwgrid/engine/grid"
	"github.com/xiaonanln/gwgrid/engine/gwlog"
	"github.com/xiaonanln/gwgrid/engine/gwvar"
	"github.com/xiaonanln/gwgrid/engine/link"
	"github.com/xiaonanln/gwgrid/engine/opmon"
	"github.com/xiaonanln/gwgrid/engine/session"
	"github.com/xiaonanln/gwgrid/engine/transport"
	"golang.org/x/time/rate"
)

const (
	rsNotRunning = iota
	rsRunning
	rsTerminating
)

const (
	statusLogInterval = time.Second * 5
)

// GridClient drives a grid registry with a walking avatar
type GridClient struct {
	cfg      *config.GWGridConfig
	user     session.UserIdentity
	dir      directory.Directory
	cache    *directory.Cache
	jobs     *async.Pool
	registry *grid.Registry
	walker   *Walker
	offline  bool
	maxWalk  time.Duration

	reconnectLimiter *rate.Limiter
	registrySub      common.Subscription
	sessionSubs      map[uuid.UUID][]common.Subscription

	clock    func() time.Time
	lastTick time.Time
	runState xnsyncutil.AtomicInt
}

func newGridClient(cfg *config.GWGridConfig, dir directory.Directory, walker *Walker, offline bool) (*GridClient, error) {
	if !offline && dir == nil {
		return nil, errors.New("online mode needs a directory")
	}

	gc := &GridClient{
		cfg:         cfg,
		dir:         dir,
		walker:      walker,
		offline:     offline,
		sessionSubs: map[uuid.UUID][]common.Subscription{},
		clock:       time.Now,
		user: session.UserIdentity{
			Nickname: cfg.User.Nickname,
			Username: cfg.User.Username,
			Password: cfg.User.Password,
			HomeServer: session.ServerIdentity{
				Address: cfg.User.HomeAddress,
				Port:    cfg.User.HomePort,
				Name:    cfg.User.HomeName,
			},
		},
	}

	plugins, err := newPluginRegistry(cfg.Client.CellPlugins, func(f func()) {
		gc.registry.Post(f)
	})
	if err != nil {
		return nil, err
	}

	options := grid.Options{
		ConnectRange:       cfg.Grid.ConnectRange,
		HalfConnectRange:   cfg.Grid.HalfConnectRange,
		SwitchStayDuration: cfg.Grid.SwitchStayDuration,
		Clock:              func() time.Time { return gc.clock() },
	}
	if err := options.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid grid options")
	}

	env := session.Environment{
		Transports: transport.NewNetFactory(transport.Config{
			Network:        cfg.Transport.Network,
			ConnectTimeout: cfg.Transport.ConnectTimeout,
			WSPath:         cfg.Transport.WSPath,
		}),
		Plugins: plugins,
	}
	gc.registry = grid.NewRegistry(env, options)
	if dir != nil {
		gc.cache = directory.NewCache(dir)
		gc.jobs = async.NewPool(gc.registry.Post)
	}

	if cfg.Client.ReconnectPerSecond > 0 {
		gc.reconnectLimiter = rate.NewLimiter(rate.Limit(cfg.Client.ReconnectPerSecond), 1)
	}
	return gc, nil
}

func (gc *GridClient) String() string {
	return fmt.Sprintf("GridClient<%s>", gc.user.Username)
}

// start creates the first session: offline, or the server of the walker's cell
func (gc *GridClient) start() error {
	gc.registrySub = gc.registry.SubscribeStateChanged(gc.onRegistryEvent)
	gc.lastTick = gc.clock()

	if gc.offline {
		s := gc.registry.CreateOfflineSession(gc.user)
		gwlog.Infof("%s: started offline with %s", gc, s)
		return nil
	}

	if err := gc.cache.Refresh(); err != nil {
		return err
	}
	gc.registry.SetStreamer(gc.cache, gc.user)
	cell := gc.walker.Cell()
	identity, ok := gc.cache.Resolve(cell)
	if !ok {
		if gc.user.HomeServer.Address == "" {
			return errors.Errorf("no server for start cell %s and no home server", cell)
		}
		identity = gc.user.HomeServer
	}

	s, err := gc.registry.CreateSession(cell, identity, gc.user)
	if err != nil {
		return err
	}
	gc.registry.SetAvatarPosition(gc.walker.Position())
	gwlog.Infof("%s: started at %s with %s", gc, gc.walker, s)
	return nil
}

// tick moves the walker and updates the registry
func (gc *GridClient) tick() {
	now := gc.clock()
	dt := now.Sub(gc.lastTick)
	gc.lastTick = now

	pos := gc.walker.Step(dt)
	if !gc.offline {
		gc.registry.SetAvatarPosition(pos)
	}
	gc.registry.Update()
	gc.checkReconnect()

	if gc.maxWalk > 0 && gc.walker.Walked() >= gc.maxWalk {
		gwlog.Infof("%s: walked %s, quit", gc, gc.walker.Walked())
		gc.terminate()
	}
}

// checkReconnect re-requests the active session after it fell back to Discovered
func (gc *GridClient) checkReconnect() {
	if gc.reconnectLimiter == nil {
		return
	}

	active, err := gc.registry.GetActiveSession()
	if err != nil {
		return
	}
	if active.ServerState() != session.Discovered || active.TargetState() != session.Discovered {
		return
	}
	switch active.ConnectionState() {
	case link.Banned, link.AuthFail:
		return
	}

	if !gc.reconnectLimiter.Allow() {
		return
	}
	gwlog.Infof("%s: reconnecting %s after %s", gc, active, active.ConnectionState())
	active.RequestConnectedActive()
}

// refreshDirectory reloads the directory on a job worker and swaps the snapshot on the tick routine
func (gc *GridClient) refreshDirectory() {
	if gc.jobs == nil {
		return
	}
	dir := gc.dir
	gc.jobs.AppendAsyncJob("directory", func() (interface{}, error) {
		return directory.Load(dir)
	}, func(res interface{}, err error) {
		if err != nil {
			gwlog.Errorf("%s: refresh directory failed: %v", gc, err)
			return
		}
		gc.cache.Set(res.(directory.Snapshot))
		if consts.DEBUG_GRID {
			gwlog.Debugf("%s: directory refreshed, %d cells", gc, gc.cache.Len())
		}
	})
}

func (gc *GridClient) onRegistryEvent(ev grid.RegistryEvent) {
	switch ev.Kind {
	case grid.SessionCreated:
		s := ev.Session
		gwlog.Infof("%s: session created: %s", gc, s)
		gc.sessionSubs[s.ID()] = []common.Subscription{
			s.SubscribeStateChanged(func(change session.StateChange) {
				gwlog.Infof("%s: %s", gc, change)
			}),
			s.SubscribeReady(func() {
				gwlog.Infof("%s: %s is ready", gc, s)
			}),
		}
		gwvar.NumSessions.Set(int64(gc.registry.Len()))
	case grid.SessionDestroyed:
		gwlog.Infof("%s: session destroyed: %s", gc, ev.Session)
		for _, sub := range gc.sessionSubs[ev.Session.ID()] {
			sub.Cancel()
		}
		delete(gc.sessionSubs, ev.Session.ID())
		gwvar.NumSessions.Set(int64(gc.registry.Len()))
	case grid.ActiveChanged:
		gwlog.Infof("%s: active session %v -> %v", gc, ev.Previous, ev.Session)
		if ev.Session != nil {
			gwvar.ActiveCell.Set(ev.Cell.String())
		} else {
			gwvar.ActiveCell.Set("")
		}
	}
}

func (gc *GridClient) logStatus() {
	gwlog.Infof("%s: %s at %s, switching=%v", gc, gc.registry, gc.walker, gc.registry.IsSwitching())
	for _, s := range gc.registry.Sessions() {
		gwlog.Infof("    %s target=%s connection=%s pending=%v", s, s.TargetState(), s.ConnectionState(), s.PendingPlugins())
	}
}

func (gc *GridClient) run() {
	gc.runState.Store(rsRunning)
	tickTimer := timer.AddTimer(gc.cfg.Client.TickInterval, gc.tick)
	statusTimer := timer.AddTimer(statusLogInterval, gc.logStatus)
	refreshTimer := timer.AddTimer(consts.DIRECTORY_REFRESH_INTERVAL, gc.refreshDirectory)

	ticker := time.Tick(consts.CLIENT_LOOP_SLEEP)
	for gc.runState.Load() == rsRunning {
		<-ticker
		timer.Tick()
	}

	tickTimer.Cancel()
	statusTimer.Cancel()
	refreshTimer.Cancel()
	gc.stop()
}

func (gc *GridClient) terminate() {
	gc.runState.Store(rsTerminating)
}

// stop destroys every session and closes the directory
func (gc *GridClient) stop() {
	gc.registry.Clear()
	gc.registry.Update()
	gc.registrySub.Cancel()

	if gc.jobs != nil {
		gc.jobs.Shutdown()
	}
	if gc.dir != nil {
		if err := gc.dir.Close(); err != nil {
			gwlog.Errorf("%s: close directory failed: %v", gc, err)
		}
	}

	var buf bytes.Buffer
	opmon.Dump(&buf)
	gwlog.Infof("%s: stopped\n%s", gc, buf.String())
	gc.runState.Store(rsNotRunning)
}
