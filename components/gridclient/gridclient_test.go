package main

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaonanln/gwgrid/engine/cellserver"
	"github.com/xiaonanln/gwgrid/engine/common"
	"github.com/xiaonanln/gwgrid/engine/config"
	"github.com/xiaonanln/gwgrid/engine/directory"
	"github.com/xiaonanln/gwgrid/engine/link"
	"github.com/xiaonanln/gwgrid/engine/session"
)

func testConfig() *config.GWGridConfig {
	return &config.GWGridConfig{
		Grid: config.GridConfig{
			ConnectRange:       1,
			HalfConnectRange:   2,
			SwitchStayDuration: time.Second * 3,
		},
		Client: config.ClientConfig{
			TickInterval:       time.Millisecond * 50,
			ReconnectPerSecond: 50,
			CellPlugins:        []string{"terrain", "weather"},
		},
		Transport: config.TransportConfig{
			Network:        "tcp",
			ConnectTimeout: time.Second,
			WSPath:         "/ws",
		},
		User: config.UserConfig{
			Nickname: "Walker",
			Username: "walker",
			Password: "pw",
		},
	}
}

func startCellServer(t *testing.T, cfg cellserver.Config) (*cellserver.Server, int) {
	s := cellserver.New(cfg)
	addr, err := s.ListenTCP("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(s.Shutdown)
	return s, addr.(*net.TCPAddr).Port
}

func worldOf(t *testing.T, ports map[common.GridCell]int) directory.Directory {
	yaml := "cells:\n"
	for cell, port := range ports {
		yaml += fmt.Sprintf("  - {x: %d, z: %d, address: 127.0.0.1, port: %d, name: cell-%d-%d}\n", cell.X, cell.Z, port, cell.X, cell.Z)
	}
	dir, err := directory.ParseFile([]byte(yaml))
	require.NoError(t, err)
	return dir
}

func tickUntil(t *testing.T, gc *GridClient, cond func() bool, msg string) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		gc.tick()
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout: %s", msg)
}

func activeState(gc *GridClient) session.ServerState {
	s, err := gc.registry.GetActiveSession()
	if err != nil {
		return session.Offline
	}
	return s.ServerState()
}

func TestWalkerStep(t *testing.T) {
	w := NewWalker(common.Origin.Center(), common.East, 100)
	pos := w.Step(time.Second)
	assert.InDelta(t, float64(common.Origin.Center().X+100), float64(pos.X), 0.01)
	assert.InDelta(t, float64(common.Origin.Center().Z), float64(pos.Z), 0.01)
	assert.Equal(t, time.Second, w.Walked())

	w.Step(-time.Second)
	assert.Equal(t, time.Second, w.Walked())
}

func TestWalkerDiagonalSpeed(t *testing.T) {
	start := common.Origin.Center()
	w := NewWalker(start, common.SouthWest, 50)
	pos := w.Step(2 * time.Second)
	assert.InDelta(t, 100, float64(pos.DistanceTo(start)), 0.01)
	assert.True(t, pos.X < start.X)
	assert.True(t, pos.Z < start.Z)
}

func TestWalkerCrossesCells(t *testing.T) {
	w := NewWalker(common.Origin.Center(), common.North, 1024)
	assert.Equal(t, common.Origin, w.Cell())
	w.Step(time.Second)
	assert.Equal(t, common.GridCell{Z: 1}, w.Cell())
}

func TestPluginRegistry(t *testing.T) {
	var posted []func()
	reg, err := newPluginRegistry([]string{"weather", "terrain"}, func(f func()) {
		posted = append(posted, f)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"weather", "terrain"}, reg.Names())

	_, err = newPluginRegistry([]string{"terrain", "fishing"}, func(f func()) {})
	assert.Error(t, err)
	_, err = newPluginRegistry([]string{"terrain", "terrain"}, func(f func()) {})
	assert.Error(t, err)
}

func TestOfflineClient(t *testing.T) {
	walker := NewWalker(common.Origin.Center(), common.East, 100)
	gc, err := newGridClient(testConfig(), nil, walker, true)
	require.NoError(t, err)
	require.NoError(t, gc.start())

	active, err := gc.registry.GetActiveSession()
	require.NoError(t, err)
	assert.True(t, active.ServerIdentity().IsLoopback())
	assert.Equal(t, session.Loading, active.ServerState(), "terrain loads on a later tick")

	gc.tick()
	assert.Equal(t, session.ConnectedActive, active.ServerState())
	assert.Empty(t, active.PendingPlugins())

	gc.stop()
	assert.Equal(t, 0, gc.registry.Len())
}

func TestOnlineNeedsDirectory(t *testing.T) {
	walker := NewWalker(common.Origin.Center(), common.East, 0)
	_, err := newGridClient(testConfig(), nil, walker, false)
	assert.Error(t, err)
}

func TestUnknownPluginRejected(t *testing.T) {
	cfg := testConfig()
	cfg.Client.CellPlugins = []string{"fishing"}
	_, err := newGridClient(cfg, nil, NewWalker(common.Vector3{}, common.East, 0), true)
	assert.Error(t, err)
}

func TestOnlineClientStreamsNeighbors(t *testing.T) {
	_, port0 := startCellServer(t, cellserver.Config{Name: "cell-0-0"})
	_, port1 := startCellServer(t, cellserver.Config{Name: "cell-1-0"})
	east := common.GridCell{X: 1}
	dir := worldOf(t, map[common.GridCell]int{common.Origin: port0, east: port1})

	gc, err := newGridClient(testConfig(), dir, NewWalker(common.Origin.Center(), common.East, 0), false)
	require.NoError(t, err)
	require.NoError(t, gc.start())
	defer gc.stop()

	tickUntil(t, gc, func() bool {
		s, err := gc.registry.GetSession(east)
		return activeState(gc) == session.ConnectedActive && err == nil && s.ServerState() == session.Connected
	}, "origin active and east connected")
}

func TestOnlineClientReconnects(t *testing.T) {
	srv, port := startCellServer(t, cellserver.Config{Name: "cell-0-0"})
	dir := worldOf(t, map[common.GridCell]int{common.Origin: port})

	gc, err := newGridClient(testConfig(), dir, NewWalker(common.Origin.Center(), common.East, 0), false)
	require.NoError(t, err)
	require.NoError(t, gc.start())
	defer gc.stop()

	tickUntil(t, gc, func() bool {
		return activeState(gc) == session.ConnectedActive
	}, "first connect")

	active, err := gc.registry.GetActiveSession()
	require.NoError(t, err)
	lost := false
	sub := active.SubscribeStateChanged(func(change session.StateChange) {
		if change.New == session.Discovered && change.Connection == link.ConnLost {
			lost = true
		}
	})
	defer sub.Cancel()

	require.True(t, srv.Drop("walker"))
	tickUntil(t, gc, func() bool {
		return lost
	}, "connection lost")

	tickUntil(t, gc, func() bool {
		return activeState(gc) == session.ConnectedActive && srv.NumClients() == 1
	}, "reconnect")
}

func TestRefreshDirectory(t *testing.T) {
	_, port := startCellServer(t, cellserver.Config{Name: "cell-0-0"})
	dir := worldOf(t, map[common.GridCell]int{common.Origin: port})

	gc, err := newGridClient(testConfig(), dir, NewWalker(common.Origin.Center(), common.East, 0), false)
	require.NoError(t, err)
	require.NoError(t, gc.start())
	defer gc.stop()
	assert.Equal(t, 1, gc.cache.Len())

	far := common.GridCell{X: 7, Z: 7}
	require.NoError(t, dir.Register(far, session.ServerIdentity{Address: "127.0.0.1", Port: port, Name: "cell-7-7"}))
	gc.refreshDirectory()
	tickUntil(t, gc, func() bool {
		_, ok := gc.cache.Resolve(far)
		return ok
	}, "directory refreshed")
}

func TestBannedIsNotRetried(t *testing.T) {
	_, port := startCellServer(t, cellserver.Config{Name: "cell-0-0", Banned: []string{"walker"}})
	dir := worldOf(t, map[common.GridCell]int{common.Origin: port})

	gc, err := newGridClient(testConfig(), dir, NewWalker(common.Origin.Center(), common.East, 0), false)
	require.NoError(t, err)
	require.NoError(t, gc.start())
	defer gc.stop()

	tickUntil(t, gc, func() bool {
		active, _ := gc.registry.GetActiveSession()
		return active.ConnectionState() == link.Banned
	}, "banned")

	for i := 0; i < 10; i++ {
		gc.tick()
		time.Sleep(5 * time.Millisecond)
	}
	active, err := gc.registry.GetActiveSession()
	require.NoError(t, err)
	assert.Equal(t, session.Discovered, active.ServerState())
	assert.Equal(t, link.Banned, active.ConnectionState())
}
