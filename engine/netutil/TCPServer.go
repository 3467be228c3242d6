package netutil

import (
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/xiaonanln/gwgrid/engine/gwlog"
)

const (
	_ACCEPT_RETRY_DELAY = 5 * time.Millisecond
	_ACCEPT_RETRY_LIMIT = time.Second
)

// ConnServer serves connections accepted by any listener of this package
type ConnServer interface {
	ServeConn(conn net.Conn)
}

// ServeTCPListener accepts connections from ln and serves each on its own goroutine.
// It returns nil once ln is closed.
func ServeTCPListener(ln net.Listener, server ConnServer) error {
	defer ln.Close()

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			if IsTimeoutError(err) || IsTemporaryNetError(err) {
				delay = backoff(delay)
				gwlog.Warnf("accept on %s failed: %v, retry in %s", ln.Addr(), err, delay)
				time.Sleep(delay)
				continue
			}
			return errors.Wrapf(err, "accept on %s", ln.Addr())
		}

		delay = 0
		gwlog.Infof("connection from %s", conn.RemoteAddr())
		go server.ServeConn(conn)
	}
}

func backoff(delay time.Duration) time.Duration {
	if delay == 0 {
		return _ACCEPT_RETRY_DELAY
	}
	delay *= 2
	if delay > _ACCEPT_RETRY_LIMIT {
		delay = _ACCEPT_RETRY_LIMIT
	}
	return delay
}
