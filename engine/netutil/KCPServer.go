package netutil

import (
	"github.com/xiaonanln/gwgrid/engine/consts"
	"github.com/xiaonanln/gwgrid/engine/gwlog"
	"github.com/xtaci/kcp-go"
)

// ListenKCP listens on the UDP address for KCP sessions
func ListenKCP(listenAddr string) (*kcp.Listener, error) {
	ln, err := kcp.ListenWithOptions(listenAddr, nil, 10, 3)
	if err != nil {
		return nil, err
	}

	gwlog.Infof("Listening on KCP: %s ...", ln.Addr())
	return ln, nil
}

// ServeKCPListener accepts KCP sessions from ln until it is closed
func ServeKCPListener(ln *kcp.Listener, server ConnServer) error {
	defer ln.Close()

	for {
		conn, err := ln.AcceptKCP()
		if err != nil {
			return err
		}

		gwlog.Infof("KCP connection from %s", conn.RemoteAddr())
		conn.SetReadBuffer(consts.CLIENT_SOCKET_READ_BUFFER_SIZE)
		conn.SetWriteBuffer(consts.CLIENT_SOCKET_WRITE_BUFFER_SIZE)
		setKCPTurboMode(conn)
		go server.ServeConn(conn)
	}
}
