// Package cellserver implements a development cell server speaking the grid handshake.
//
// It accepts, bans, rejects or echoes clients, which is enough to exercise the
// client connection lifecycle end to end.
package cellserver

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/pkg/errors"
	"github.com/xiaonanln/go-xnsyncutil/xnsyncutil"
	"github.com/xiaonanln/gwgrid/engine/common"
	"github.com/xiaonanln/gwgrid/engine/consts"
	"github.com/xiaonanln/gwgrid/engine/gwlog"
	"github.com/xiaonanln/gwgrid/engine/netutil"
	"github.com/xiaonanln/gwgrid/engine/proto"
)

// Config is the config of a cell server
type Config struct {
	Name       string
	MaxClients int
	Banned     []string
	Password   string
}

// Server is a development cell server
type Server struct {
	config Config
	banned common.StringSet

	clientsLock sync.Mutex
	clients     map[string]*proto.GridConnection
	closers     []io.Closer

	terminating xnsyncutil.AtomicBool
}

// New creates a cell server
func New(config Config) *Server {
	return &Server{
		config:  config,
		banned:  common.NewStringSet(config.Banned...),
		clients: map[string]*proto.GridConnection{},
	}
}

func (s *Server) String() string {
	return fmt.Sprintf("CellServer<%s>", s.config.Name)
}

// ListenTCP starts serving TCP connections on addr, returns the bound address
func (s *Server) ListenTCP(addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "%s listen tcp", s)
	}

	gwlog.Infof("%s: listening on TCP: %s ...", s, ln.Addr())
	s.addCloser(ln)
	go netutil.ServeTCPListener(ln, s)
	return ln.Addr(), nil
}

// ListenKCP starts serving KCP sessions on addr, returns the bound address
func (s *Server) ListenKCP(addr string) (net.Addr, error) {
	ln, err := netutil.ListenKCP(addr)
	if err != nil {
		return nil, errors.Wrapf(err, "%s listen kcp", s)
	}

	s.addCloser(ln)
	go netutil.ServeKCPListener(ln, s)
	return ln.Addr(), nil
}

// ListenWebSocket starts serving websocket connections on addr and path, returns the bound address
func (s *Server) ListenWebSocket(addr string, path string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "%s listen websocket", s)
	}

	mux := http.NewServeMux()
	mux.Handle(path, netutil.NewWebSocketHandler(s))
	httpServer := &http.Server{Handler: mux}
	gwlog.Infof("%s: listening on WebSocket: ws://%s%s ...", s, ln.Addr(), path)
	s.addCloser(httpServer)
	go httpServer.Serve(ln)
	return ln.Addr(), nil
}

func (s *Server) addCloser(c io.Closer) {
	s.clientsLock.Lock()
	s.closers = append(s.closers, c)
	s.clientsLock.Unlock()
}

// NumClients returns the number of accepted clients
func (s *Server) NumClients() int {
	s.clientsLock.Lock()
	n := len(s.clients)
	s.clientsLock.Unlock()
	return n
}

// Drop closes the connection of the user without notifying, returns false if the user is not connected
func (s *Server) Drop(username string) bool {
	s.clientsLock.Lock()
	gc := s.clients[username]
	s.clientsLock.Unlock()

	if gc == nil {
		return false
	}
	gc.Close()
	return true
}

// Kick notifies the user and closes its connection, returns false if the user is not connected
func (s *Server) Kick(username string, reason string) bool {
	s.clientsLock.Lock()
	gc := s.clients[username]
	s.clientsLock.Unlock()

	if gc == nil {
		return false
	}
	gc.SendDisconnectNotify(reason)
	gc.CloseAfterFlush()
	return true
}

// Shutdown stops listening and closes every client gracefully
func (s *Server) Shutdown() {
	if s.terminating.Load() {
		return
	}
	s.terminating.Store(true)

	s.clientsLock.Lock()
	closers := s.closers
	s.closers = nil
	clients := make([]*proto.GridConnection, 0, len(s.clients))
	for _, gc := range s.clients {
		clients = append(clients, gc)
	}
	s.clientsLock.Unlock()

	for _, c := range closers {
		c.Close()
	}
	for _, gc := range clients {
		gc.SendDisconnectNotify("server shutdown")
		gc.CloseAfterFlush()
	}
	gwlog.Infof("%s: shutdown, %d clients closed", s, len(clients))
}

// ServeConn serves one client connection of any network
func (s *Server) ServeConn(conn net.Conn) {
	if s.terminating.Load() {
		// server terminating, not accepting more connections
		conn.Close()
		return
	}

	gc := proto.NewGridConnection(netutil.NewBufferedConnection(conn))

	username, ok := s.handshake(gc)
	if !ok {
		// let the rejection reach the client
		gc.CloseAfterFlush()
		return
	}

	defer gc.Close()
	defer s.removeClient(username, gc)
	s.serveClient(username, gc)
}

func (s *Server) handshake(gc *proto.GridConnection) (string, bool) {
	msgtype, pkt, err := gc.RecvTimeout(consts.HANDSHAKE_TIMEOUT)
	if err != nil {
		gwlog.Warnf("%s: %s handshake failed: %v", s, gc, err)
		return "", false
	}

	if msgtype != proto.MT_CONNECT_REQUEST {
		pkt.Release()
		gc.SendConnectRejected(proto.REJECT_DENIED, fmt.Sprintf("expect %s, got %s", proto.MT_CONNECT_REQUEST, msgtype))
		return "", false
	}

	var req proto.ConnectRequest
	err = proto.ReadData(pkt, &req)
	pkt.Release()
	if err != nil {
		gc.SendConnectRejected(proto.REJECT_DENIED, "malformed connect request")
		return "", false
	}

	reason, message, ok := s.admit(req, gc)
	if !ok {
		gwlog.Infof("%s: rejected %s: %s (%s)", s, req, reason, message)
		gc.SendConnectRejected(reason, message)
		return "", false
	}

	if err := gc.SendConnectAccepted(s.config.Name); err != nil {
		s.removeClient(req.Username, gc)
		return "", false
	}
	gwlog.Infof("%s: accepted %s from %s", s, req, gc.RemoteAddr())
	return req.Username, true
}

func (s *Server) admit(req proto.ConnectRequest, gc *proto.GridConnection) (proto.RejectReason, string, bool) {
	if req.Version != consts.PROTOCOL_VERSION {
		return proto.REJECT_DENIED, fmt.Sprintf("protocol version %d not supported", req.Version), false
	}
	if req.Username == "" {
		return proto.REJECT_DENIED, "empty username", false
	}
	if s.banned.Contains(req.Username) {
		return proto.REJECT_BANNED, "user is banned", false
	}
	if s.config.Password != "" && req.Password != s.config.Password {
		return proto.REJECT_AUTH_FAILED, "wrong password", false
	}

	s.clientsLock.Lock()
	defer s.clientsLock.Unlock()
	if _, ok := s.clients[req.Username]; ok {
		return proto.REJECT_DENIED, "user already connected", false
	}
	if s.config.MaxClients > 0 && len(s.clients) >= s.config.MaxClients {
		return proto.REJECT_FULL, "server is full", false
	}
	s.clients[req.Username] = gc
	return 0, "", true
}

func (s *Server) removeClient(username string, gc *proto.GridConnection) {
	s.clientsLock.Lock()
	if s.clients[username] == gc {
		delete(s.clients, username)
	}
	s.clientsLock.Unlock()
}

func (s *Server) serveClient(username string, gc *proto.GridConnection) {
	for {
		msgtype, pkt, err := gc.Recv()
		if err != nil {
			if !gc.IsClosed() && !netutil.IsConnectionError(err) {
				gwlog.Warnf("%s: client %s recv failed: %v", s, username, err)
			}
			return
		}

		if !s.handleClientPacket(username, gc, msgtype, pkt) {
			return
		}
	}
}

func (s *Server) handleClientPacket(username string, gc *proto.GridConnection, msgtype proto.MsgType, pkt *netutil.Packet) bool {
	defer pkt.Release()

	switch {
	case msgtype == proto.MT_DISCONNECT_NOTIFY:
		gwlog.Infof("%s: client %s disconnected", s, username)
		return false
	case msgtype == proto.MT_PAYLOAD_ECHO:
		if err := gc.SendPayload(msgtype, pkt.UnreadPayload()); err != nil {
			return false
		}
	case msgtype.IsPayload():
		if consts.DEBUG_PACKETS {
			gwlog.Debugf("%s: client %s sent %s (%d bytes)", s, username, msgtype, len(pkt.UnreadPayload()))
		}
	default:
		gwlog.Warnf("%s: client %s sent unexpected %s", s, username, msgtype)
	}
	return true
}
