package netutil

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/xiaonanln/gwgrid/engine/consts"
	"github.com/xtaci/kcp-go"
	"golang.org/x/net/websocket"
)

// Supported networks
const (
	NetworkTCP       = "tcp"
	NetworkKCP       = "kcp"
	NetworkWebSocket = "ws"
)

type timeoutError interface {
	Timeout() bool
}

type temporaryError interface {
	Temporary() bool
}

// IsConnectionError check if the error is a connection error (close)
func IsConnectionError(_err interface{}) bool {
	err, ok := _err.(error)
	if !ok {
		return false
	}

	err = errors.Cause(err)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return true
	}

	neterr, ok := err.(net.Error)
	if !ok {
		return false
	}
	if neterr.Timeout() {
		return false
	}

	return true
}

// IsTimeoutError checks if the error is a timeout error
func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	err = errors.Cause(err)
	ne, ok := err.(timeoutError)
	return ok && ne.Timeout()
}

// IsTemporaryNetError checks if the error is a temporary network error
func IsTemporaryNetError(err error) bool {
	if err == nil {
		return false
	}

	err = errors.Cause(err)
	ne, ok := err.(temporaryError)
	return ok && ne.Temporary()
}

// ValidNetwork checks if the network name is supported
func ValidNetwork(network string) bool {
	switch network {
	case NetworkTCP, NetworkKCP, NetworkWebSocket:
		return true
	}
	return false
}

// Dial connects to host:port over the network and returns a buffered connection
func Dial(network string, host string, port int, timeout time.Duration, wsPath string) (Connection, error) {
	if timeout <= 0 {
		timeout = consts.DEFAULT_CONNECT_TIMEOUT
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	var conn net.Conn
	var err error
	switch network {
	case NetworkTCP:
		conn, err = dialTCP(addr, timeout)
	case NetworkKCP:
		conn, err = dialKCP(addr)
	case NetworkWebSocket:
		conn, err = dialWebSocket(addr, timeout, wsPath)
	default:
		return nil, errors.Errorf("unknown network: %s", network)
	}

	if err != nil {
		return nil, errors.Wrapf(err, "dial %s %s", network, addr)
	}
	return NewBufferedConnection(conn), nil
}

func dialTCP(addr string, timeout time.Duration) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}

	tcpConn := conn.(*net.TCPConn)
	tcpConn.SetReadBuffer(consts.CLIENT_SOCKET_READ_BUFFER_SIZE)
	tcpConn.SetWriteBuffer(consts.CLIENT_SOCKET_WRITE_BUFFER_SIZE)
	tcpConn.SetNoDelay(true)
	return conn, nil
}

func dialKCP(addr string) (net.Conn, error) {
	conn, err := kcp.DialWithOptions(addr, nil, 10, 3)
	if err != nil {
		return nil, err
	}

	conn.SetReadBuffer(consts.CLIENT_SOCKET_READ_BUFFER_SIZE)
	conn.SetWriteBuffer(consts.CLIENT_SOCKET_WRITE_BUFFER_SIZE)
	setKCPTurboMode(conn)
	return conn, nil
}

// turbo mode according to https://github.com/skywind3000/kcp/blob/master/README.en.md#protocol-configuration
func setKCPTurboMode(conn *kcp.UDPSession) {
	conn.SetStreamMode(true)
	conn.SetWriteDelay(true)
	conn.SetNoDelay(1, 10, 2, 1)
}

func dialWebSocket(addr string, timeout time.Duration, wsPath string) (net.Conn, error) {
	if wsPath == "" {
		wsPath = "/"
	}
	config, err := websocket.NewConfig(fmt.Sprintf("ws://%s%s", addr, wsPath), fmt.Sprintf("http://%s/", addr))
	if err != nil {
		return nil, err
	}

	config.Dialer = &net.Dialer{Timeout: timeout}
	wsConn, err := websocket.DialConfig(config)
	if err != nil {
		return nil, err
	}

	wsConn.PayloadType = websocket.BinaryFrame
	return wsConn, nil
}
