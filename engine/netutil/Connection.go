package netutil

import (
	"net"

	"github.com/xiaonanln/gwgrid/engine/consts"
	"github.com/xiaonanln/netconnutil"
)

// Connection is a net.Conn that can be flushed
type Connection interface {
	netconnutil.FlushableConn
}

// NetConn turns a net.Conn into a Connection with a no-op Flush
type NetConn struct {
	net.Conn
}

// Flush does nothing since the connection is not buffered
func (n NetConn) Flush() error {
	return nil
}

// NewBufferedConnection wraps a raw network connection with temporary error
// retry and read/write buffering
func NewBufferedConnection(conn net.Conn) Connection {
	conn = netconnutil.NewNoTempErrorConn(conn)
	var c Connection = NetConn{conn}
	return netconnutil.NewBufferedConn(c, consts.BUFFERED_READ_BUFFSIZE, consts.BUFFERED_WRITE_BUFFSIZE)
}
