package netutil

import (
	"net/http"

	"github.com/xiaonanln/gwgrid/engine/gwlog"
	"golang.org/x/net/websocket"
)

// NewWebSocketHandler creates an http handler that passes binary websocket connections to server
func NewWebSocketHandler(server ConnServer) http.Handler {
	return websocket.Handler(func(wsConn *websocket.Conn) {
		gwlog.Debugf("WebSocket Connection: %s", wsConn.Request().RemoteAddr)
		wsConn.PayloadType = websocket.BinaryFrame
		server.ServeConn(wsConn)
	})
}
