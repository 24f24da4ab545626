// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketOpener opens the RFB transport as a binary WebSocket connection,
// for servers bridged through a websockify-style proxy instead of exposing
// raw TCP directly.
type WebSocketOpener struct {
	URL    string
	Header http.Header
}

// NewWebSocketOpener returns an Opener that dials url (ws:// or wss://) and
// carries the RFB byte stream as binary WebSocket messages. addr passed to
// Open is ignored; the WebSocket URL already names the target.
func NewWebSocketOpener(url string, header http.Header) *WebSocketOpener {
	return &WebSocketOpener{URL: url, Header: header}
}

// Open establishes the WebSocket connection and wraps it as a net.Conn.
func (o *WebSocketOpener) Open(ctx context.Context, addr string) (net.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 45 * time.Second}
	conn, _, err := dialer.DialContext(ctx, o.URL, o.Header)
	if err != nil {
		return nil, transportClosedError("WebSocketOpener.Open", "WebSocket handshake failed", err)
	}
	return &websocketConn{conn: conn}, nil
}

// websocketConn adapts a *websocket.Conn carrying binary messages to the
// net.Conn interface the rest of the session expects, buffering leftover
// bytes between Read calls since RFB's stream semantics don't respect
// WebSocket message boundaries.
type websocketConn struct {
	conn    *websocket.Conn
	pending []byte
}

// Read drains any bytes left over from a previous message before reading
// the next binary WebSocket message.
func (c *websocketConn) Read(b []byte) (int, error) {
	if len(c.pending) == 0 {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return 0, err
		}
		c.pending = data
	}
	n := copy(b, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

// Write sends p as a single binary WebSocket message.
func (c *websocketConn) Write(p []byte) (int, error) {
	if err := c.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *websocketConn) Close() error         { return c.conn.Close() }
func (c *websocketConn) LocalAddr() net.Addr  { return c.conn.LocalAddr() }
func (c *websocketConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }
func (c *websocketConn) SetDeadline(t time.Time) error {
	if err := c.conn.SetReadDeadline(t); err != nil {
		return err
	}
	return c.conn.SetWriteDeadline(t)
}
func (c *websocketConn) SetReadDeadline(t time.Time) error  { return c.conn.SetReadDeadline(t) }
func (c *websocketConn) SetWriteDeadline(t time.Time) error { return c.conn.SetWriteDeadline(t) }
