package mqtt

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketSubprotocol is the registered MQTT WebSocket subprotocol name.
const WebSocketSubprotocol = "mqtt"

// WSConn adapts a WebSocket connection to net.Conn so StreamTransport can
// run over it. MQTT over WebSocket travels in binary messages; message
// boundaries need not align with packet boundaries, so reads buffer the
// current message.
type WSConn struct {
	conn *websocket.Conn
	buf  []byte
	pos  int
}

// NewWSConn wraps an established WebSocket connection.
func NewWSConn(conn *websocket.Conn) *WSConn {
	return &WSConn{conn: conn}
}

// Read returns bytes from the current binary message, fetching the next one
// when the buffer is exhausted.
func (c *WSConn) Read(p []byte) (int, error) {
	if c.pos >= len(c.buf) {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return 0, err
		}
		if messageType != websocket.BinaryMessage {
			return 0, ErrProtocolViolation
		}
		c.buf, c.pos = data, 0
	}

	n := copy(p, c.buf[c.pos:])
	c.pos += n
	return n, nil
}

// Write sends b as one binary message.
func (c *WSConn) Write(b []byte) (int, error) {
	if err := c.conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

// Close closes the connection.
func (c *WSConn) Close() error { return c.conn.Close() }

// LocalAddr returns the local network address.
func (c *WSConn) LocalAddr() net.Addr { return c.conn.LocalAddr() }

// RemoteAddr returns the remote network address.
func (c *WSConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// SetDeadline sets the read and write deadlines.
func (c *WSConn) SetDeadline(t time.Time) error {
	if err := c.conn.SetReadDeadline(t); err != nil {
		return err
	}
	return c.conn.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline.
func (c *WSConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// SetWriteDeadline sets the write deadline.
func (c *WSConn) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}

// WSDialer connects to brokers over WebSocket.
type WSDialer struct {
	// Dialer is the underlying WebSocket dialer. Nil uses a dialer with
	// the MQTT subprotocol preconfigured.
	Dialer *websocket.Dialer

	// Header is sent with the HTTP upgrade request.
	Header http.Header
}

// NewWSDialer creates a WebSocket dialer announcing the MQTT subprotocol.
func NewWSDialer() *WSDialer {
	return &WSDialer{
		Dialer: &websocket.Dialer{
			Subprotocols:    []string{WebSocketSubprotocol},
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// Dial performs the WebSocket handshake against a ws:// or wss:// address.
func (d *WSDialer) Dial(ctx context.Context, address string) (net.Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = NewWSDialer().Dialer
	}

	conn, _, err := dialer.DialContext(ctx, address, d.Header)
	if err != nil {
		return nil, err
	}
	return NewWSConn(conn), nil
}
