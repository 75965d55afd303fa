package mqtt

import (
	"context"
	"net"
)

// UnixDialer connects to brokers over Unix domain sockets. The address is
// the socket file path, e.g. "/var/run/mqtt.sock".
type UnixDialer struct{}

// NewUnixDialer creates a Unix socket dialer.
func NewUnixDialer() *UnixDialer {
	return &UnixDialer{}
}

// Dial connects to the Unix socket at address.
func (d *UnixDialer) Dial(ctx context.Context, address string) (net.Conn, error) {
	var dialer net.Dialer
	return dialer.DialContext(ctx, "unix", address)
}
