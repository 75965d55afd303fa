package mqtt

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"
)

// Transport is the byte-stream contract the engine consumes: typed packets
// out, typed packets in, one at a time. Receive blocks until the next packet
// arrives; the engine's receive loop calls it again only after the previous
// packet is fully dispatched, so inbound packets are never pipelined.
type Transport interface {
	// Send serializes and writes one packet.
	Send(pkt Packet) error

	// Receive blocks until the next inbound packet is decoded.
	Receive() (Packet, error)

	// Close tears down the underlying stream. Any blocked Receive returns
	// with an error.
	Close() error
}

// StreamTransport implements Transport over any net.Conn. Writes are
// serialized by a mutex; reads are owned by the single receive loop.
type StreamTransport struct {
	conn    net.Conn
	writeMu sync.Mutex
	maxSize uint32
}

// NewStreamTransport wraps a connection with the default inbound packet size
// guard.
func NewStreamTransport(conn net.Conn) *StreamTransport {
	return &StreamTransport{conn: conn, maxSize: MaxPacketSize}
}

// Send writes one packet to the connection.
func (t *StreamTransport) Send(pkt Packet) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := WritePacket(t.conn, pkt); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTransportSend, pkt.Type(), err)
	}
	return nil
}

// Receive reads the next packet from the connection.
func (t *StreamTransport) Receive() (Packet, error) {
	return ReadPacket(t.conn, t.maxSize)
}

// Close closes the connection.
func (t *StreamTransport) Close() error {
	return t.conn.Close()
}

// RemoteAddr returns the peer address.
func (t *StreamTransport) RemoteAddr() net.Addr {
	return t.conn.RemoteAddr()
}

// Dialer establishes connections for the engine.
type Dialer interface {
	// Dial connects to the address with the given context.
	Dial(ctx context.Context, address string) (net.Conn, error)
}

// TCPDialer connects to brokers over plain TCP.
type TCPDialer struct {
	// Timeout bounds connection establishment. Zero means no timeout.
	Timeout time.Duration
}

// Dial connects to the address.
func (d *TCPDialer) Dial(ctx context.Context, address string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: d.Timeout}
	return dialer.DialContext(ctx, "tcp", address)
}

// TLSDialer connects to brokers over TLS.
type TLSDialer struct {
	// Config is the TLS configuration. Nil means library defaults with
	// TLS 1.2 as the floor.
	Config *tls.Config

	// Timeout bounds connection establishment. Zero means no timeout.
	Timeout time.Duration
}

// Dial connects to the address and completes the TLS handshake.
func (d *TLSDialer) Dial(ctx context.Context, address string) (net.Conn, error) {
	config := d.Config
	if config == nil {
		config = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: d.Timeout},
		Config:    config,
	}
	return dialer.DialContext(ctx, "tcp", address)
}
