package mqtt

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamTransportRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	ct := NewStreamTransport(client)
	st := NewStreamTransport(server)

	done := make(chan error, 1)
	go func() {
		done <- ct.Send(&PublishPacket{Topic: "a/b", Payload: []byte("hi")})
	}()

	pkt, err := st.Receive()
	require.NoError(t, err)
	require.NoError(t, <-done)

	pub, ok := pkt.(*PublishPacket)
	require.True(t, ok)
	assert.Equal(t, "a/b", pub.Topic)
	assert.Equal(t, []byte("hi"), pub.Payload)
}

func TestStreamTransportSendFailure(t *testing.T) {
	client, server := net.Pipe()
	server.Close()
	client.Close()

	transport := NewStreamTransport(client)
	err := transport.Send(&PingreqPacket{})
	assert.ErrorIs(t, err, ErrTransportSend)
}

func TestStreamTransportReceiveAfterClose(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	transport := NewStreamTransport(client)
	require.NoError(t, transport.Close())

	_, err := transport.Receive()
	assert.Error(t, err)
}

func TestStreamTransportConcurrentSends(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	transport := NewStreamTransport(client)
	peer := NewStreamTransport(server)

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			assert.NoError(t, transport.Send(&PublishPacket{Topic: "t", Payload: []byte("x")}))
		}()
	}

	// The write mutex must keep frames intact under concurrent senders.
	for i := 0; i < n; i++ {
		pkt, err := peer.Receive()
		require.NoError(t, err)
		require.IsType(t, &PublishPacket{}, pkt)
	}
	wg.Wait()
}

func TestTCPDialer(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := listener.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	d := &TCPDialer{Timeout: time.Second}
	conn, err := d.Dial(context.Background(), listener.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	server := <-accepted
	defer server.Close()

	// Exchange one packet end to end.
	go func() {
		_ = NewStreamTransport(conn).Send(&PingreqPacket{})
	}()
	pkt, err := NewStreamTransport(server).Receive()
	require.NoError(t, err)
	assert.Equal(t, PacketPINGREQ, pkt.Type())
}

func TestWSTransportRoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{Subprotocols: []string{WebSocketSubprotocol}}
	received := make(chan Packet, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		transport := NewStreamTransport(NewWSConn(ws))
		pkt, err := transport.Receive()
		if err != nil {
			return
		}
		received <- pkt
		_ = transport.Send(&ConnackPacket{ReturnCode: ConnectionAccepted})
	}))
	defer srv.Close()

	addr := "ws" + strings.TrimPrefix(srv.URL, "http")
	d := NewWSDialer()
	conn, err := d.Dial(context.Background(), addr)
	require.NoError(t, err)
	defer conn.Close()

	transport := NewStreamTransport(conn)
	require.NoError(t, transport.Send(&ConnectPacket{ClientID: "ws-test"}))

	select {
	case pkt := <-received:
		connect, ok := pkt.(*ConnectPacket)
		require.True(t, ok)
		assert.Equal(t, "ws-test", connect.ClientID)
	case <-time.After(time.Second):
		t.Fatal("server did not receive CONNECT")
	}

	pkt, err := transport.Receive()
	require.NoError(t, err)
	assert.Equal(t, PacketCONNACK, pkt.Type())
}

func TestWSConnRejectsTextMessages(t *testing.T) {
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		_ = ws.WriteMessage(websocket.TextMessage, []byte("not mqtt"))
		time.Sleep(100 * time.Millisecond)
	}))
	defer srv.Close()

	addr := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, err := NewWSDialer().Dial(context.Background(), addr)
	require.NoError(t, err)
	defer conn.Close()

	buf := make([]byte, 16)
	_, err = conn.Read(buf)
	assert.ErrorIs(t, err, ErrProtocolViolation)
}

func TestSOCKS5DialerRejectsBadURL(t *testing.T) {
	d := &SOCKS5Dialer{ProxyURL: "http://proxy:8080"}
	_, err := d.Dial(context.Background(), "broker:1883")
	assert.Error(t, err)

	d = &SOCKS5Dialer{ProxyURL: "://bad"}
	_, err = d.Dial(context.Background(), "broker:1883")
	assert.Error(t, err)
}
