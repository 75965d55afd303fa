package mqtt

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeTransport is an in-memory Transport. Sent packets are recorded;
// inbound packets are injected with deliver. Closing unblocks Receive with
// io.EOF.
type fakeTransport struct {
	mu      sync.Mutex
	sent    []Packet
	sendErr error
	closed  bool

	inbound chan Packet
}

func newFakeTransport(t *testing.T) *fakeTransport {
	t.Helper()
	ft := &fakeTransport{inbound: make(chan Packet, 16)}
	t.Cleanup(func() { _ = ft.Close() })
	return ft
}

func (f *fakeTransport) Send(pkt Packet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, pkt)
	return nil
}

func (f *fakeTransport) Receive() (Packet, error) {
	pkt, ok := <-f.inbound
	if !ok {
		return nil, io.EOF
	}
	return pkt, nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.inbound)
	}
	return nil
}

func (f *fakeTransport) deliver(pkt Packet) {
	f.inbound <- pkt
}

func (f *fakeTransport) sentPackets() []Packet {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Packet(nil), f.sent...)
}

func discard(Transport, []byte, error) {}

func TestClientBuffersWhileDetached(t *testing.T) {
	c := NewClient(WithClientID("test"))

	require.NoError(t, c.Connect(0, nil, nil, nil))
	require.NoError(t, c.SetTopicHandler("a/b", discard))
	require.NoError(t, c.Subscribe([]Subscription{{TopicFilter: "a/b"}}, nil))
	require.NoError(t, c.Publish("a/b", []byte("x"), QoS0, false))
	require.NoError(t, c.Publish("a/c", []byte("y"), QoS0, false))

	ft := newFakeTransport(t)
	c.SetStream(ft)

	// Buffered actions replay first, in submission order.
	sent := ft.sentPackets()
	require.Len(t, sent, 4)
	assert.Equal(t, PacketCONNECT, sent[0].Type())
	assert.Equal(t, PacketSUBSCRIBE, sent[1].Type())
	assert.Equal(t, "a/b", sent[2].(*PublishPacket).Topic)
	assert.Equal(t, "a/c", sent[3].(*PublishPacket).Topic)
}

func TestClientSendsDirectlyWhenAttached(t *testing.T) {
	c := NewClient()
	ft := newFakeTransport(t)
	c.SetStream(ft)

	require.NoError(t, c.Publish("a", []byte("x"), QoS0, false))

	sent := ft.sentPackets()
	require.Len(t, sent, 1)
	assert.Equal(t, PacketPUBLISH, sent[0].Type())
}

func TestClientConnectAccepted(t *testing.T) {
	c := NewClient(WithClientID("test"))
	ft := newFakeTransport(t)

	result := make(chan error, 1)
	require.NoError(t, c.Connect(0, nil, nil, func(err error) { result <- err }))
	c.SetStream(ft)

	ft.deliver(&ConnackPacket{ReturnCode: ConnectionAccepted})

	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("connect callback not invoked")
	}
}

func TestClientConnectRefused(t *testing.T) {
	c := NewClient()
	ft := newFakeTransport(t)

	result := make(chan error, 1)
	require.NoError(t, c.Connect(0, nil, nil, func(err error) { result <- err }))
	c.SetStream(ft)

	ft.deliver(&ConnackPacket{ReturnCode: ConnectionRefusedBadCredentials})

	select {
	case err := <-result:
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrBadCredentials)

		var connack *ConnackError
		require.ErrorAs(t, err, &connack)
		assert.Equal(t, ConnectionRefusedBadCredentials, connack.Code)
	case <-time.After(time.Second):
		t.Fatal("connect callback not invoked")
	}
}

func TestClientConnectCarriesOptionsAndWill(t *testing.T) {
	c := NewClient(
		WithClientID("opts"),
		WithCleanSession(false),
		WithCredentials("user", "pass"),
	)
	ft := newFakeTransport(t)
	c.SetStream(ft)

	will := &LastWill{Topic: "status/gone", Message: []byte("bye")}
	require.NoError(t, c.Connect(30, will, nil, nil))

	sent := ft.sentPackets()
	require.Len(t, sent, 1)
	connect := sent[0].(*ConnectPacket)
	assert.Equal(t, "opts", connect.ClientID)
	assert.False(t, connect.CleanSession)
	assert.Equal(t, "user", connect.Username)
	assert.Equal(t, []byte("pass"), connect.Password)
	assert.Equal(t, uint16(30), connect.KeepAlive)
	assert.Equal(t, will, connect.Will)

	require.NoError(t, c.Disconnect())
}

func TestClientSubscribeRequiresHandler(t *testing.T) {
	c := NewClient()

	err := c.Subscribe([]Subscription{{TopicFilter: "no/handler"}}, nil)
	assert.ErrorIs(t, err, ErrUnknownTopic)

	// One bad topic fails the whole batch before anything is queued.
	require.NoError(t, c.SetTopicHandler("a", discard))
	err = c.Subscribe([]Subscription{{TopicFilter: "a"}, {TopicFilter: "b"}}, nil)
	assert.ErrorIs(t, err, ErrUnknownTopic)
	assert.Equal(t, 0, c.queue.len())

	assert.ErrorIs(t, c.Subscribe(nil, nil), ErrNoSubscriptions)
	assert.ErrorIs(t, c.Subscribe([]Subscription{{TopicFilter: "bad#"}}, nil), ErrInvalidTopic)
}

func TestClientUnsubscribeRequiresHandler(t *testing.T) {
	c := NewClient()

	assert.ErrorIs(t, c.Unsubscribe([]string{"no/handler"}, nil), ErrUnknownTopic)
	assert.ErrorIs(t, c.Unsubscribe(nil, nil), ErrNoSubscriptions)
}

func TestClientSubscribeDowngradesQoS(t *testing.T) {
	c := NewClient()
	ft := newFakeTransport(t)
	c.SetStream(ft)

	require.NoError(t, c.SetTopicHandler("a", discard))
	require.NoError(t, c.Subscribe([]Subscription{{TopicFilter: "a", QoS: QoS2}}, nil))

	sent := ft.sentPackets()
	require.Len(t, sent, 1)
	sub := sent[0].(*SubscribePacket)
	require.Len(t, sub.Subscriptions, 1)
	assert.Equal(t, QoS0, sub.Subscriptions[0].QoS)
}

func TestClientPublishDowngradesQoS(t *testing.T) {
	c := NewClient()
	ft := newFakeTransport(t)
	c.SetStream(ft)

	require.NoError(t, c.Publish("a", []byte("x"), QoS2, true))

	sent := ft.sentPackets()
	require.Len(t, sent, 1)
	pub := sent[0].(*PublishPacket)
	assert.Equal(t, QoS0, pub.QoS)
	assert.True(t, pub.Retain)
}

func TestClientPublishValidation(t *testing.T) {
	c := NewClient()

	assert.ErrorIs(t, c.Publish("a/+/b", nil, QoS0, false), ErrInvalidPublishTopic)
	assert.ErrorIs(t, c.Publish("a/#", nil, QoS0, false), ErrInvalidPublishTopic)
	assert.ErrorIs(t, c.Publish("", nil, QoS0, false), ErrInvalidTopic)
	assert.ErrorIs(t, c.Publish("bad\x00topic", nil, QoS0, false), ErrInvalidTopic)
	assert.Equal(t, 0, c.queue.len())
}

func TestClientDistinctPacketIDs(t *testing.T) {
	c := NewClient()
	ft := newFakeTransport(t)
	c.SetStream(ft)

	require.NoError(t, c.SetTopicHandler("a", discard))
	require.NoError(t, c.Subscribe([]Subscription{{TopicFilter: "a"}}, nil))
	require.NoError(t, c.Subscribe([]Subscription{{TopicFilter: "a"}}, nil))
	require.NoError(t, c.Unsubscribe([]string{"a"}, nil))

	sent := ft.sentPackets()
	require.Len(t, sent, 3)
	assert.Equal(t, uint16(0), sent[0].(*SubscribePacket).PacketID)
	assert.Equal(t, uint16(1), sent[1].(*SubscribePacket).PacketID)

	// Unsubscribe runs its own counter.
	assert.Equal(t, uint16(0), sent[2].(*UnsubscribePacket).PacketID)
}

func TestClientSubackResolvesCompletion(t *testing.T) {
	c := NewClient()
	ft := newFakeTransport(t)
	c.SetStream(ft)

	require.NoError(t, c.SetTopicHandler("a", discard))

	done := make(chan error, 1)
	require.NoError(t, c.Subscribe([]Subscription{{TopicFilter: "a"}}, func(err error) { done <- err }))

	id := ft.sentPackets()[0].(*SubscribePacket).PacketID
	ft.deliver(&SubackPacket{PacketID: id, ReturnCodes: []byte{SubackGrantedQoS0}})

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("subscribe completion not invoked")
	}
}

func TestClientUnsubackResolvesCompletion(t *testing.T) {
	c := NewClient()
	ft := newFakeTransport(t)
	c.SetStream(ft)

	require.NoError(t, c.SetTopicHandler("a", discard))

	done := make(chan error, 1)
	require.NoError(t, c.Unsubscribe([]string{"a"}, func(err error) { done <- err }))

	id := ft.sentPackets()[0].(*UnsubscribePacket).PacketID
	ft.deliver(&UnsubackPacket{PacketID: id})

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("unsubscribe completion not invoked")
	}
}

func TestClientAckParityKeepsRequestsApart(t *testing.T) {
	// A subscribe and an unsubscribe in flight with the same wire
	// identifier resolve independently.
	c := NewClient()
	ft := newFakeTransport(t)
	c.SetStream(ft)

	require.NoError(t, c.SetTopicHandler("a", discard))

	subDone := make(chan error, 1)
	unsubDone := make(chan error, 1)
	require.NoError(t, c.Subscribe([]Subscription{{TopicFilter: "a"}}, func(err error) { subDone <- err }))
	require.NoError(t, c.Unsubscribe([]string{"a"}, func(err error) { unsubDone <- err }))

	sent := ft.sentPackets()
	require.Equal(t, sent[0].(*SubscribePacket).PacketID, sent[1].(*UnsubscribePacket).PacketID)

	ft.deliver(&UnsubackPacket{PacketID: 0})
	select {
	case err := <-unsubDone:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("unsubscribe completion not invoked")
	}

	select {
	case <-subDone:
		t.Fatal("unsuback resolved the subscribe")
	case <-time.After(50 * time.Millisecond):
	}

	ft.deliver(&SubackPacket{PacketID: 0, ReturnCodes: []byte{SubackGrantedQoS0}})
	select {
	case err := <-subDone:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("subscribe completion not invoked")
	}
}

func TestClientUnknownAckDropped(t *testing.T) {
	c := NewClient()
	ft := newFakeTransport(t)
	c.SetStream(ft)

	received := make(chan []byte, 1)
	require.NoError(t, c.SetTopicHandler("a", func(_ Transport, payload []byte, _ error) {
		received <- payload
	}))

	// No pending request under this identifier; the ack is ignored and the
	// receive loop keeps running.
	ft.deliver(&SubackPacket{PacketID: 99, ReturnCodes: []byte{SubackGrantedQoS0}})
	ft.deliver(&PublishPacket{Topic: "a", Payload: []byte("still alive")})

	select {
	case payload := <-received:
		assert.Equal(t, []byte("still alive"), payload)
	case <-time.After(time.Second):
		t.Fatal("receive loop stopped after stray ack")
	}
}

func TestClientPublishDispatch(t *testing.T) {
	c := NewClient()
	ft := newFakeTransport(t)
	c.SetStream(ft)

	type delivery struct {
		handler string
		payload []byte
	}
	received := make(chan delivery, 4)
	record := func(name string) TopicHandler {
		return func(_ Transport, payload []byte, _ error) {
			received <- delivery{handler: name, payload: payload}
		}
	}

	require.NoError(t, c.SetTopicHandler("sensors/kitchen/temp", record("exact")))
	require.NoError(t, c.SetTopicHandler("sensors/+/temp", record("pattern")))
	require.NoError(t, c.SetTopicHandler("alerts/#", record("alerts")))

	ft.deliver(&PublishPacket{Topic: "sensors/kitchen/temp", Payload: []byte("21.5")})

	got := map[string][]byte{}
	for i := 0; i < 2; i++ {
		select {
		case d := <-received:
			got[d.handler] = d.payload
		case <-time.After(time.Second):
			t.Fatal("handlers not invoked")
		}
	}
	assert.Equal(t, []byte("21.5"), got["exact"])
	assert.Equal(t, []byte("21.5"), got["pattern"])

	// Only the pattern matches a different room.
	ft.deliver(&PublishPacket{Topic: "sensors/garage/temp", Payload: []byte("4.0")})
	select {
	case d := <-received:
		assert.Equal(t, "pattern", d.handler)
	case <-time.After(time.Second):
		t.Fatal("pattern handler not invoked")
	}

	// No handler matches; the message is dropped and the loop continues.
	ft.deliver(&PublishPacket{Topic: "garage/door", Payload: []byte("open")})
	ft.deliver(&PublishPacket{Topic: "alerts/fire", Payload: []byte("!")})
	select {
	case d := <-received:
		assert.Equal(t, "alerts", d.handler)
	case <-time.After(time.Second):
		t.Fatal("loop stopped after unmatched publish")
	}
}

func TestClientHandlerSeesTransport(t *testing.T) {
	c := NewClient()
	ft := newFakeTransport(t)
	c.SetStream(ft)

	seen := make(chan Transport, 1)
	require.NoError(t, c.SetTopicHandler("req", func(tr Transport, _ []byte, _ error) {
		seen <- tr
	}))

	ft.deliver(&PublishPacket{Topic: "req", Payload: []byte("ping")})

	select {
	case tr := <-seen:
		// The handler can answer on the connection the message came in on.
		assert.Same(t, Transport(ft), tr)
	case <-time.After(time.Second):
		t.Fatal("handler not invoked")
	}
}

func TestClientRemoveTopicHandler(t *testing.T) {
	c := NewClient()
	ft := newFakeTransport(t)
	c.SetStream(ft)

	received := make(chan string, 2)
	require.NoError(t, c.SetTopicHandler("a", func(Transport, []byte, error) { received <- "a" }))
	require.NoError(t, c.SetTopicHandler("b", func(Transport, []byte, error) { received <- "b" }))
	require.NoError(t, c.RemoveTopicHandler("a"))

	ft.deliver(&PublishPacket{Topic: "a", Payload: []byte("x")})
	ft.deliver(&PublishPacket{Topic: "b", Payload: []byte("y")})

	select {
	case name := <-received:
		assert.Equal(t, "b", name)
	case <-time.After(time.Second):
		t.Fatal("handler not invoked")
	}

	assert.ErrorIs(t, c.RemoveTopicHandler("bad#"), ErrInvalidTopic)
}

func TestClientProtocolViolation(t *testing.T) {
	c := NewClient()
	ft := newFakeTransport(t)

	closed := make(chan error, 1)
	require.NoError(t, c.Connect(0, nil, func(err error) { closed <- err }, nil))
	c.SetStream(ft)

	// A broker-bound packet arriving at the client ends the session.
	ft.deliver(&PubackPacket{PacketID: 1})

	select {
	case err := <-closed:
		assert.ErrorIs(t, err, ErrProtocolViolation)
	case <-time.After(time.Second):
		t.Fatal("close callback not invoked")
	}
}

func TestClientConnectionClosed(t *testing.T) {
	c := NewClient()
	ft := newFakeTransport(t)

	closed := make(chan error, 1)
	require.NoError(t, c.Connect(0, nil, func(err error) { closed <- err }, nil))
	c.SetStream(ft)

	require.NoError(t, ft.Close())

	select {
	case err := <-closed:
		assert.ErrorIs(t, err, ErrConnectionClosed)
	case <-time.After(time.Second):
		t.Fatal("close callback not invoked")
	}
}

func TestClientAttributesFirstWriteWins(t *testing.T) {
	c := NewClient()

	c.AddAttribute("region", []byte("eu"))
	c.AddAttribute("region", []byte("us"))

	value, ok := c.GetAttribute("region")
	require.True(t, ok)
	assert.Equal(t, []byte("eu"), value)

	c.RemoveAttribute("region")
	_, ok = c.GetAttribute("region")
	assert.False(t, ok)

	// After removal the name is writable again.
	c.AddAttribute("region", []byte("us"))
	value, _ = c.GetAttribute("region")
	assert.Equal(t, []byte("us"), value)
}

func TestClientDisconnectResets(t *testing.T) {
	c := NewClient()
	ft := newFakeTransport(t)
	c.SetStream(ft)

	require.NoError(t, c.SetTopicHandler("a", discard))
	require.NoError(t, c.Subscribe([]Subscription{{TopicFilter: "a"}}, func(error) {
		t.Error("completion survived disconnect")
	}))
	c.AddAttribute("k", []byte("v"))

	require.NoError(t, c.Disconnect())

	sent := ft.sentPackets()
	assert.Equal(t, PacketDISCONNECT, sent[len(sent)-1].Type())

	// Everything is gone: handlers, attributes, pending completions.
	assert.ErrorIs(t, c.Subscribe([]Subscription{{TopicFilter: "a"}}, nil), ErrUnknownTopic)
	_, ok := c.GetAttribute("k")
	assert.False(t, ok)

	// A stale ack arriving now must not fire the dropped completion. The
	// old receive loop is already invalidated, so resolve directly.
	c.resolveAck(subscribeKey(0))
}

func TestClientReusableAfterDisconnect(t *testing.T) {
	c := NewClient()
	first := newFakeTransport(t)
	c.SetStream(first)

	require.NoError(t, c.SetTopicHandler("a", discard))
	require.NoError(t, c.Subscribe([]Subscription{{TopicFilter: "a"}}, nil))
	require.NoError(t, c.Disconnect())

	// Fresh state buffers again and counters restart from zero.
	require.NoError(t, c.SetTopicHandler("b", discard))
	require.NoError(t, c.Subscribe([]Subscription{{TopicFilter: "b"}}, nil))

	second := newFakeTransport(t)
	c.SetStream(second)

	sent := second.sentPackets()
	require.Len(t, sent, 1)
	sub := sent[0].(*SubscribePacket)
	assert.Equal(t, uint16(0), sub.PacketID)
	assert.Equal(t, "b", sub.Subscriptions[0].TopicFilter)
}

func TestClientDisconnectDetachedIsNoop(t *testing.T) {
	c := NewClient()

	require.NoError(t, c.Connect(0, nil, nil, nil))
	require.NoError(t, c.Disconnect())

	// The buffered CONNECT was discarded with the rest of the queue; an
	// attach after disconnect replays nothing.
	ft := newFakeTransport(t)
	c.SetStream(ft)
	assert.Empty(t, ft.sentPackets())
}

func TestClientSendFailureSurfaces(t *testing.T) {
	c := NewClient()
	ft := newFakeTransport(t)
	ft.sendErr = errors.New("broken pipe")
	c.SetStream(ft)

	err := c.Publish("a", []byte("x"), QoS0, false)
	assert.ErrorIs(t, err, ft.sendErr)
}

func TestClientKeepAlivePings(t *testing.T) {
	timers := newManualTimers()
	c := NewClient(WithTimers(timers))
	ft := newFakeTransport(t)

	require.NoError(t, c.Connect(30, nil, nil, nil))
	c.SetStream(ft)

	require.Equal(t, 1, timers.armedCount())
	require.True(t, timers.fire())

	sent := ft.sentPackets()
	require.Len(t, sent, 2)
	assert.Equal(t, PacketCONNECT, sent[0].Type())
	assert.Equal(t, PacketPINGREQ, sent[1].Type())

	// The chain re-armed itself on the same schedule.
	assert.Equal(t, 1, timers.armedCount())
	assert.Equal(t, 30*time.Second, timers.last)

	// PINGRESP is absorbed without touching the schedule.
	ft.deliver(&PingrespPacket{})

	require.NoError(t, c.Disconnect())
	assert.Equal(t, 0, timers.armedCount())
	assert.False(t, timers.fire())
}

func TestClientKeepAliveZeroDisabled(t *testing.T) {
	timers := newManualTimers()
	c := NewClient(WithTimers(timers))
	ft := newFakeTransport(t)

	require.NoError(t, c.Connect(0, nil, nil, nil))
	c.SetStream(ft)

	assert.Equal(t, 0, timers.armedCount())
}

func TestClientConnectAfterAttachArmsKeepAlive(t *testing.T) {
	timers := newManualTimers()
	c := NewClient(WithTimers(timers))
	ft := newFakeTransport(t)
	c.SetStream(ft)

	require.NoError(t, c.Connect(15, nil, nil, nil))
	assert.Equal(t, 1, timers.armedCount())
	assert.Equal(t, 15*time.Second, timers.last)

	require.NoError(t, c.Disconnect())
}

func TestClientReattachInvalidatesOldLoop(t *testing.T) {
	c := NewClient()
	first := newFakeTransport(t)
	c.SetStream(first)

	received := make(chan string, 2)
	require.NoError(t, c.SetTopicHandler("a", func(_ Transport, payload []byte, _ error) {
		received <- string(payload)
	}))

	second := newFakeTransport(t)
	c.SetStream(second)

	// Packets on the replaced transport are ignored; the new one delivers.
	first.deliver(&PublishPacket{Topic: "a", Payload: []byte("stale")})
	second.deliver(&PublishPacket{Topic: "a", Payload: []byte("fresh")})

	select {
	case got := <-received:
		assert.Equal(t, "fresh", got)
	case <-time.After(time.Second):
		t.Fatal("handler not invoked")
	}
}
