package mqtt

import (
	"fmt"
	"sync"
)

// Client is the MQTT 3.1.1 client protocol engine. It owns all
// per-connection state: topic handler registries, correlation of acks with
// the calls that triggered them, the pending action queue, and keep-alive.
//
// A Client starts detached. Every operation is valid before a transport is
// attached; transport-bound work is buffered and replayed, in submission
// order, when SetStream installs one. Disconnect resets the engine to its
// empty state and the handle stays reusable for a later SetStream.
//
// One mutex guards all mutable state. Public operations are short
// synchronous critical sections; user callbacks (topic handlers, connect and
// ack completions) are always invoked after the lock is released, so a
// handler may re-enter the client.
type Client struct {
	opts clientOptions

	mu        sync.Mutex
	transport Transport
	keepAlive uint16
	connectFn CompletionFunc
	closeFn   CompletionFunc

	acks     *ackTable
	registry *topicRegistry
	queue    actionQueue
	attrs    map[string][]byte

	// recvGen invalidates receive loops from earlier attachments.
	recvGen uint64

	pinger *keepAlivePinger
}

// NewClient creates a detached client.
func NewClient(opts ...Option) *Client {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &Client{
		opts:     options,
		acks:     newAckTable(),
		registry: newTopicRegistry(),
		attrs:    make(map[string][]byte),
		pinger:   newKeepAlivePinger(options.timers),
	}
}

// Connect stores the keep-alive interval and the connect/close callbacks,
// then sends (or defers) the CONNECT handshake. The connect callback is
// resolved exactly once, on CONNACK receipt, with nil on acceptance or a
// *ConnackError on refusal. It always succeeds locally; a send failure on an
// already-attached transport is returned.
func (c *Client) Connect(keepAlive uint16, will *LastWill, closeFn, connectFn CompletionFunc) error {
	pkt := &ConnectPacket{
		ClientID:     c.opts.clientID,
		KeepAlive:    keepAlive,
		CleanSession: c.opts.cleanSession,
		Will:         will,
		Username:     c.opts.username,
		Password:     c.opts.password,
	}

	c.mu.Lock()
	c.keepAlive = keepAlive
	c.closeFn = closeFn
	c.connectFn = connectFn
	attached := c.transport != nil
	err := c.submitLocked(sendAction{kind: actionConnect, packet: pkt})
	c.mu.Unlock()

	// Connect after attach still gets a ping chain; the usual arming point
	// (SetStream) has already passed.
	if attached {
		c.armKeepAlive(keepAlive)
	}

	return err
}

// Subscribe requests subscriptions for topics that already have a handler
// registered via SetTopicHandler. The requested QoS is downgraded to
// at-most-once on the wire. The optional done callback resolves when the
// matching SUBACK arrives. If any topic lacks a handler the call fails with
// ErrUnknownTopic and nothing is sent.
func (c *Client) Subscribe(topics []Subscription, done CompletionFunc) error {
	if len(topics) == 0 {
		return ErrNoSubscriptions
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	subs := make([]Subscription, 0, len(topics))
	for _, sub := range topics {
		if err := c.checkRegisteredLocked(sub.TopicFilter); err != nil {
			return err
		}
		subs = append(subs, Subscription{TopicFilter: sub.TopicFilter, QoS: QoS0})
	}

	id, key := c.acks.reserveSubscribe()
	c.acks.store(key, done)

	return c.submitLocked(sendAction{
		kind:   actionSubscribe,
		packet: &SubscribePacket{PacketID: id, Subscriptions: subs},
	})
}

// Unsubscribe removes subscriptions, with the same handler-must-exist
// precondition as Subscribe. The optional done callback resolves when the
// matching UNSUBACK arrives.
func (c *Client) Unsubscribe(topics []string, done CompletionFunc) error {
	if len(topics) == 0 {
		return ErrNoSubscriptions
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, name := range topics {
		if err := c.checkRegisteredLocked(name); err != nil {
			return err
		}
	}

	id, key := c.acks.reserveUnsubscribe()
	c.acks.store(key, done)

	return c.submitLocked(sendAction{
		kind:   actionUnsubscribe,
		packet: &UnsubscribePacket{PacketID: id, TopicFilters: topics},
	})
}

// checkRegisteredLocked validates name as a filter and requires a registered
// handler for it.
func (c *Client) checkRegisteredLocked(name string) error {
	if err := ValidateTopicFilter(name); err != nil {
		return err
	}
	if !c.registry.contains(name) {
		return fmt.Errorf("%w: %s", ErrUnknownTopic, name)
	}
	return nil
}

// Publish sends an application message. Wildcards are invalid in a publish
// topic. The requested QoS is downgraded to at-most-once on the wire
// regardless of qos.
func (c *Client) Publish(topic string, payload []byte, qos byte, retain bool) error {
	if err := ValidateTopicFilter(topic); err != nil {
		return err
	}
	if ContainsWildcard(topic) {
		return fmt.Errorf("%w: %s", ErrInvalidPublishTopic, topic)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.submitLocked(sendAction{
		kind: actionPublish,
		packet: &PublishPacket{
			Topic:   topic,
			Payload: payload,
			QoS:     QoS0,
			Retain:  retain,
		},
	})
}

// SetTopicHandler registers a handler for a topic filter. Filters with
// wildcards participate in pattern matching; all others match verbatim.
// Registering an already-registered name replaces its handler.
func (c *Client) SetTopicHandler(name string, handler TopicHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.register(name, handler)
}

// RemoveTopicHandler removes a handler. Removing an unregistered name is a
// no-op, but a malformed one still fails with ErrInvalidTopic.
func (c *Client) RemoveTopicHandler(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.unregister(name)
}

// AddAttribute stores an attribute payload under name. Insert is a no-op if
// the name already exists: first write wins.
func (c *Client) AddAttribute(name string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.attrs[name]; !ok {
		c.attrs[name] = value
	}
}

// RemoveAttribute deletes an attribute.
func (c *Client) RemoveAttribute(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.attrs, name)
}

// GetAttribute returns the attribute payload stored under name. The payload
// is shared by reference, never copied; callers must treat it as immutable.
func (c *Client) GetAttribute(name string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.attrs[name]
	return value, ok
}

// Disconnect sends DISCONNECT if a transport is attached, then synchronously
// resets the engine: registries, counters, callbacks, attributes and the
// pending queue are cleared, the transport is detached and the keep-alive
// chain is cancelled. The transport itself is not closed; its lifetime
// belongs to the layer that attached it. Disconnecting a detached client is
// an idempotent no-op.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	var err error
	if c.transport != nil {
		err = c.submitLocked(sendAction{kind: actionDisconnect, packet: &DisconnectPacket{}})
	}

	c.connectFn = nil
	c.closeFn = nil
	c.keepAlive = 0
	c.transport = nil
	c.recvGen++
	c.acks.clear()
	c.registry.clear()
	c.queue.clear()
	clear(c.attrs)
	c.mu.Unlock()

	c.pinger.cancel()
	c.opts.logger.Info("client disconnected", nil)

	return err
}

// SetStream attaches a transport. Actions buffered while detached are
// replayed first, in submission order; then the transport is installed, the
// keep-alive chain is armed and the receive loop starts. Invoked by the
// transport layer once a socket/stream pair is ready.
func (c *Client) SetStream(t Transport) {
	c.mu.Lock()
	buffered := c.queue.drain()
	for _, a := range buffered {
		if err := t.Send(a.packet); err != nil {
			c.opts.logger.Warn("replay of buffered action failed", LogFields{
				"action": a.kind.String(),
				"error":  err,
			})
		}
	}
	c.transport = t
	keepAlive := c.keepAlive
	c.recvGen++
	gen := c.recvGen
	c.mu.Unlock()

	c.opts.logger.Debug("transport attached", LogFields{"replayed": len(buffered)})

	c.armKeepAlive(keepAlive)
	go c.receiveLoop(t, gen)
}

// armKeepAlive starts the ping chain, replacing any previous one. Pings
// bypass the pending queue: the chain only exists while a transport does.
func (c *Client) armKeepAlive(keepAlive uint16) {
	c.pinger.arm(keepAlive, func() {
		c.mu.Lock()
		t := c.transport
		c.mu.Unlock()
		if t == nil {
			return
		}
		if err := t.Send(&PingreqPacket{}); err != nil {
			c.opts.logger.Warn("keep-alive ping failed", LogFields{"error": err})
			return
		}
		c.opts.logger.Debug("keep-alive ping sent", nil)
	})
}

// submitLocked sends the action immediately when a transport is attached,
// otherwise buffers it. Called with c.mu held.
func (c *Client) submitLocked(a sendAction) error {
	if c.transport == nil {
		c.queue.push(a)
		c.opts.logger.Debug("action buffered", LogFields{"action": a.kind.String()})
		return nil
	}
	return c.transport.Send(a.packet)
}

// receiveLoop dispatches inbound packets one at a time, in receive order,
// until a receive error, a protocol violation, or a disconnect/reattach
// invalidates this generation.
func (c *Client) receiveLoop(t Transport, gen uint64) {
	for {
		pkt, err := t.Receive()

		c.mu.Lock()
		if gen != c.recvGen {
			// Disconnected or reattached while blocked; this loop no
			// longer speaks for the client.
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		if err != nil {
			c.failConnection(fmt.Errorf("%w: %w", ErrConnectionClosed, err))
			return
		}

		if !c.dispatch(pkt) {
			return
		}
	}
}

// dispatch routes one decoded packet to the matching state handler. It
// returns false when the receive cycle must stop.
func (c *Client) dispatch(pkt Packet) bool {
	switch p := pkt.(type) {
	case *ConnackPacket:
		c.handleConnack(p)
	case *SubackPacket:
		c.resolveAck(subscribeKey(p.PacketID))
	case *UnsubackPacket:
		c.resolveAck(unsubscribeKey(p.PacketID))
	case *PublishPacket:
		c.handlePublish(p)
	case *PingrespPacket:
		// Liveness confirmed; nothing to update.
	default:
		c.opts.logger.Error("unexpected inbound packet", LogFields{"type": pkt.Type().String()})
		c.failConnection(fmt.Errorf("%w: unexpected %s", ErrProtocolViolation, pkt.Type()))
		return false
	}
	return true
}

// handleConnack resolves and clears the pending connect callback, whatever
// the result. It is never re-armed for a later CONNACK.
func (c *Client) handleConnack(p *ConnackPacket) {
	result := newConnackError(p.ReturnCode)

	c.mu.Lock()
	fn := c.connectFn
	c.connectFn = nil
	c.mu.Unlock()

	c.opts.logger.Debug("connack received", LogFields{"code": p.ReturnCode.String()})
	if fn != nil {
		fn(result)
	}
}

// resolveAck completes the pending request stored under key. Unknown keys
// are duplicate or stale acks and are dropped silently.
func (c *Client) resolveAck(key uint32) {
	c.mu.Lock()
	fn, ok := c.acks.resolve(key)
	c.mu.Unlock()

	if !ok {
		c.opts.logger.Debug("ack without pending request dropped", LogFields{"key": key})
		return
	}
	if fn != nil {
		fn(nil)
	}
}

// handlePublish fans an inbound message out to the exact handler and every
// matching pattern handler. Handlers and the transport are copied out under
// the lock, then invoked without it.
func (c *Client) handlePublish(p *PublishPacket) {
	if ValidateTopicFilter(p.Topic) != nil {
		// Unparseable topic names are dropped, matching the engine's
		// tolerance for stale acks.
		return
	}

	c.mu.Lock()
	handlers := c.registry.match(p.Topic)
	t := c.transport
	c.mu.Unlock()

	c.opts.logger.Debug("publish dispatched", LogFields{
		"topic":    p.Topic,
		"handlers": len(handlers),
	})
	for _, handler := range handlers {
		handler(t, p.Payload, nil)
	}
}

// failConnection consumes the close callback and stops the keep-alive chain.
// The rest of the client state is left as-is; the application decides
// whether to Disconnect or attach a fresh stream.
func (c *Client) failConnection(cause error) {
	c.mu.Lock()
	fn := c.closeFn
	c.closeFn = nil
	c.mu.Unlock()

	c.pinger.cancel()
	c.opts.logger.Info("connection failed", LogFields{"error": cause})
	if fn != nil {
		fn(cause)
	}
}
