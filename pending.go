package mqtt

// actionKind tags a deferred transport action. Deferred work is a tagged
// packet value rather than an opaque closure so the queue stays inspectable.
type actionKind int

const (
	actionConnect actionKind = iota
	actionSubscribe
	actionUnsubscribe
	actionPublish
	actionDisconnect
)

// String returns the action name, for logging.
func (k actionKind) String() string {
	switch k {
	case actionConnect:
		return "connect"
	case actionSubscribe:
		return "subscribe"
	case actionUnsubscribe:
		return "unsubscribe"
	case actionPublish:
		return "publish"
	case actionDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// sendAction is one unit of transport-bound work: a packet to send once a
// transport exists.
type sendAction struct {
	kind   actionKind
	packet Packet
}

// actionQueue buffers actions issued before a transport is attached. Actions
// are consumed strictly in FIFO submission order, exactly once. The owning
// client synchronizes access.
type actionQueue struct {
	actions []sendAction
}

// push appends an action to the tail.
func (q *actionQueue) push(a sendAction) {
	q.actions = append(q.actions, a)
}

// drain removes and returns every queued action in submission order. The
// queue makes no attempt to deduplicate or reorder; callers own the
// correctness of replaying their action after arbitrary delay.
func (q *actionQueue) drain() []sendAction {
	actions := q.actions
	q.actions = nil
	return actions
}

// clear discards all queued actions.
func (q *actionQueue) clear() {
	q.actions = nil
}

// len reports the number of buffered actions.
func (q *actionQueue) len() int {
	return len(q.actions)
}
