package mqtt

import "math"

// CompletionFunc is the callback resolved when a pending request completes.
// A nil error means success; connection results carry a *ConnackError.
type CompletionFunc func(err error)

// ackTable correlates in-flight subscribe/unsubscribe requests with the
// SUBACK/UNSUBACK that completes them. The wire packet identifier is the raw
// counter value; locally the completion is stored under a derived key with
// subscribe keys odd (2*id+1) and unsubscribe keys even (2*id), so both
// directions share one table without colliding.
//
// The two counters feed the same wire identifier space, so a subscribe and
// an unsubscribe in flight at the same time can carry equal wire identifiers.
// SUBACK and UNSUBACK are distinct packet types, so correlation stays
// unambiguous.
type ackTable struct {
	nextSubscribeID   uint16
	nextUnsubscribeID uint16
	pending           map[uint32]CompletionFunc
}

func newAckTable() *ackTable {
	return &ackTable{pending: make(map[uint32]CompletionFunc)}
}

// subscribeKey derives the local correlation key for a subscribe id.
func subscribeKey(id uint16) uint32 { return 2*uint32(id) + 1 }

// unsubscribeKey derives the local correlation key for an unsubscribe id.
func unsubscribeKey(id uint16) uint32 { return 2 * uint32(id) }

// reserveSubscribe allocates the next subscribe identifier, wrapping after
// 65535, and returns the wire identifier plus the local correlation key.
func (t *ackTable) reserveSubscribe() (wireID uint16, key uint32) {
	wireID = t.nextSubscribeID
	if t.nextSubscribeID < math.MaxUint16 {
		t.nextSubscribeID++
	} else {
		t.nextSubscribeID = 0
	}
	return wireID, subscribeKey(wireID)
}

// reserveUnsubscribe is the unsubscribe counterpart of reserveSubscribe.
func (t *ackTable) reserveUnsubscribe() (wireID uint16, key uint32) {
	wireID = t.nextUnsubscribeID
	if t.nextUnsubscribeID < math.MaxUint16 {
		t.nextUnsubscribeID++
	} else {
		t.nextUnsubscribeID = 0
	}
	return wireID, unsubscribeKey(wireID)
}

// store records the completion for a reserved key. The callback may be nil
// for fire-and-forget requests; the key is still tracked so the ack is
// consumed. A reused key overwrites silently.
func (t *ackTable) store(key uint32, fn CompletionFunc) {
	t.pending[key] = fn
}

// resolve removes and returns the completion stored under key. ok is false
// for unknown keys: a duplicate ack, or an ack for a request from a session
// that has since been reset. Those are dropped by the caller, not errors.
func (t *ackTable) resolve(key uint32) (fn CompletionFunc, ok bool) {
	fn, ok = t.pending[key]
	if ok {
		delete(t.pending, key)
	}
	return fn, ok
}

// clear resets both counters and abandons every pending completion.
func (t *ackTable) clear() {
	t.nextSubscribeID = 0
	t.nextUnsubscribeID = 0
	clear(t.pending)
}
