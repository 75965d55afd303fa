package mqtt

// TopicHandler receives the payload of an inbound publish, together with the
// transport the message arrived on so the handler can answer in place. The
// error is reserved for delivery failures surfaced to handlers.
type TopicHandler func(t Transport, payload []byte, err error)

// topicBinding is one registered handler with its parsed filter.
type topicBinding struct {
	filter   string
	wildcard bool
	handler  TopicHandler
}

// topicRegistry stores per-topic handlers, split into an exact-match map and
// a wildcard-pattern map. It holds no I/O state; the owning client
// synchronizes access.
type topicRegistry struct {
	exact    map[string]*topicBinding
	patterns map[string]*topicBinding
}

func newTopicRegistry() *topicRegistry {
	return &topicRegistry{
		exact:    make(map[string]*topicBinding),
		patterns: make(map[string]*topicBinding),
	}
}

// register stores a handler under name, replacing any previous binding.
// A malformed filter fails with ErrInvalidTopic.
func (r *topicRegistry) register(name string, handler TopicHandler) error {
	if err := ValidateTopicFilter(name); err != nil {
		return err
	}

	b := &topicBinding{
		filter:   name,
		wildcard: ContainsWildcard(name),
		handler:  handler,
	}
	if b.wildcard {
		r.patterns[name] = b
	} else {
		r.exact[name] = b
	}
	return nil
}

// unregister removes name from whichever map holds it. Removing an absent
// name is a no-op, but a malformed one still fails.
func (r *topicRegistry) unregister(name string) error {
	if err := ValidateTopicFilter(name); err != nil {
		return err
	}
	if ContainsWildcard(name) {
		delete(r.patterns, name)
	} else {
		delete(r.exact, name)
	}
	return nil
}

// contains reports whether name has a registered handler. Subscribe and
// unsubscribe require this before anything goes on the wire.
func (r *topicRegistry) contains(name string) bool {
	if ContainsWildcard(name) {
		_, ok := r.patterns[name]
		return ok
	}
	_, ok := r.exact[name]
	return ok
}

// match collects every handler a publish to topic must reach: the verbatim
// exact-map entry plus all matching patterns. Order across pattern matches
// is map iteration order, deliberately unspecified.
func (r *topicRegistry) match(topic string) []TopicHandler {
	var handlers []TopicHandler
	if b, ok := r.exact[topic]; ok {
		handlers = append(handlers, b.handler)
	}
	for _, b := range r.patterns {
		if MatchTopic(b.filter, topic) {
			handlers = append(handlers, b.handler)
		}
	}
	return handlers
}

// clear drops every binding.
func (r *topicRegistry) clear() {
	clear(r.exact)
	clear(r.patterns)
}
