package mqtt

import "errors"

// Sentinel errors returned by client operations - check with errors.Is().
var (
	// ErrInvalidTopic is returned when a topic string does not parse as a
	// valid MQTT topic filter.
	ErrInvalidTopic = errors.New("mqtt: invalid topic")

	// ErrUnknownTopic is returned by Subscribe and Unsubscribe when a topic
	// has no handler registered via SetTopicHandler.
	ErrUnknownTopic = errors.New("mqtt: no handler registered for topic")

	// ErrInvalidPublishTopic is returned by Publish when the topic contains
	// wildcard characters.
	ErrInvalidPublishTopic = errors.New("mqtt: wildcards not allowed in publish topic")

	// ErrTransportSend is returned when the transport layer fails to write
	// a packet.
	ErrTransportSend = errors.New("mqtt: transport send failed")

	// ErrProtocolViolation is returned when a packet arrives that a client
	// must never receive. It terminates the receive loop.
	ErrProtocolViolation = errors.New("mqtt: protocol violation")

	// ErrConnectionClosed is delivered to the close callback when the
	// receive loop ends because the transport was closed.
	ErrConnectionClosed = errors.New("mqtt: connection closed")
)

// Connection refusal errors carried by ConnackError - check with errors.Is().
var (
	// ErrRefusedProtocolVersion means the broker does not support the
	// requested protocol level.
	ErrRefusedProtocolVersion = errors.New("mqtt: connection refused, unacceptable protocol version")

	// ErrRefusedIdentifier means the broker rejected the client identifier.
	ErrRefusedIdentifier = errors.New("mqtt: connection refused, identifier rejected")

	// ErrServerUnavailable means the broker is not accepting connections.
	ErrServerUnavailable = errors.New("mqtt: connection refused, server unavailable")

	// ErrBadCredentials means the username or password is malformed.
	ErrBadCredentials = errors.New("mqtt: connection refused, bad username or password")

	// ErrNotAuthorized means the client is not authorized to connect.
	ErrNotAuthorized = errors.New("mqtt: connection refused, not authorized")
)

// ConnackError is the typed result delivered to the connect callback when the
// broker refuses the connection. The client instance stays alive so the
// caller can retry or inspect state. Extract with errors.As().
type ConnackError struct {
	err  error
	Code ConnectReturnCode
}

func (e *ConnackError) Error() string { return e.err.Error() }
func (e *ConnackError) Unwrap() error { return e.err }

// newConnackError maps a CONNACK return code to a typed error, or nil when
// the connection was accepted.
func newConnackError(code ConnectReturnCode) error {
	var base error
	switch code {
	case ConnectionAccepted:
		return nil
	case ConnectionRefusedProtocolVersion:
		base = ErrRefusedProtocolVersion
	case ConnectionRefusedIdentifierRejected:
		base = ErrRefusedIdentifier
	case ConnectionRefusedServerUnavailable:
		base = ErrServerUnavailable
	case ConnectionRefusedBadCredentials:
		base = ErrBadCredentials
	case ConnectionRefusedNotAuthorized:
		base = ErrNotAuthorized
	default:
		base = ErrProtocolViolation
	}
	return &ConnackError{err: base, Code: code}
}
