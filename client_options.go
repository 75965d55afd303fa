package mqtt

import (
	"fmt"
	"time"
)

// clientOptions holds configuration for a Client.
type clientOptions struct {
	clientID     string
	cleanSession bool
	username     string
	password     []byte

	logger Logger
	timers TimerService
}

// defaultOptions returns options with sensible defaults.
func defaultOptions() clientOptions {
	return clientOptions{
		clientID:     generateClientID(),
		cleanSession: true,
		logger:       NewNoOpLogger(),
		timers:       NewWheelTimers(),
	}
}

// Option configures a Client.
type Option func(*clientOptions)

// WithClientID sets the client identifier sent in CONNECT.
func WithClientID(id string) Option {
	return func(o *clientOptions) {
		o.clientID = id
	}
}

// WithCleanSession sets the CONNECT clean session flag. Default is true.
func WithCleanSession(clean bool) Option {
	return func(o *clientOptions) {
		o.cleanSession = clean
	}
}

// WithCredentials sets the username and password sent in CONNECT.
func WithCredentials(username, password string) Option {
	return func(o *clientOptions) {
		o.username = username
		o.password = []byte(password)
	}
}

// WithLogger sets the logger the engine reports through. Default discards
// everything.
func WithLogger(logger Logger) Option {
	return func(o *clientOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTimers sets the timer service backing keep-alive. Default is a
// client-private WheelTimers.
func WithTimers(timers TimerService) Option {
	return func(o *clientOptions) {
		if timers != nil {
			o.timers = timers
		}
	}
}

// generateClientID generates a random client identifier.
func generateClientID() string {
	return fmt.Sprintf("pi-net-%d", time.Now().UnixNano())
}
