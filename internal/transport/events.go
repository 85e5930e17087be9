package transport

import "time"

// CloseReason classifies why a transport connection ended.
type CloseReason int

const (
	// CloseReasonUnknown covers closes the transport could not classify.
	// Treated as recoverable.
	CloseReasonUnknown CloseReason = iota
	// CloseReasonConnectionLost is a network-level drop.
	CloseReasonConnectionLost
	// CloseReasonRestartRequired means the transport asked to be rebuilt.
	CloseReasonRestartRequired
	// CloseReasonLoggedOut means the credentials were permanently
	// invalidated. Never retried.
	CloseReasonLoggedOut
)

// String returns the reason name for logging.
func (r CloseReason) String() string {
	switch r {
	case CloseReasonConnectionLost:
		return "connection_lost"
	case CloseReasonRestartRequired:
		return "restart_required"
	case CloseReasonLoggedOut:
		return "logged_out"
	default:
		return "unknown"
	}
}

// Recoverable reports whether a close with this reason is eligible for a
// reconnect attempt.
func (r CloseReason) Recoverable() bool {
	return r != CloseReasonLoggedOut
}

// Event is the closed set of lifecycle events a transport emits.
type Event interface {
	isEvent()
}

// PairingEvent carries a fresh pairing payload (rendered to the end user
// as a scannable QR code). May be emitted repeatedly with refreshed
// payloads until pairing completes.
type PairingEvent struct {
	Code string
}

// ConnectedEvent signals a successful open. Identity is the network
// identity the session is authenticated as (a jid).
type ConnectedEvent struct {
	Identity string
}

// DisconnectedEvent is the final event of a transport's life.
type DisconnectedEvent struct {
	Reason CloseReason
	Err    error
}

// MessageEvent is an inbound message.
type MessageEvent struct {
	// Sender is the network address the message came from.
	Sender string
	// FromSelf is true when the message originated from this session's
	// own identity (e.g. sent from another linked device).
	FromSelf bool
	// Content is the decoded message content.
	Content Content
	// Timestamp is the network timestamp of the message.
	Timestamp time.Time
}

func (PairingEvent) isEvent()      {}
func (ConnectedEvent) isEvent()    {}
func (DisconnectedEvent) isEvent() {}
func (MessageEvent) isEvent()      {}
