package session_manager //nolint:revive // var-naming: using underscores for domain clarity

import "time"

// Status is the internal lifecycle state of a session.
type Status string

const (
	// StatusInitializing means a transport is being constructed, either
	// for a fresh session or during a reconnect.
	StatusInitializing Status = "initializing"
	// StatusAwaitingPairing means the transport issued a pairing payload
	// and is waiting for the end user to scan it.
	StatusAwaitingPairing Status = "awaiting_pairing"
	// StatusConnected means the transport reported a successful open.
	StatusConnected Status = "connected"
	// StatusDisconnected is terminal: the session was logged out or its
	// controller gave up. No reconnect happens from here.
	StatusDisconnected Status = "disconnected"
)

// Public returns the externally visible status string. Initializing and
// AwaitingPairing both surface as "connecting"; consumers distinguish
// them by the presence of a pairing payload.
func (s Status) Public() string {
	switch s {
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	default:
		return "connecting"
	}
}

// SessionRecord is the in-memory state of one session. It is owned by the
// session's controller; everyone else sees copies.
type SessionRecord struct {
	ID   string
	Name string

	Status Status
	// PairingPayload is non-empty only while AwaitingPairing.
	PairingPayload string
	// PhoneIdentifier is set once, on the first successful open.
	PhoneIdentifier string
	LastActiveAt    time.Time
}

// PublicSession is the wire representation of a session returned by the
// command layer.
type PublicSession struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Status          string    `json:"status"`
	PairingPayload  string    `json:"qr,omitempty"`
	PhoneIdentifier string    `json:"phoneNumber,omitempty"`
	LastActiveAt    time.Time `json:"lastActiveAt"`
}

func (r SessionRecord) public() PublicSession {
	return PublicSession{
		ID:              r.ID,
		Name:            r.Name,
		Status:          r.Status.Public(),
		PairingPayload:  r.PairingPayload,
		PhoneIdentifier: r.PhoneIdentifier,
		LastActiveAt:    r.LastActiveAt,
	}
}
