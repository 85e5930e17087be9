package transport

// Action is the closed set of outbound operations a session can dispatch
// through its transport.
type Action interface {
	isAction()

	// Kind returns the wire name of the action, used for logging and
	// request routing.
	Kind() string

	// CountsAsSend reports whether a successful dispatch of this action
	// counts towards the global messages-sent stat. Presence, receipts
	// and other signalling actions do not.
	CountsAsSend() bool
}

// TextAction sends a text message.
type TextAction struct {
	Recipient string
	Body      string
}

// MediaAction sends a media message.
type MediaAction struct {
	Recipient string
	Media     MediaKind
	MimeType  string
	Caption   string
	// URL points at the media artifact to send.
	URL string
}

// LocationAction shares a location.
type LocationAction struct {
	Recipient string
	Latitude  float64
	Longitude float64
	Name      string
}

// PresenceState is the finite set of presence signals.
type PresenceState string

const (
	PresenceTyping    PresenceState = "typing"
	PresencePaused    PresenceState = "paused"
	PresenceAvailable PresenceState = "available"
)

// PresenceAction signals typing/availability to a recipient.
type PresenceAction struct {
	Recipient string
	State     PresenceState
}

// ReactionAction sends an emoji reaction to an earlier message.
type ReactionAction struct {
	Recipient string
	MessageID string
	Emoji     string
}

// ReceiptAction marks messages from a recipient as read.
type ReceiptAction struct {
	Recipient  string
	MessageIDs []string
}

func (TextAction) isAction()     {}
func (MediaAction) isAction()    {}
func (LocationAction) isAction() {}
func (PresenceAction) isAction() {}
func (ReactionAction) isAction() {}
func (ReceiptAction) isAction()  {}

// Kind implements Action.
func (TextAction) Kind() string { return "text" }

// Kind implements Action.
func (a MediaAction) Kind() string { return string(a.Media) }

// Kind implements Action.
func (LocationAction) Kind() string { return "location" }

// Kind implements Action.
func (PresenceAction) Kind() string { return "presence" }

// Kind implements Action.
func (ReactionAction) Kind() string { return "reaction" }

// Kind implements Action.
func (ReceiptAction) Kind() string { return "receipt" }

// CountsAsSend implements Action.
func (TextAction) CountsAsSend() bool { return true }

// CountsAsSend implements Action.
func (MediaAction) CountsAsSend() bool { return true }

// CountsAsSend implements Action.
func (LocationAction) CountsAsSend() bool { return true }

// CountsAsSend implements Action.
func (ReactionAction) CountsAsSend() bool { return true }

// CountsAsSend implements Action.
func (PresenceAction) CountsAsSend() bool { return false }

// CountsAsSend implements Action.
func (ReceiptAction) CountsAsSend() bool { return false }
