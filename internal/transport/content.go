package transport

import "encoding/json"

// MediaKind is the finite set of media content kinds the gateway
// recognizes.
type MediaKind string

const (
	MediaImage    MediaKind = "image"
	MediaDocument MediaKind = "document"
	MediaAudio    MediaKind = "audio"
	MediaVideo    MediaKind = "video"
)

// Content is the closed set of inbound message content kinds. Anything
// the transport decodes but the gateway does not model arrives as
// UnknownContent.
type Content interface {
	isContent()

	// Kind returns the wire name of the content kind, used in webhook
	// payloads.
	Kind() string
}

// TextContent is a plain text message.
type TextContent struct {
	Body string
}

// MediaContent is an image, document, audio or video message.
type MediaContent struct {
	Media    MediaKind
	MimeType string
	Caption  string
	// URL points at the downloadable media artifact; retrieval is the
	// consumer's business.
	URL string
}

// LocationContent is a shared location.
type LocationContent struct {
	Latitude  float64
	Longitude float64
	Name      string
}

// ReactionContent is an emoji reaction to an earlier message.
type ReactionContent struct {
	TargetMessageID string
	Emoji           string
}

// UnknownContent is the fallback for content kinds the gateway does not
// model. Raw preserves the transport's decoded form for webhook
// consumers.
type UnknownContent struct {
	WireKind string
	Raw      json.RawMessage
}

func (TextContent) isContent()     {}
func (MediaContent) isContent()    {}
func (LocationContent) isContent() {}
func (ReactionContent) isContent() {}
func (UnknownContent) isContent()  {}

// Kind implements Content.
func (TextContent) Kind() string { return "text" }

// Kind implements Content.
func (c MediaContent) Kind() string { return string(c.Media) }

// Kind implements Content.
func (LocationContent) Kind() string { return "location" }

// Kind implements Content.
func (ReactionContent) Kind() string { return "reaction" }

// Kind implements Content.
func (c UnknownContent) Kind() string {
	if c.WireKind == "" {
		return "unknown"
	}
	return c.WireKind
}
