package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lewisedginton/wa_gateway/internal/session_manager"
	"github.com/lewisedginton/wa_gateway/internal/transport"
)

// actionRequest is the polymorphic body of POST /sessions/{id}/messages.
// Kind selects the action; the remaining fields are kind-specific.
type actionRequest struct {
	Kind      string `json:"kind"`
	Recipient string `json:"recipient"`

	// text
	Body string `json:"body,omitempty"`

	// media
	MimeType string `json:"mimeType,omitempty"`
	Caption  string `json:"caption,omitempty"`
	URL      string `json:"url,omitempty"`

	// location
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	Name      string  `json:"name,omitempty"`

	// presence
	State string `json:"state,omitempty"`

	// reaction
	MessageID string `json:"messageId,omitempty"`
	Emoji     string `json:"emoji,omitempty"`

	// receipt
	MessageIDs []string `json:"messageIds,omitempty"`
}

// toAction maps a request body onto the transport action union.
func (req actionRequest) toAction() (transport.Action, error) {
	switch req.Kind {
	case "", "text":
		return transport.TextAction{Recipient: req.Recipient, Body: req.Body}, nil
	case "image", "document", "audio", "video":
		return transport.MediaAction{
			Recipient: req.Recipient,
			Media:     transport.MediaKind(req.Kind),
			MimeType:  req.MimeType,
			Caption:   req.Caption,
			URL:       req.URL,
		}, nil
	case "location":
		return transport.LocationAction{
			Recipient: req.Recipient,
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
			Name:      req.Name,
		}, nil
	case "presence":
		return transport.PresenceAction{
			Recipient: req.Recipient,
			State:     transport.PresenceState(req.State),
		}, nil
	case "reaction":
		return transport.ReactionAction{
			Recipient: req.Recipient,
			MessageID: req.MessageID,
			Emoji:     req.Emoji,
		}, nil
	case "receipt":
		return transport.ReceiptAction{
			Recipient:  req.Recipient,
			MessageIDs: req.MessageIDs,
		}, nil
	default:
		return nil, session_manager.NewValidationError("unknown action kind %q", req.Kind)
	}
}

func (h *Handler) dispatchAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	action, err := req.toAction()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.service.DispatchAction(r.Context(), chi.URLParam(r, "id"), action); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"sent": true, "kind": action.Kind()})
}
