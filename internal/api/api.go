// Package api exposes the gateway's HTTP command surface.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lewisedginton/wa_gateway/internal/session_manager"
	"github.com/lewisedginton/wa_gateway/internal/transport"
	"github.com/lewisedginton/wa_gateway/pkg/logger"
)

// Handler serves the session command API off a SessionService.
type Handler struct {
	service *session_manager.Service
	logger  logger.Logger
}

// NewHandler creates the API handler.
func NewHandler(service *session_manager.Service, log logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

// Routes mounts every API endpoint on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.createSession)
		r.Get("/", h.listSessions)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getSession)
			r.Delete("/", h.deleteSession)
			r.Get("/qr", h.sessionQR)
			r.Post("/messages", h.dispatchAction)
			r.Post("/check", h.checkRecipient)
		})
	})

	// Legacy single-endpoint send shape.
	r.Post("/send-message", h.legacySendMessage)
	r.Get("/stats", h.stats)

	return r
}

type createSessionRequest struct {
	Name string `json:"name"`
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	rec, err := h.service.Create(r.Context(), req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, rec)
}

// listSessions returns the bare array the original wire format used.
func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.List())
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

type checkRecipientRequest struct {
	Recipient string `json:"recipient"`
}

func (h *Handler) checkRecipient(w http.ResponseWriter, r *http.Request) {
	var req checkRecipientRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	exists, err := h.service.CheckRecipient(r.Context(), chi.URLParam(r, "id"), req.Recipient)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"exists": exists})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	snap := h.service.Stats()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"totalMessagesSent": snap.TotalMessagesSent,
		"startTime":         snap.StartTime,
	})
}

// legacySendMessage keeps the original flat send shape alive:
// {"sessionId": "...", "number": "...", "message": "..."}.
func (h *Handler) legacySendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
		Number    string `json:"number"`
		Message   string `json:"message"`
	}
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.SessionID == "" {
		h.writeError(w, r, session_manager.NewValidationError("sessionId is required"))
		return
	}

	err := h.service.DispatchAction(r.Context(), req.SessionID, transport.TextAction{
		Recipient: req.Number,
		Body:      req.Message,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"sent": true})
}

// writeJSON serializes a response body.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", logger.ErrorField(err))
	}
}

// writeError maps the service error taxonomy onto HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case session_manager.IsValidation(err):
		status = http.StatusBadRequest
	case errors.Is(err, session_manager.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, session_manager.ErrNotConnected):
		status = http.StatusConflict
	case session_manager.IsTransport(err):
		status = http.StatusBadGateway
	}

	if status >= 500 {
		h.logger.Error("Request failed",
			logger.HTTPMethodField(r.Method), logger.HTTPPathField(r.URL.Path), logger.ErrorField(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func decodeBody(r *http.Request, dest any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return session_manager.NewValidationError("invalid JSON body: %v", err)
	}
	return nil
}
