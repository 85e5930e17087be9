package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"

	"github.com/lewisedginton/wa_gateway/pkg/logger"
)

const qrImageSize = 256

// sessionQR renders the pending pairing payload as a scannable PNG.
// Returns 404 when the session has no payload pending (already paired or
// not yet issued).
func (h *Handler) sessionQR(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if rec.PairingPayload == "" {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no pairing payload pending"})
		return
	}

	png, err := qrcode.Encode(rec.PairingPayload, qrcode.Medium, qrImageSize)
	if err != nil {
		h.logger.Error("Failed to render pairing QR", logger.SessionIDField(rec.ID), logger.ErrorField(err))
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to render QR code"})
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
