package handler

import (
	"net/http"

	"github.com/leca/ourstory/internal/api"
	"github.com/leca/ourstory/internal/model"
)

// GetValentine handles GET /api/valentine.
func (h *Handler) GetValentine(w http.ResponseWriter, r *http.Request) {
	msg, err := h.Timeline.GetMessage(r.Context())
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, msg)
}

// UpdateValentine handles PUT /api/valentine. Omitted fields reset to the
// default message rather than keeping the stored text.
func (h *Handler) UpdateValentine(w http.ResponseWriter, r *http.Request) {
	var f model.ValentineFields
	if err := decodeJSON(w, r, &f); err != nil {
		api.BadRequest(w, "Invalid JSON body")
		return
	}
	if _, err := h.Timeline.UpdateMessage(r.Context(), f); err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteMessage(w, "Valentine message updated")
}
