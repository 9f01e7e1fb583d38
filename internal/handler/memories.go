package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leca/ourstory/internal/api"
	"github.com/leca/ourstory/internal/model"
)

type createdResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type reorderRequest struct {
	Order []model.OrderItem `json:"order"`
}

// ListMemories handles GET /api/memories.
func (h *Handler) ListMemories(w http.ResponseWriter, r *http.Request) {
	memories, err := h.Timeline.ListMemories(r.Context())
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, memories)
}

// GetMemory handles GET /api/memories/{id}.
func (h *Handler) GetMemory(w http.ResponseWriter, r *http.Request) {
	m, err := h.Timeline.GetMemory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, m)
}

// CreateMemory handles POST /api/memories.
func (h *Handler) CreateMemory(w http.ResponseWriter, r *http.Request) {
	var f model.MemoryFields
	if err := decodeJSON(w, r, &f); err != nil {
		api.BadRequest(w, "Invalid JSON body")
		return
	}
	m, err := h.Timeline.CreateMemory(r.Context(), f)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, createdResponse{ID: m.ID, Message: "Memory created"})
}

// UpdateMemory handles PUT /api/memories/{id}.
func (h *Handler) UpdateMemory(w http.ResponseWriter, r *http.Request) {
	var f model.MemoryFields
	if err := decodeJSON(w, r, &f); err != nil {
		api.BadRequest(w, "Invalid JSON body")
		return
	}
	if _, err := h.Timeline.UpdateMemory(r.Context(), chi.URLParam(r, "id"), f); err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteMessage(w, "Memory updated")
}

// DeleteMemory handles DELETE /api/memories/{id}.
func (h *Handler) DeleteMemory(w http.ResponseWriter, r *http.Request) {
	if err := h.Timeline.DeleteMemory(r.Context(), chi.URLParam(r, "id")); err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteMessage(w, "Memory deleted")
}

// ReorderMemories handles PUT /api/memories/reorder.
func (h *Handler) ReorderMemories(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		api.BadRequest(w, "Order must be an array")
		return
	}
	if err := h.Timeline.ReorderMemories(r.Context(), req.Order); err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteMessage(w, "Memories reordered")
}
