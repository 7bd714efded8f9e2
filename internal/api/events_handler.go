package api

import (
	"net/http"

	"github.com/tmarkovic/slotcal/internal/event"
)

// eventsHandler groups event HTTP handlers.
type eventsHandler struct {
	store EventStore
}

func newEventsHandler(store EventStore) *eventsHandler {
	return &eventsHandler{store: store}
}

// CreateEvent handles POST /events.
func (h *eventsHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req event.CreateEventInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	e, err := h.store.Create(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create event")
		return
	}

	writeJSON(w, http.StatusCreated, e)
}

// ListEvents handles GET /events.
func (h *eventsHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list events")
		return
	}
	if events == nil {
		events = []*event.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

// UpdateEvent handles PUT /events/{id}. The body replaces the event.
func (h *eventsHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "event id must be an integer")
		return
	}

	var req event.CreateEventInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	e, err := h.store.Update(r.Context(), id, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// DeleteEvent handles DELETE /events/{id}. Attached copies on slots are
// denormalized snapshots and stay as they are.
func (h *eventsHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "event id must be an integer")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
