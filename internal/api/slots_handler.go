package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tmarkovic/slotcal/internal/event"
	"github.com/tmarkovic/slotcal/internal/metrics"
	"github.com/tmarkovic/slotcal/internal/slot"
)

const unknownUsername = "Unknown User"

// slotsHandler groups slot HTTP handlers.
type slotsHandler struct {
	slots   SlotReader
	engine  Reservations
	users   UserStore
	metrics *metrics.Metrics
}

func newSlotsHandler(slots SlotReader, engine Reservations, users UserStore, m *metrics.Metrics) *slotsHandler {
	return &slotsHandler{slots: slots, engine: engine, users: users, metrics: m}
}

func (h *slotsHandler) reservationOutcome(outcome string) {
	if h.metrics != nil {
		h.metrics.IncReservation(outcome)
	}
}

// pathID parses the named chi URL parameter as an int64.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil
}

// ListSlots handles GET /slots.
func (h *slotsHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := h.slots.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list slots")
		return
	}
	if slots == nil {
		slots = []*slot.Slot{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"slots": slots})
}

// GetSlot handles GET /slots/{id}.
func (h *slotsHandler) GetSlot(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "slot id must be an integer")
		return
	}

	s, err := h.slots.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// ListSlotsByUser handles GET /slots/user/{userID}.
func (h *slotsHandler) ListSlotsByUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "user id must be an integer")
		return
	}

	slots, err := h.slots.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list slots")
		return
	}
	if slots == nil {
		slots = []*slot.Slot{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"slots": slots})
}

// ListSlotsInRange handles GET /slots/range?startDate=YYYY-MM-DD&endDate=YYYY-MM-DD.
func (h *slotsHandler) ListSlotsInRange(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("startDate"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "startDate must be YYYY-MM-DD")
		return
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("endDate"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "endDate must be YYYY-MM-DD")
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "invalid_range", "endDate is before startDate")
		return
	}

	slots, err := h.slots.ListRange(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list slots")
		return
	}
	if slots == nil {
		slots = []*slot.Slot{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"slots": slots})
}

// monthSlot is a slot enriched with usernames for the calendar view.
// Comments are re-keyed by username.
type monthSlot struct {
	ID          int64              `json:"id"`
	SlotDate    time.Time          `json:"slot_date"`
	MaxCapacity int                `json:"max_capacity"`
	UserIDs     []int64            `json:"user_ids"`
	Usernames   []string           `json:"usernames"`
	Comments    map[string]*string `json:"comments"`
	Events      []event.Event      `json:"events"`
}

// ListSlotsForMonth handles GET /slots-for-month?year=YYYY&month=M.
func (h *slotsHandler) ListSlotsForMonth(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_month", "year must be an integer")
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "invalid_month", "month must be between 1 and 12")
		return
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	slots, err := h.slots.ListRange(r.Context(), first, last)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list slots")
		return
	}

	// One username lookup for all user ids in the month.
	var ids []int64
	seen := make(map[int64]struct{})
	for _, s := range slots {
		for _, uid := range s.UserIDs {
			if _, ok := seen[uid]; !ok {
				seen[uid] = struct{}{}
				ids = append(ids, uid)
			}
		}
	}

	names := map[int64]string{}
	if len(ids) > 0 {
		names, err = h.users.Usernames(r.Context(), ids)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to resolve usernames")
			return
		}
	}

	enriched := make([]monthSlot, 0, len(slots))
	for _, s := range slots {
		enriched = append(enriched, enrichSlot(s, names))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"slots": enriched})
}

// enrichSlot joins a slot with usernames. Ids without a known user render
// as a placeholder so a deleted account never hides a taken seat.
func enrichSlot(s *slot.Slot, names map[int64]string) monthSlot {
	usernames := make([]string, 0, len(s.UserIDs))
	comments := make(map[string]*string, len(s.Comments))

	for _, uid := range s.UserIDs {
		name, ok := names[uid]
		if !ok {
			name = unknownUsername
		}
		usernames = append(usernames, name)
		if c, ok := s.Comments[slot.CommentKey(uid)]; ok {
			comments[name] = c
		}
	}

	return monthSlot{
		ID:          s.ID,
		SlotDate:    s.SlotDate,
		MaxCapacity: s.MaxCapacity,
		UserIDs:     s.UserIDs,
		Usernames:   usernames,
		Comments:    comments,
		Events:      s.Events,
	}
}

// Reserve handles PUT /slots/{id}/reserve?userId=N&comment=text.
func (h *slotsHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "slot id must be an integer")
		return
	}
	userID, err := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "userId query parameter is required")
		return
	}

	var comment *string
	if r.URL.Query().Has("comment") {
		c := r.URL.Query().Get("comment")
		comment = &c
	}

	s, err := h.engine.Reserve(r.Context(), id, userID, comment)
	if err != nil {
		switch err {
		case slot.ErrCapacityExceeded:
			h.reservationOutcome("rejected_capacity")
		case slot.ErrAlreadyReserved:
			h.reservationOutcome("rejected_duplicate")
		}
		writeDomainError(w, err)
		return
	}

	h.reservationOutcome("reserved")
	writeJSON(w, http.StatusOK, s)
}

// Unreserve handles PUT /slots/{id}/unreserve?userId=N.
func (h *slotsHandler) Unreserve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "slot id must be an integer")
		return
	}
	userID, err := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "userId query parameter is required")
		return
	}

	s, err := h.engine.Unreserve(r.Context(), id, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.reservationOutcome("unreserved")
	writeJSON(w, http.StatusOK, s)
}

// Edit handles PUT /slots/{id}/edit. Omitted fields keep their values; an
// explicit empty list clears.
func (h *slotsHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "slot id must be an integer")
		return
	}

	var in slot.EditInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	s, err := h.engine.Edit(r.Context(), id, in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// AttachEvent handles POST /slots/{id}/events/{eventID}.
func (h *slotsHandler) AttachEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "slot id must be an integer")
		return
	}
	eventID, ok := pathID(r, "eventID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "event id must be an integer")
		return
	}

	s, err := h.engine.AttachEvent(r.Context(), id, eventID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// DetachEvent handles DELETE /slots/{id}/events/{eventID}. Detaching an
// event that is not attached is a no-op success.
func (h *slotsHandler) DetachEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "slot id must be an integer")
		return
	}
	eventID, ok := pathID(r, "eventID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "event id must be an integer")
		return
	}

	s, err := h.engine.DetachEvent(r.Context(), id, eventID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
