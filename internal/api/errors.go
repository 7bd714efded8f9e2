package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/tmarkovic/slotcal/internal/event"
	"github.com/tmarkovic/slotcal/internal/slot"
	"github.com/tmarkovic/slotcal/internal/user"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// errorEnvelope is the standard error response shape.
type errorEnvelope struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes a JSON error response with the given status code.
func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorEnvelope{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// writeJSON writes a JSON response with the given status code and data.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// readJSON decodes the request body into v, enforcing a size limit.
func readJSON(r *http.Request, v interface{}) error {
	lr := io.LimitReader(r.Body, maxBodySize)
	return json.NewDecoder(lr).Decode(v)
}

// writeDomainError maps domain sentinel errors to HTTP responses. Unknown
// errors surface as opaque 500s.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, slot.ErrNotFound),
		errors.Is(err, event.ErrNotFound),
		errors.Is(err, user.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, slot.ErrUserNotInSlot):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, slot.ErrCapacityExceeded):
		writeError(w, http.StatusBadRequest, "capacity_exceeded", err.Error())
	case errors.Is(err, slot.ErrAlreadyReserved):
		writeError(w, http.StatusConflict, "already_reserved", err.Error())
	case errors.Is(err, slot.ErrEventAlreadyAttached):
		writeError(w, http.StatusConflict, "already_attached", err.Error())
	case errors.Is(err, user.ErrDuplicate):
		writeError(w, http.StatusConflict, "duplicate", err.Error())
	case errors.Is(err, user.ErrReferenced):
		writeError(w, http.StatusConflict, "referenced", err.Error())
	case errors.Is(err, user.ErrEmailInvalid),
		errors.Is(err, user.ErrUsernameTooShort),
		errors.Is(err, user.ErrPasswordTooShort),
		errors.Is(err, event.ErrTypeRequired),
		errors.Is(err, event.ErrDatesRequired),
		errors.Is(err, event.ErrDatesOutOfOrder):
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
