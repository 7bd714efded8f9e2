package api

import (
	"errors"
	"net/http"

	"github.com/tmarkovic/slotcal/internal/user"
)

// usersHandler groups user management HTTP handlers.
type usersHandler struct {
	store UserStore
}

func newUsersHandler(store UserStore) *usersHandler {
	return &usersHandler{store: store}
}

// CreateUser handles POST /users.
func (h *usersHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req user.CreateUserInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	u, err := h.store.Create(r.Context(), req)
	if err != nil {
		if errors.Is(err, user.ErrDuplicate) {
			writeError(w, http.StatusConflict, "duplicate", "email or username already taken")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, u)
}

// ListUsers handles GET /users.
func (h *usersHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list users")
		return
	}
	if users == nil {
		users = []*user.User{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

// GetUser handles GET /users/{id}.
func (h *usersHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "user id must be an integer")
		return
	}

	u, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// UpdateUser handles PUT /users/{id}. Omitted fields keep their values.
func (h *usersHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "user id must be an integer")
		return
	}

	var in user.UpdateUserInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	u, err := h.store.Update(r.Context(), id, in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// DeleteUser handles DELETE /users/{id}. Deletion fails while any slot
// still references the user.
func (h *usersHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "user id must be an integer")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
