package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/tmarkovic/slotcal/internal/auth"
	"github.com/tmarkovic/slotcal/internal/metrics"
	"github.com/tmarkovic/slotcal/internal/user"
)

// authHandler groups authentication HTTP handlers.
type authHandler struct {
	users      UserStore
	sessions   SessionRegistry
	issuer     *auth.Issuer
	metrics    *metrics.Metrics
	refreshTTL time.Duration
}

func newAuthHandler(users UserStore, sessions SessionRegistry, issuer *auth.Issuer, m *metrics.Metrics, refreshTTL time.Duration) *authHandler {
	return &authHandler{
		users:      users,
		sessions:   sessions,
		issuer:     issuer,
		metrics:    m,
		refreshTTL: refreshTTL,
	}
}

func (h *authHandler) authSuccess(authType string) {
	if h.metrics != nil {
		h.metrics.IncAuthSuccess(authType)
	}
}

func (h *authHandler) authFailure(authType string) {
	if h.metrics != nil {
		h.metrics.IncAuthFailure(authType)
	}
}

func (h *authHandler) syncSessionGauge() {
	if h.metrics != nil && h.sessions != nil {
		h.metrics.SetSessionsLive(h.sessions.Len())
	}
}

// Register handles POST /register.
func (h *authHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req user.CreateUserInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	u, err := h.users.Create(r.Context(), req)
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

// Login handles POST /login. The identifier matches either email or username.
func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if req.Identifier == "" || req.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "identifier and password are required")
		return
	}

	u, err := h.users.GetByIdentifier(r.Context(), req.Identifier)
	if err != nil {
		h.authFailure("login")
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
		return
	}

	if !user.CheckPassword(u, req.Password) {
		h.authFailure("login")
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
		return
	}

	id := auth.Identity{UserID: u.ID, Username: u.Username}
	accessToken, err := h.issuer.IssueAccessToken(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to issue token")
		return
	}
	refreshToken, err := h.issuer.IssueRefreshToken(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to issue token")
		return
	}

	if err := h.sessions.Create(r.Context(), refreshToken, time.Now().Add(h.refreshTTL)); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create session")
		return
	}

	h.authSuccess("login")
	h.syncSessionGauge()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
		"user":         u,
	})
}

// RefreshAccessToken handles POST /token. A refresh token must be both
// cryptographically valid and still registered as a session.
func (h *authHandler) RefreshAccessToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "refresh token is required")
		return
	}

	claims, err := h.issuer.VerifyRefreshToken(req.RefreshToken)
	if err != nil {
		h.authFailure("refresh")
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid refresh token")
		return
	}

	if !h.sessions.IsValid(req.RefreshToken) {
		h.authFailure("refresh")
		writeError(w, http.StatusForbidden, "revoked", "session has been revoked")
		return
	}

	accessToken, err := h.issuer.IssueAccessToken(auth.Identity{UserID: claims.UserID, Username: claims.Username})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to issue token")
		return
	}

	h.authSuccess("refresh")
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": accessToken})
}

// Logout handles DELETE /logout. Revoking an unknown token still returns 204.
func (h *authHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := readJSON(r, &req); err != nil || req.RefreshToken == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := h.sessions.Revoke(r.Context(), req.RefreshToken); err != nil {
		slog.Error("failed to revoke session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to revoke session")
		return
	}
	h.syncSessionGauge()
	w.WriteHeader(http.StatusNoContent)
}

// ForgotPassword handles POST /forgot-password. Token delivery is out of
// scope; the reset token is returned in the response.
func (h *authHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "email is required")
		return
	}

	u, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "no account with that email")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to look up account")
		return
	}

	resetToken, err := h.issuer.IssuePasswordResetToken(u.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to issue reset token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"resetToken": resetToken})
}
