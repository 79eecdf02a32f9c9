package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spyberpolymath/folio-auth/internal/auth/service"
	"github.com/spyberpolymath/folio-auth/internal/auth/store"
	"github.com/spyberpolymath/folio-auth/pkg/httpx"
	"github.com/spyberpolymath/folio-auth/pkg/slogx"
)

// AccountHandler serves authenticated self-service account updates.
type AccountHandler struct {
	AuthService      *service.AuthService
	TwoFactorService *service.TwoFactorService
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type emailOTPToggleRequest struct {
	Enabled bool `json:"enabled"`
}

// HandleChangePassword handles PUT /v1/me/password.
func (h *AccountHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ident, ok := httpx.IdentityFromContext(ctx)
	if !ok {
		errInvalidCredentials.WriteError(w)
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errInvalidRequest.WriteError(w)
		return
	}

	if err := h.AuthService.ChangePassword(ctx, ident.ID, req.CurrentPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			errInvalidRequest.WriteError(w)
		case errors.Is(err, service.ErrInvalidCredentials):
			errWrongPassword.WriteError(w)
		default:
			slogx.FromContext(ctx).Error("password change failed", "user_id", ident.ID, "err", err)
			errServerError.WriteError(w)
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleSetEmailOTP handles PUT /v1/me/2fa/email.
func (h *AccountHandler) HandleSetEmailOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ident, ok := httpx.IdentityFromContext(ctx)
	if !ok {
		errInvalidCredentials.WriteError(w)
		return
	}

	var req emailOTPToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errInvalidRequest.WriteError(w)
		return
	}

	if err := h.TwoFactorService.SetEmailOTPEnabled(ctx, ident.ID, req.Enabled); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			errNotFound.WriteError(w)
			return
		}
		slogx.FromContext(ctx).Error("email factor toggle failed", "user_id", ident.ID, "err", err)
		errServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
