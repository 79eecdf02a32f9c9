package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/spyberpolymath/folio-auth/internal/auth/store"
	"github.com/spyberpolymath/folio-auth/pkg/httpx"
	"github.com/spyberpolymath/folio-auth/pkg/slogx"
)

// MeHandler serves the authenticated user's own profile.
type MeHandler struct {
	Store store.Store
}

type meResponse struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	Role            string     `json:"role"`
	EmailOTPEnabled bool       `json:"email_otp_enabled"`
	TOTPEnabled     bool       `json:"totp_enabled"`
	JoinedAt        time.Time  `json:"joined_at"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
}

// HandleMe handles GET /v1/me.
func (h *MeHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ident, ok := httpx.IdentityFromContext(ctx)
	if !ok {
		errInvalidCredentials.WriteError(w)
		return
	}

	u, err := h.Store.Users().GetUserByID(ctx, ident.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// token outlived the account
			errNotFound.WriteError(w)
			return
		}
		slogx.FromContext(ctx).Error("load user", "user_id", ident.ID, "err", err)
		errServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, meResponse{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		Role:            u.Role,
		EmailOTPEnabled: u.EmailOTPEnabled,
		TOTPEnabled:     u.TOTPEnabled,
		JoinedAt:        u.JoinedAt,
		LastLoginAt:     u.LastLoginAt,
	})
}
