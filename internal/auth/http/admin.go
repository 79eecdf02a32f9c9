package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/spyberpolymath/folio-auth/internal/auth/store"
	"github.com/spyberpolymath/folio-auth/pkg/httpx"
	"github.com/spyberpolymath/folio-auth/pkg/slogx"
)

const defaultLoginHistoryLimit = 50

// AdminHandler serves the admin read surface. All routes behind it require
// the admin role.
type AdminHandler struct {
	Store store.Store
}

// adminUser is the sanitized projection of a user. Hashes, pending codes and
// TOTP secrets never leave the store through this surface.
type adminUser struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	Role            string     `json:"role"`
	EmailOTPEnabled bool       `json:"email_otp_enabled"`
	TOTPEnabled     bool       `json:"totp_enabled"`
	JoinedAt        time.Time  `json:"joined_at"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
}

type loginAttemptEntry struct {
	ID        string    `json:"id"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	Success   bool      `json:"success"`
	CreatedAt time.Time `json:"created_at"`
}

// HandleListUsers handles GET /v1/admin/users.
func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.Store.Users().ListUsers(ctx)
	if err != nil {
		slogx.FromContext(ctx).Error("list users", "err", err)
		errServerError.WriteError(w)
		return
	}

	out := make([]adminUser, 0, len(users))
	for _, u := range users {
		out = append(out, adminUser{
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

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"users": out})
}

// HandleListLogins handles GET /v1/admin/users/{id}/logins.
func (h *AdminHandler) HandleListLogins(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := r.PathValue("id")
	if userID == "" {
		errInvalidRequest.WriteError(w)
		return
	}

	limit := defaultLoginHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			errInvalidRequest.WriteError(w)
			return
		}
		limit = n
	}

	if _, err := h.Store.Users().GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			errNotFound.WriteError(w)
			return
		}
		slogx.FromContext(ctx).Error("load user", "user_id", userID, "err", err)
		errServerError.WriteError(w)
		return
	}

	attempts, err := h.Store.LoginAttempts().ListLoginAttemptsByUser(ctx, userID, limit)
	if err != nil {
		slogx.FromContext(ctx).Error("list login attempts", "user_id", userID, "err", err)
		errServerError.WriteError(w)
		return
	}

	out := make([]loginAttemptEntry, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, loginAttemptEntry{
			ID:        a.ID,
			IP:        a.IP,
			UserAgent: a.UserAgent,
			Success:   a.Success,
			CreatedAt: a.CreatedAt,
		})
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"logins": out})
}
