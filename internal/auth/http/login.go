package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spyberpolymath/folio-auth/internal/auth/service"
	"github.com/spyberpolymath/folio-auth/pkg/httpx"
	"github.com/spyberpolymath/folio-auth/pkg/slogx"
)

// LoginHandler handles the password step of a login.
type LoginHandler struct {
	AuthService  *service.AuthService
	TokenService *service.TokenService
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginTokenResponse struct {
	Token     string `json:"token"`
	Role      string `json:"role"`
	ExpiresIn int64  `json:"expires_in"`
}

type loginChallengeResponse struct {
	Requires2FA     bool   `json:"requires_2fa"`
	UserID          string `json:"user_id"`
	EmailOTPEnabled bool   `json:"email_otp_enabled"`
	TOTPEnabled     bool   `json:"totp_enabled"`
	Method          string `json:"method"`
}

// HandleLogin handles POST /v1/auth/login. A correct password either returns
// a session token directly or a challenge describing the second factor still
// owed.
func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errInvalidRequest.WriteError(w)
		return
	}

	meta := service.LoginMeta{
		IP:        httpx.ClientIP(r),
		UserAgent: r.UserAgent(),
	}

	res, err := h.AuthService.VerifyPassword(ctx, req.Email, req.Password, meta)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			errInvalidRequest.WriteError(w)
		case errors.Is(err, service.ErrInvalidCredentials):
			errInvalidCredentials.WriteError(w)
		default:
			log.Error("login failed", "err", err)
			errServerError.WriteError(w)
		}
		return
	}

	httpx.NoCache(w)

	if res.TwoFactorRequired {
		httpx.WriteJSON(w, http.StatusOK, loginChallengeResponse{
			Requires2FA:     true,
			UserID:          res.UserID,
			EmailOTPEnabled: res.Methods.Email,
			TOTPEnabled:     res.Methods.TOTP,
			Method:          res.PreferredMethod,
		})
		return
	}

	tok, err := h.TokenService.Issue(res.UserID, res.Role)
	if err != nil {
		log.Error("token issue failed", "user_id", res.UserID, "err", err)
		errServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, loginTokenResponse{
		Token:     tok.Token,
		Role:      tok.Role,
		ExpiresIn: tok.ExpiresIn,
	})
}
