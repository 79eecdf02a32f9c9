package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spyberpolymath/folio-auth/internal/auth/service"
	"github.com/spyberpolymath/folio-auth/pkg/httpx"
	"github.com/spyberpolymath/folio-auth/pkg/slogx"
)

// TwoFactorHandler handles the second-factor step of a login.
type TwoFactorHandler struct {
	TwoFactorService *service.TwoFactorService
	TokenService     *service.TokenService
	AuthService      *service.AuthService
}

type twoFactorRequest struct {
	UserID string `json:"user_id"`
	Type   string `json:"type"`
	Code   string `json:"code,omitempty"`
	Action string `json:"action,omitempty"`
}

type twoFactorSuccessResponse struct {
	Success   bool   `json:"success"`
	Token     string `json:"token"`
	Role      string `json:"role"`
	ExpiresIn int64  `json:"expires_in"`
}

type twoFactorFailureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// HandleVerify handles POST /v1/auth/2fa/verify. With action "send" it
// issues a fresh email code; otherwise it checks the submitted code and
// mints the session token on success.
func (h *TwoFactorHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req twoFactorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errInvalidRequest.WriteError(w)
		return
	}
	if req.UserID == "" || req.Type == "" {
		errInvalidRequest.WriteError(w)
		return
	}

	httpx.NoCache(w)

	if req.Action == "send" {
		h.handleSend(w, r, req)
		return
	}

	if req.Code == "" {
		errInvalidRequest.WriteError(w)
		return
	}

	if err := h.TwoFactorService.Verify(ctx, req.UserID, req.Type, req.Code); err != nil {
		h.writeVerifyFailure(w, r, err)
		return
	}

	user, err := h.AuthService.Store.Users().GetUserByID(ctx, req.UserID)
	if err != nil {
		log.Error("load user after 2fa", "user_id", req.UserID, "err", err)
		errServerError.WriteError(w)
		return
	}

	tok, err := h.TokenService.Issue(user.ID, user.Role)
	if err != nil {
		log.Error("token issue failed", "user_id", user.ID, "err", err)
		errServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, twoFactorSuccessResponse{
		Success:   true,
		Token:     tok.Token,
		Role:      tok.Role,
		ExpiresIn: tok.ExpiresIn,
	})
}

func (h *TwoFactorHandler) handleSend(w http.ResponseWriter, r *http.Request, req twoFactorRequest) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	err := h.TwoFactorService.Challenge(ctx, req.UserID, req.Type)
	switch {
	case err == nil:
		httpx.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
	case errors.Is(err, service.ErrMethodUnavailable):
		httpx.WriteJSON(w, http.StatusBadRequest, twoFactorFailureResponse{
			Error: "method_unavailable",
		})
	default:
		log.Error("2fa challenge failed", "user_id", req.UserID, "err", err)
		errServerError.WriteError(w)
	}
}

// writeVerifyFailure maps service errors onto wire codes. All code-level
// failures are 401s with a stable machine code; the client can prompt for a
// resend on code_expired or too_many_attempts.
func (h *TwoFactorHandler) writeVerifyFailure(w http.ResponseWriter, r *http.Request, err error) {
	code := ""
	status := http.StatusUnauthorized

	switch {
	case errors.Is(err, service.ErrInvalidCode):
		code = "invalid_code"
	case errors.Is(err, service.ErrCodeExpired):
		code = "code_expired"
	case errors.Is(err, service.ErrNoPendingCode):
		code = "no_pending_code"
	case errors.Is(err, service.ErrTooManyAttempts):
		code = "too_many_attempts"
	case errors.Is(err, service.ErrMethodUnavailable):
		code = "method_unavailable"
		status = http.StatusBadRequest
	default:
		slogx.FromContext(r.Context()).Error("2fa verify failed", "err", err)
		errServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, status, twoFactorFailureResponse{Error: code})
}
