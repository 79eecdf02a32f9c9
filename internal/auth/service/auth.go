package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/spyberpolymath/folio-auth/internal/auth/domain"
	"github.com/spyberpolymath/folio-auth/internal/auth/store"
	"github.com/spyberpolymath/folio-auth/pkg/cryptox"
	"github.com/spyberpolymath/folio-auth/pkg/idx"
	"github.com/spyberpolymath/folio-auth/pkg/slogx"
)

var (
	// ErrInvalidCredentials covers unknown email and wrong password alike.
	// Callers must never be able to tell the two apart.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	ErrInvalidRequest = errors.New("invalid_request")
)

// LoginMeta is the request context recorded into login history.
type LoginMeta struct {
	IP        string
	UserAgent string
}

// AuthService is the credential verifier: it checks an email/password pair
// against stored hashes and decides whether a second factor is required.
type AuthService struct {
	Store store.Store
}

// VerifyPassword checks the email/password pair. On a match it either
// reports full authentication (no second factor configured) or hands back a
// two-factor challenge describing the available methods.
//
// Store failures surface as wrapped errors, distinct from
// ErrInvalidCredentials, so the boundary can answer 500 instead of training
// users to read outage responses as auth failures.
func (s *AuthService) VerifyPassword(
	ctx context.Context,
	email, password string,
	meta LoginMeta,
) (domain.LoginResult, error) {
	log := slogx.FromContext(ctx)

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return domain.LoginResult{}, ErrInvalidRequest
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.LoginResult{}, ErrInvalidRequest
	}

	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn the same hashing work so unknown-email responses take
			// as long as wrong-password ones.
			cryptox.DummyVerify(password)
			return domain.LoginResult{}, ErrInvalidCredentials
		}
		return domain.LoginResult{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		s.recordAttempt(ctx, u.ID, meta, false)
		log.Info("password verification failed", slog.String("user_id", u.ID))
		return domain.LoginResult{}, ErrInvalidCredentials
	}

	s.recordAttempt(ctx, u.ID, meta, true)

	if !u.HasSecondFactor() {
		if err := s.Store.Users().UpdateLastLogin(ctx, u.ID, time.Now().UTC()); err != nil {
			log.Warn("failed to stamp last login", "user_id", u.ID, "err", err)
		}
		return domain.LoginResult{
			Authenticated: true,
			UserID:        u.ID,
			Role:          u.Role,
		}, nil
	}

	return domain.LoginResult{
		TwoFactorRequired: true,
		UserID:            u.ID,
		Role:              u.Role,
		Methods: domain.TwoFactorMethods{
			Email: u.EmailOTPEnabled,
			TOTP:  u.TOTPEnabled,
		},
		PreferredMethod: preferredMethod(u),
	}, nil
}

// MinPasswordLength is the floor for self-service password changes.
const MinPasswordLength = 8

// ChangePassword replaces an authenticated user's password after verifying
// the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if len(next) < MinPasswordLength {
		return ErrInvalidRequest
	}

	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if err := cryptox.VerifyPassword(current, u.PasswordHash); err != nil {
		slogx.FromContext(ctx).Info("password change rejected", slog.String("user_id", u.ID))
		return ErrInvalidCredentials
	}

	hash, err := cryptox.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, u.ID, hash); err != nil {
		return fmt.Errorf("store password: %w", err)
	}
	return nil
}

// preferredMethod favours TOTP when both factors are enabled; it is the
// stronger factor.
func preferredMethod(u domain.User) string {
	if u.TOTPEnabled {
		return domain.MethodTOTP
	}
	return domain.MethodEmail
}

// recordAttempt appends to login history. History is bookkeeping; a failure
// to write it never fails the login itself.
func (s *AuthService) recordAttempt(ctx context.Context, userID string, meta LoginMeta, success bool) {
	attempt := domain.LoginAttempt{
		ID:        idx.New().String(),
		UserID:    userID,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		Success:   success,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Store.LoginAttempts().CreateLoginAttempt(ctx, attempt); err != nil {
		slogx.FromContext(ctx).Warn("failed to record login attempt",
			"user_id", userID, "err", err)
	}
}
