package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/spyberpolymath/folio-auth/internal/auth/domain"
	"github.com/spyberpolymath/folio-auth/internal/auth/mail"
	"github.com/spyberpolymath/folio-auth/internal/auth/store"
	"github.com/spyberpolymath/folio-auth/pkg/cryptox"
	"github.com/spyberpolymath/folio-auth/pkg/slogx"
)

const (
	// MaxOTPAttempts bounds failed verifies per pending email code. Hitting
	// the bound consumes the code; the client must request a fresh one.
	MaxOTPAttempts = 5

	// DefaultOTPTTL is how long an emailed one-time code stays valid.
	DefaultOTPTTL = 5 * time.Minute

	// TOTP parameters: 30-second steps, six digits, one step of clock skew
	// either way.
	totpPeriod = 30
	totpSkew   = 1
)

var (
	ErrInvalidCode       = errors.New("invalid_code")
	ErrCodeExpired       = errors.New("code_expired")
	ErrNoPendingCode     = errors.New("no_pending_code")
	ErrTooManyAttempts   = errors.New("too_many_attempts")
	ErrMethodUnavailable = errors.New("method_unavailable")
)

// TwoFactorService issues and checks second factors: emailed one-time codes
// and TOTP.
type TwoFactorService struct {
	Store    store.Store
	Mailer   mail.Sender
	SiteName string // appears in the code email subject

	// OTPTTL overrides DefaultOTPTTL when non-zero.
	OTPTTL time.Duration

	// Now overrides the clock in tests.
	Now func() time.Time
}

func (s *TwoFactorService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *TwoFactorService) otpTTL() time.Duration {
	if s.OTPTTL > 0 {
		return s.OTPTTL
	}
	return DefaultOTPTTL
}

// Challenge issues a new second-factor challenge. Only the email method has
// a challenge step; TOTP codes come from the user's authenticator app.
//
// Any previous pending code is overwritten: one code valid per user at a
// time, last write wins.
func (s *TwoFactorService) Challenge(ctx context.Context, userID, method string) error {
	if method != domain.MethodEmail {
		return ErrMethodUnavailable
	}

	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrMethodUnavailable
		}
		return fmt.Errorf("load user: %w", err)
	}
	if !u.EmailOTPEnabled {
		return ErrMethodUnavailable
	}

	code, err := cryptox.GenerateNumericCode(cryptox.OTPLength)
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	expires := s.now().Add(s.otpTTL())
	if err := s.Store.Users().SetEmailOTP(ctx, u.ID, code, expires); err != nil {
		return fmt.Errorf("store code: %w", err)
	}

	subject := fmt.Sprintf("%s verification code", s.SiteName)
	body := fmt.Sprintf(
		"Your verification code is %s. It expires in %d minutes.\n\nIf you did not request this code, ignore this email.",
		code, int(s.otpTTL().Minutes()),
	)
	if err := s.Mailer.Send(ctx, u.Email, subject, body); err != nil {
		return fmt.Errorf("send code: %w", err)
	}

	slogx.FromContext(ctx).Info("email OTP issued", "user_id", u.ID)
	return nil
}

// SetEmailOTPEnabled toggles the email second factor for a user. Disabling
// it also drops any pending code so a half-finished challenge can't linger.
func (s *TwoFactorService) SetEmailOTPEnabled(ctx context.Context, userID string, enabled bool) error {
	if err := s.Store.Users().SetEmailOTPEnabled(ctx, userID, enabled); err != nil {
		return fmt.Errorf("toggle email factor: %w", err)
	}
	if !enabled {
		if err := s.Store.Users().ClearEmailOTP(ctx, userID); err != nil {
			return fmt.Errorf("clear pending code: %w", err)
		}
	}
	return nil
}

// Verify checks a submitted second-factor code. A nil return means the
// factor passed and the login may proceed to token issuance.
func (s *TwoFactorService) Verify(ctx context.Context, userID, method, code string) error {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Unknown user ids get the same generic failure as bad codes.
			return ErrInvalidCode
		}
		return fmt.Errorf("load user: %w", err)
	}

	switch method {
	case domain.MethodEmail:
		err = s.verifyEmailOTP(ctx, u, code)
	case domain.MethodTOTP:
		err = s.verifyTOTP(ctx, u, code)
	default:
		return ErrMethodUnavailable
	}
	if err != nil {
		return err
	}

	if err := s.Store.Users().UpdateLastLogin(ctx, u.ID, s.now()); err != nil {
		slogx.FromContext(ctx).Warn("failed to stamp last login", "user_id", u.ID, "err", err)
	}
	return nil
}

func (s *TwoFactorService) verifyEmailOTP(ctx context.Context, u domain.User, code string) error {
	if !u.EmailOTPEnabled {
		return ErrMethodUnavailable
	}
	if !u.HasPendingOTP() {
		return ErrNoPendingCode
	}

	if s.now().After(*u.EmailOTPExpires) {
		// Expired state is cleared eagerly so the code can't linger.
		if err := s.Store.Users().ClearEmailOTP(ctx, u.ID); err != nil {
			return fmt.Errorf("clear expired code: %w", err)
		}
		return ErrCodeExpired
	}

	if u.EmailOTPAttempts >= MaxOTPAttempts {
		if err := s.Store.Users().ClearEmailOTP(ctx, u.ID); err != nil {
			return fmt.Errorf("clear exhausted code: %w", err)
		}
		return ErrTooManyAttempts
	}

	if !cryptox.CodesEqual(code, *u.EmailOTPCode) {
		attempts, err := s.Store.Users().IncrementEmailOTPAttempts(ctx, u.ID)
		if err != nil {
			return fmt.Errorf("count attempt: %w", err)
		}
		if attempts >= MaxOTPAttempts {
			if err := s.Store.Users().ClearEmailOTP(ctx, u.ID); err != nil {
				return fmt.Errorf("clear exhausted code: %w", err)
			}
			slogx.FromContext(ctx).Warn("email OTP attempt limit reached", "user_id", u.ID)
			return ErrTooManyAttempts
		}
		return ErrInvalidCode
	}

	// Single use: consumption is conditional on the code still being the
	// pending one, so two verifies racing on the same code cannot both
	// succeed — the loser sees it already consumed.
	if err := s.Store.Users().ConsumeEmailOTP(ctx, u.ID, *u.EmailOTPCode); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoPendingCode
		}
		return fmt.Errorf("consume code: %w", err)
	}
	return nil
}

func (s *TwoFactorService) verifyTOTP(ctx context.Context, u domain.User, code string) error {
	if !u.TOTPEnabled || u.TOTPSecret == nil || *u.TOTPSecret == "" {
		return ErrMethodUnavailable
	}

	matched, ok := matchTOTPStep(code, *u.TOTPSecret, s.now())
	if !ok {
		return ErrInvalidCode
	}

	// A code for a step at or before the last accepted one is a replay,
	// even though it still falls inside the skew window. The snapshot
	// check handles the common case; the conditional advance below is the
	// authoritative gate, so verifies racing on the same step cannot all
	// pass it.
	if matched <= u.TOTPLastStep {
		slogx.FromContext(ctx).Warn("TOTP replay rejected", "user_id", u.ID)
		return ErrInvalidCode
	}

	if err := s.Store.Users().AdvanceTOTPStep(ctx, u.ID, matched); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slogx.FromContext(ctx).Warn("TOTP replay rejected", "user_id", u.ID)
			return ErrInvalidCode
		}
		return fmt.Errorf("record accepted step: %w", err)
	}
	return nil
}

// matchTOTPStep finds which time step within the skew window the submitted
// code belongs to. Returns the step index so callers can enforce
// monotonicity.
func matchTOTPStep(code, secret string, now time.Time) (int64, bool) {
	currentStep := now.Unix() / totpPeriod

	for offset := int64(-totpSkew); offset <= totpSkew; offset++ {
		step := currentStep + offset
		expected, err := totp.GenerateCodeCustom(secret, time.Unix(step*totpPeriod, 0).UTC(), totp.ValidateOpts{
			Period:    totpPeriod,
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		})
		if err != nil {
			return 0, false
		}
		if cryptox.CodesEqual(code, expected) {
			return step, true
		}
	}
	return 0, false
}
