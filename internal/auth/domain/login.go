package domain

import "time"

// Second-factor method names as they appear on the wire.
const (
	MethodEmail = "email"
	MethodTOTP  = "totp"
)

// TwoFactorMethods lists which second factors a user can complete.
type TwoFactorMethods struct {
	Email bool `json:"email"`
	TOTP  bool `json:"totp"`
}

// LoginResult is the outcome of a password check. Exactly one of
// Authenticated and TwoFactorRequired is true on success paths; failures are
// errors, not results.
type LoginResult struct {
	Authenticated     bool
	TwoFactorRequired bool

	UserID string
	Role   string

	// Populated when TwoFactorRequired.
	Methods         TwoFactorMethods
	PreferredMethod string
}

// SessionToken is a freshly minted bearer credential. It is never persisted.
type SessionToken struct {
	Token     string `json:"token"`
	Role      string `json:"role"`
	ExpiresIn int64  `json:"expires_in"` // seconds until expiry
}

// LoginAttempt is one append-only login-history row.
type LoginAttempt struct {
	ID        string
	UserID    string
	IP        string
	UserAgent string
	Success   bool
	CreatedAt time.Time
}
