package domain

import "time"

// Roles a user record can carry.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           string
	Email        string // unique, stored lowercase
	Name         string
	Role         string // "user" or "admin"
	PasswordHash string // argon2id encoded, never serialized to clients

	// Second-factor configuration.
	EmailOTPEnabled bool
	TOTPEnabled     bool
	TOTPSecret      *string // base32 shared secret, present iff TOTPEnabled

	// Transient email-OTP state. Code and expiry are either both set or
	// both absent; the attempt counter belongs to the pending code.
	EmailOTPCode     *string
	EmailOTPExpires  *time.Time
	EmailOTPAttempts int

	// Last accepted TOTP time step, zero when none accepted yet. Codes for
	// steps at or before this value are replays.
	TOTPLastStep int64

	JoinedAt    time.Time
	LastLoginAt *time.Time
	UpdatedAt   time.Time
}

// HasSecondFactor reports whether any second factor is configured.
func (u User) HasSecondFactor() bool {
	return u.EmailOTPEnabled || u.TOTPEnabled
}

// HasPendingOTP reports whether an email one-time code is outstanding.
func (u User) HasPendingOTP() bool {
	return u.EmailOTPCode != nil && u.EmailOTPExpires != nil
}
