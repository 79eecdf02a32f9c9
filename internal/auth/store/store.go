package store

import (
	"context"
	"errors"
	"time"

	"github.com/spyberpolymath/folio-auth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement this.
// Sub-repositories keep concerns tidy and testable.
type Store interface {
	Users() Users
	LoginAttempts() LoginAttempts
	Newsletter() Newsletter

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, rolling back when fn returns
	// an error and committing otherwise. Prefer this over Tx directly.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. Same repos plus Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail looks a user up by email, case-insensitively. Used
	// during password verification.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// ListUsers returns all users ordered by join date (newest first).
	ListUsers(ctx context.Context) ([]domain.User, error)

	// UpdatePasswordHash sets the password hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// SetEmailOTP stores a pending one-time code and its expiry and resets
	// the attempt counter. Partial update: no other columns are touched.
	// Overwrites any previous pending code.
	SetEmailOTP(ctx context.Context, userID string, code string, expires time.Time) error

	// ClearEmailOTP removes the pending code, expiry and attempt counter.
	ClearEmailOTP(ctx context.Context, userID string) error

	// ConsumeEmailOTP atomically clears the pending code, but only if the
	// stored code still equals the one given. ErrNotFound means the code
	// was already consumed, replaced, or never pending — racing verifies
	// cannot both consume the same code.
	ConsumeEmailOTP(ctx context.Context, userID string, code string) error

	// IncrementEmailOTPAttempts bumps the failed-verify counter for the
	// pending code and returns the new count.
	IncrementEmailOTPAttempts(ctx context.Context, userID string) (int, error)

	// SetTOTPLastStep records the most recent accepted TOTP time step.
	SetTOTPLastStep(ctx context.Context, userID string, step int64) error

	// AdvanceTOTPStep moves the accepted-step watermark forward, but only
	// if step is strictly greater than the stored value. ErrNotFound means
	// the watermark already reached this step — the code is a replay.
	AdvanceTOTPStep(ctx context.Context, userID string, step int64) error

	// EnableTOTP provisions a TOTP secret and flips the flag on together,
	// keeping the secret-iff-enabled invariant in one statement.
	EnableTOTP(ctx context.Context, userID string, secret string) error

	// DisableTOTP clears the secret, flag, and replay step.
	DisableTOTP(ctx context.Context, userID string) error

	// SetEmailOTPEnabled toggles the email second factor.
	SetEmailOTPEnabled(ctx context.Context, userID string, enabled bool) error

	// UpdateLastLogin stamps a successful login.
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error

	// DeleteExpiredEmailOTPs clears pending codes past their expiry
	// (housekeeping).
	DeleteExpiredEmailOTPs(ctx context.Context, now time.Time) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

type LoginAttempts interface {
	// CreateLoginAttempt appends one login-history row.
	CreateLoginAttempt(ctx context.Context, a domain.LoginAttempt) error

	// ListLoginAttemptsByUser returns recent attempts, newest first.
	ListLoginAttemptsByUser(ctx context.Context, userID string, limit int) ([]domain.LoginAttempt, error)

	// DeleteLoginAttemptsBefore prunes history older than cutoff
	// (housekeeping).
	DeleteLoginAttemptsBefore(ctx context.Context, cutoff time.Time) error
}

type Newsletter interface {
	// CreateSubscriber adds an email to the list. ErrAlreadyExists when the
	// email is already subscribed.
	CreateSubscriber(ctx context.Context, s domain.NewsletterSubscriber) error

	// DeleteSubscriberByEmail removes a subscription.
	DeleteSubscriberByEmail(ctx context.Context, email string) error

	// ListSubscribers returns all subscribers, newest first.
	ListSubscribers(ctx context.Context) ([]domain.NewsletterSubscriber, error)
}
