package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/spyberpolymath/folio-auth/internal/auth/domain"
	"github.com/spyberpolymath/folio-auth/internal/auth/store"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, email, name, role, password_hash,
	email_otp_enabled, totp_enabled, totp_secret,
	email_otp_code, email_otp_expires, email_otp_attempts, totp_last_step,
	joined_at, last_login_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (domain.User, error) {
	var (
		u          domain.User
		totpSecret sql.NullString
		otpCode    sql.NullString
		otpExpires sql.NullTime
		lastLogin  sql.NullTime
	)

	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash,
		&u.EmailOTPEnabled, &u.TOTPEnabled, &totpSecret,
		&otpCode, &otpExpires, &u.EmailOTPAttempts, &u.TOTPLastStep,
		&u.JoinedAt, &lastLogin, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}

	u.TOTPSecret = mapNullStringPtr(totpSecret)
	u.EmailOTPCode = mapNullStringPtr(otpCode)
	u.EmailOTPExpires = mapNullTimePtr(otpExpires)
	u.LastLoginAt = mapNullTimePtr(lastLogin)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? COLLATE NOCASE`, email)

	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now().UTC()
	joined := u.JoinedAt
	if joined.IsZero() {
		joined = now
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (
			id, email, name, role, password_hash,
			email_otp_enabled, totp_enabled, totp_secret,
			joined_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.Role, u.PasswordHash,
		u.EmailOTPEnabled, u.TOTPEnabled, mapOptionalString(u.TOTPSecret),
		joined, now,
	)
	return mapConflict(err)
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY joined_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	return r.exec(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), userID)
}

func (r *usersRepo) SetEmailOTP(ctx context.Context, userID string, code string, expires time.Time) error {
	return r.exec(ctx, `
		UPDATE users
		SET email_otp_code = ?, email_otp_expires = ?, email_otp_attempts = 0, updated_at = ?
		WHERE id = ?`,
		code, expires.UTC(), time.Now().UTC(), userID)
}

func (r *usersRepo) ClearEmailOTP(ctx context.Context, userID string) error {
	return r.exec(ctx, `
		UPDATE users
		SET email_otp_code = NULL, email_otp_expires = NULL, email_otp_attempts = 0, updated_at = ?
		WHERE id = ?`,
		time.Now().UTC(), userID)
}

func (r *usersRepo) ConsumeEmailOTP(ctx context.Context, userID string, code string) error {
	// The WHERE clause is the single-use gate: once any verify clears the
	// code, concurrent verifies match zero rows.
	return r.exec(ctx, `
		UPDATE users
		SET email_otp_code = NULL, email_otp_expires = NULL, email_otp_attempts = 0, updated_at = ?
		WHERE id = ? AND email_otp_code = ?`,
		time.Now().UTC(), userID, code)
}

func (r *usersRepo) IncrementEmailOTPAttempts(ctx context.Context, userID string) (int, error) {
	if err := r.exec(ctx, `
		UPDATE users
		SET email_otp_attempts = email_otp_attempts + 1, updated_at = ?
		WHERE id = ?`,
		time.Now().UTC(), userID); err != nil {
		return 0, err
	}

	var attempts int
	err := r.db.QueryRowContext(ctx,
		`SELECT email_otp_attempts FROM users WHERE id = ?`, userID).Scan(&attempts)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return attempts, nil
}

func (r *usersRepo) SetTOTPLastStep(ctx context.Context, userID string, step int64) error {
	return r.exec(ctx,
		`UPDATE users SET totp_last_step = ?, updated_at = ? WHERE id = ?`,
		step, time.Now().UTC(), userID)
}

func (r *usersRepo) AdvanceTOTPStep(ctx context.Context, userID string, step int64) error {
	// Strictly-greater guard: the watermark only moves forward, and a step
	// that lost the race matches zero rows.
	return r.exec(ctx, `
		UPDATE users
		SET totp_last_step = ?, updated_at = ?
		WHERE id = ? AND totp_last_step < ?`,
		step, time.Now().UTC(), userID, step)
}

func (r *usersRepo) EnableTOTP(ctx context.Context, userID string, secret string) error {
	return r.exec(ctx, `
		UPDATE users
		SET totp_enabled = 1, totp_secret = ?, updated_at = ?
		WHERE id = ?`,
		secret, time.Now().UTC(), userID)
}

func (r *usersRepo) DisableTOTP(ctx context.Context, userID string) error {
	return r.exec(ctx, `
		UPDATE users
		SET totp_enabled = 0, totp_secret = NULL, totp_last_step = 0, updated_at = ?
		WHERE id = ?`,
		time.Now().UTC(), userID)
}

func (r *usersRepo) SetEmailOTPEnabled(ctx context.Context, userID string, enabled bool) error {
	return r.exec(ctx,
		`UPDATE users SET email_otp_enabled = ?, updated_at = ? WHERE id = ?`,
		enabled, time.Now().UTC(), userID)
}

func (r *usersRepo) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	return r.exec(ctx,
		`UPDATE users SET last_login_at = ?, updated_at = ? WHERE id = ?`,
		at.UTC(), time.Now().UTC(), userID)
}

func (r *usersRepo) DeleteExpiredEmailOTPs(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET email_otp_code = NULL, email_otp_expires = NULL, email_otp_attempts = 0
		WHERE email_otp_expires IS NOT NULL AND email_otp_expires < ?`,
		now.UTC())
	return err
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}

// exec runs an update that must touch exactly one row, mapping a zero-row
// result to ErrNotFound.
func (r *usersRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
