package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spyberpolymath/folio-auth/internal/auth/domain"
	"github.com/spyberpolymath/folio-auth/internal/auth/store"
	"github.com/spyberpolymath/folio-auth/pkg/idx"
)

func newStore(t *testing.T) *Store {
	t.Helper()

	st, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func insertUser(t *testing.T, st store.Store, email string) domain.User {
	t.Helper()

	now := time.Now().UTC()
	u := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		Name:         "Someone",
		Role:         domain.RoleUser,
		PasswordHash: "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		JoinedAt:     now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), u))
	return u
}

func TestUsers_LookupByEmailCaseInsensitive(t *testing.T) {
	st := newStore(t)
	u := insertUser(t, st, "casey@example.com")

	got, err := st.Users().GetUserByEmail(context.Background(), "CASEY@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	_, err = st.Users().GetUserByEmail(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUsers_DuplicateEmailConflicts(t *testing.T) {
	st := newStore(t)
	insertUser(t, st, "casey@example.com")

	dupe := domain.User{
		ID:           idx.New().String(),
		Email:        "Casey@Example.com",
		Role:         domain.RoleUser,
		PasswordHash: "x",
		JoinedAt:     time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	err := st.Users().CreateUser(context.Background(), dupe)
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestUsers_EmailOTPLifecycle(t *testing.T) {
	st := newStore(t)
	u := insertUser(t, st, "casey@example.com")
	ctx := context.Background()

	expires := time.Now().UTC().Add(5 * time.Minute)
	require.NoError(t, st.Users().SetEmailOTP(ctx, u.ID, "123456", expires))

	got, err := st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EmailOTPCode)
	require.Equal(t, "123456", *got.EmailOTPCode)
	require.Zero(t, got.EmailOTPAttempts)

	n, err := st.Users().IncrementEmailOTPAttempts(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	n, err = st.Users().IncrementEmailOTPAttempts(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	// issuing a replacement code resets the attempt counter
	require.NoError(t, st.Users().SetEmailOTP(ctx, u.ID, "654321", expires))
	got, err = st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "654321", *got.EmailOTPCode)
	require.Zero(t, got.EmailOTPAttempts)

	require.NoError(t, st.Users().ClearEmailOTP(ctx, u.ID))
	got, err = st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Nil(t, got.EmailOTPCode)
	require.Nil(t, got.EmailOTPExpires)
	require.Zero(t, got.EmailOTPAttempts)
}

func TestUsers_ConsumeEmailOTP(t *testing.T) {
	st := newStore(t)
	u := insertUser(t, st, "casey@example.com")
	ctx := context.Background()

	expires := time.Now().UTC().Add(5 * time.Minute)
	require.NoError(t, st.Users().SetEmailOTP(ctx, u.ID, "123456", expires))

	// wrong code leaves the pending state untouched
	err := st.Users().ConsumeEmailOTP(ctx, u.ID, "654321")
	require.ErrorIs(t, err, store.ErrNotFound)
	got, err := st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EmailOTPCode)

	// matching code consumes exactly once
	require.NoError(t, st.Users().ConsumeEmailOTP(ctx, u.ID, "123456"))
	err = st.Users().ConsumeEmailOTP(ctx, u.ID, "123456")
	require.ErrorIs(t, err, store.ErrNotFound)

	got, err = st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Nil(t, got.EmailOTPCode)
	require.Nil(t, got.EmailOTPExpires)
	require.Zero(t, got.EmailOTPAttempts)
}

func TestUsers_AdvanceTOTPStep(t *testing.T) {
	st := newStore(t)
	u := insertUser(t, st, "casey@example.com")
	ctx := context.Background()

	require.NoError(t, st.Users().AdvanceTOTPStep(ctx, u.ID, 100))

	// the watermark only moves forward
	require.ErrorIs(t, st.Users().AdvanceTOTPStep(ctx, u.ID, 100), store.ErrNotFound)
	require.ErrorIs(t, st.Users().AdvanceTOTPStep(ctx, u.ID, 99), store.ErrNotFound)
	require.NoError(t, st.Users().AdvanceTOTPStep(ctx, u.ID, 101))

	got, err := st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.EqualValues(t, 101, got.TOTPLastStep)
}

func TestUsers_DeleteExpiredEmailOTPs(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	stale := insertUser(t, st, "stale@example.com")
	fresh := insertUser(t, st, "fresh@example.com")

	now := time.Now().UTC()
	require.NoError(t, st.Users().SetEmailOTP(ctx, stale.ID, "111111", now.Add(-time.Minute)))
	require.NoError(t, st.Users().SetEmailOTP(ctx, fresh.ID, "222222", now.Add(time.Minute)))

	require.NoError(t, st.Users().DeleteExpiredEmailOTPs(ctx, now))

	got, err := st.Users().GetUserByID(ctx, stale.ID)
	require.NoError(t, err)
	require.Nil(t, got.EmailOTPCode)

	got, err = st.Users().GetUserByID(ctx, fresh.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EmailOTPCode)
}

func TestUsers_TOTPState(t *testing.T) {
	st := newStore(t)
	u := insertUser(t, st, "casey@example.com")
	ctx := context.Background()

	require.NoError(t, st.Users().EnableTOTP(ctx, u.ID, "JBSWY3DPEHPK3PXP"))
	require.NoError(t, st.Users().SetTOTPLastStep(ctx, u.ID, 1234567))

	got, err := st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.TOTPEnabled)
	require.NotNil(t, got.TOTPSecret)
	require.EqualValues(t, 1234567, got.TOTPLastStep)

	require.NoError(t, st.Users().DisableTOTP(ctx, u.ID))
	got, err = st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, got.TOTPEnabled)
	require.Nil(t, got.TOTPSecret)
}

func TestUsers_UpdatesMissingUser(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	ghost := idx.New().String()

	require.ErrorIs(t, st.Users().SetTOTPLastStep(ctx, ghost, 1), store.ErrNotFound)
	require.ErrorIs(t, st.Users().ClearEmailOTP(ctx, ghost), store.ErrNotFound)
	require.ErrorIs(t, st.Users().UpdateLastLogin(ctx, ghost, time.Now().UTC()), store.ErrNotFound)
}

func TestLoginAttempts_Retention(t *testing.T) {
	st := newStore(t)
	u := insertUser(t, st, "casey@example.com")
	ctx := context.Background()

	old := domain.LoginAttempt{
		ID:        idx.New().String(),
		UserID:    u.ID,
		IP:        "10.0.0.1",
		Success:   true,
		CreatedAt: time.Now().UTC().Add(-100 * 24 * time.Hour),
	}
	recent := domain.LoginAttempt{
		ID:        idx.New().String(),
		UserID:    u.ID,
		IP:        "10.0.0.2",
		Success:   false,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, st.LoginAttempts().CreateLoginAttempt(ctx, old))
	require.NoError(t, st.LoginAttempts().CreateLoginAttempt(ctx, recent))

	cutoff := time.Now().UTC().Add(-90 * 24 * time.Hour)
	require.NoError(t, st.LoginAttempts().DeleteLoginAttemptsBefore(ctx, cutoff))

	attempts, err := st.LoginAttempts().ListLoginAttemptsByUser(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	require.Equal(t, recent.ID, attempts[0].ID)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	wantErr := store.ErrAlreadyExists
	err := st.WithTx(ctx, func(tx store.Tx) error {
		u := domain.User{
			ID:           idx.New().String(),
			Email:        "tx@example.com",
			Role:         domain.RoleUser,
			PasswordHash: "x",
			JoinedAt:     time.Now().UTC(),
			UpdatedAt:    time.Now().UTC(),
		}
		if err := tx.Users().CreateUser(ctx, u); err != nil {
			return err
		}
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)

	_, err = st.Users().GetUserByEmail(ctx, "tx@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	err := st.WithTx(ctx, func(tx store.Tx) error {
		u := domain.User{
			ID:           idx.New().String(),
			Email:        "tx@example.com",
			Role:         domain.RoleUser,
			PasswordHash: "x",
			JoinedAt:     time.Now().UTC(),
			UpdatedAt:    time.Now().UTC(),
		}
		return tx.Users().CreateUser(ctx, u)
	})
	require.NoError(t, err)

	_, err = st.Users().GetUserByEmail(ctx, "tx@example.com")
	require.NoError(t, err)
}
