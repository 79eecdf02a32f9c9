package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spyberpolymath/folio-auth/internal/auth/domain"
	"github.com/spyberpolymath/folio-auth/internal/auth/store"
	"github.com/spyberpolymath/folio-auth/internal/auth/store/drivers/sqlite"
	"github.com/spyberpolymath/folio-auth/pkg/cryptox"
	"github.com/spyberpolymath/folio-auth/pkg/idx"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	cryptox.SetPepperPath(t.TempDir() + "/pepper")

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

type userOpts struct {
	email    string
	password string
	role     string
	emailOTP bool
	totpOn   bool
	totpKey  string
	totpStep int64
}

func createTestUser(t *testing.T, st store.Store, opts userOpts) domain.User {
	t.Helper()

	if opts.email == "" {
		opts.email = "user@example.com"
	}
	if opts.password == "" {
		opts.password = "correct horse battery staple"
	}
	if opts.role == "" {
		opts.role = domain.RoleUser
	}

	hash, err := cryptox.HashPassword(opts.password)
	require.NoError(t, err)

	now := time.Now().UTC()
	u := domain.User{
		ID:              idx.New().String(),
		Email:           opts.email,
		Name:            "Test User",
		Role:            opts.role,
		PasswordHash:    hash,
		EmailOTPEnabled: opts.emailOTP,
		JoinedAt:        now,
		UpdatedAt:       now,
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), u))

	if opts.totpOn {
		require.NoError(t, st.Users().EnableTOTP(context.Background(), u.ID, opts.totpKey))
		u.TOTPEnabled = true
		u.TOTPSecret = &opts.totpKey
	}
	if opts.totpStep != 0 {
		require.NoError(t, st.Users().SetTOTPLastStep(context.Background(), u.ID, opts.totpStep))
		u.TOTPLastStep = opts.totpStep
	}
	return u
}

// captureSender records outbound mail so tests can read the issued code.
type captureSender struct {
	mu    sync.Mutex
	sends []capturedMail
}

type capturedMail struct {
	To      string
	Subject string
	Body    string
}

func (c *captureSender) Send(ctx context.Context, to, subject, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sends = append(c.sends, capturedMail{To: to, Subject: subject, Body: body})
	return nil
}

func (c *captureSender) last(t *testing.T) capturedMail {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.sends)
	return c.sends[len(c.sends)-1]
}
