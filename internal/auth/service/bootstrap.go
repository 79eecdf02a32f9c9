package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spyberpolymath/folio-auth/internal/auth/domain"
	"github.com/spyberpolymath/folio-auth/internal/auth/store"
	"github.com/spyberpolymath/folio-auth/pkg/cryptox"
	"github.com/spyberpolymath/folio-auth/pkg/idx"
	"github.com/spyberpolymath/folio-auth/pkg/slogx"
)

// BootstrapService seeds the user table so a fresh deployment has a way in.
type BootstrapService struct {
	Store store.Store
}

// EnsureAdmin creates an initial admin account when the user table is empty.
// It is a no-op when credentials are not configured or any user already
// exists, so it is safe to run on every startup.
func (s *BootstrapService) EnsureAdmin(ctx context.Context, email, password, name string) error {
	if email == "" || password == "" {
		return nil
	}

	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("check user table: %w", err)
	}
	if !empty {
		return nil
	}

	if err := s.Seed(ctx, email, password, name, domain.RoleAdmin); err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("bootstrap admin created", "email", email)
	return nil
}

// Seed creates a user with the given role. Used by EnsureAdmin and by the
// seed CLI subcommand.
func (s *BootstrapService) Seed(ctx context.Context, email, password, name, role string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ErrInvalidRequest
	}
	if role == "" {
		role = domain.RoleUser
	}
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidRequest, role)
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	u := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: hash,
		JoinedAt:     now,
		UpdatedAt:    now,
	}
	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return fmt.Errorf("user %s already exists: %w", email, err)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}
