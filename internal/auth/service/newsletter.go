package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/spyberpolymath/folio-auth/internal/auth/domain"
	"github.com/spyberpolymath/folio-auth/internal/auth/store"
	"github.com/spyberpolymath/folio-auth/pkg/idx"
)

// NewsletterService manages mailing list subscriptions. Subscribe and
// Unsubscribe are idempotent so clients can retry freely.
type NewsletterService struct {
	Store store.Store
}

func (s *NewsletterService) Subscribe(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidRequest
	}

	sub := domain.NewsletterSubscriber{
		ID:        idx.New().String(),
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Store.Newsletter().CreateSubscriber(ctx, sub); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil
		}
		return fmt.Errorf("create subscriber: %w", err)
	}
	return nil
}

func (s *NewsletterService) Unsubscribe(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ErrInvalidRequest
	}

	if err := s.Store.Newsletter().DeleteSubscriberByEmail(ctx, email); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("delete subscriber: %w", err)
	}
	return nil
}

func (s *NewsletterService) List(ctx context.Context) ([]domain.NewsletterSubscriber, error) {
	subs, err := s.Store.Newsletter().ListSubscribers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	return subs, nil
}
