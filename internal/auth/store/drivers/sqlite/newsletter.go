package sqlite

import (
	"context"
	"time"

	"github.com/spyberpolymath/folio-auth/internal/auth/domain"
	"github.com/spyberpolymath/folio-auth/internal/auth/store"
)

type newsletterRepo struct {
	db dbtx
}

func (r *newsletterRepo) CreateSubscriber(ctx context.Context, s domain.NewsletterSubscriber) error {
	created := s.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO newsletter_subscribers (id, email, created_at)
		VALUES (?, ?, ?)`,
		s.ID, s.Email, created,
	)
	return mapConflict(err)
}

func (r *newsletterRepo) DeleteSubscriberByEmail(ctx context.Context, email string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM newsletter_subscribers WHERE email = ? COLLATE NOCASE`, email)
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

func (r *newsletterRepo) ListSubscribers(ctx context.Context) ([]domain.NewsletterSubscriber, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email, created_at
		FROM newsletter_subscribers
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []domain.NewsletterSubscriber
	for rows.Next() {
		var s domain.NewsletterSubscriber
		if err := rows.Scan(&s.ID, &s.Email, &s.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}
