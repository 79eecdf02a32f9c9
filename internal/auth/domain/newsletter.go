package domain

import "time"

// NewsletterSubscriber is one mailing-list entry, keyed by email.
type NewsletterSubscriber struct {
	ID        string
	Email     string
	CreatedAt time.Time
}
