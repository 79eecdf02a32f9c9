package mail

import (
	"context"
	"log/slog"
)

// LogSender logs instead of delivering. Used in dev and whenever no SMTP
// relay is configured, so the service still boots without mail credentials.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("outbound email (log sender)",
		"to", to,
		"subject", subject,
		"body_len", len(body),
	)
	return nil
}
