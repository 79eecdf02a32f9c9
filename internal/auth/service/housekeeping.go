package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/spyberpolymath/folio-auth/internal/auth/store"
)

const (
	// DefaultHousekeepingInterval is how often expired state is swept.
	DefaultHousekeepingInterval = time.Hour

	// loginAttemptRetention is how long login history is kept.
	loginAttemptRetention = 90 * 24 * time.Hour
)

// HousekeepingService periodically removes expired email codes and old
// login attempts.
type HousekeepingService struct {
	store    store.Store
	logger   *slog.Logger
	interval time.Duration

	stop chan struct{}
	done chan struct{}
}

func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = DefaultHousekeepingInterval
	}
	return &HousekeepingService{
		store:    st,
		logger:   logger,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop. One sweep runs immediately so restarts
// don't leave stale state around for a full interval.
func (s *HousekeepingService) Start() {
	go func() {
		defer close(s.done)

		s.sweep()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop halts the loop and waits for any in-flight sweep to finish.
func (s *HousekeepingService) Stop() {
	close(s.stop)
	<-s.done
}

func (s *HousekeepingService) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now().UTC()

	if err := s.store.Users().DeleteExpiredEmailOTPs(ctx, now); err != nil {
		s.logger.Warn("housekeeping: expired OTP sweep failed", "err", err)
	}
	if err := s.store.LoginAttempts().DeleteLoginAttemptsBefore(ctx, now.Add(-loginAttemptRetention)); err != nil {
		s.logger.Warn("housekeeping: login attempt sweep failed", "err", err)
	}
}
