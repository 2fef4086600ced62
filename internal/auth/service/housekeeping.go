package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/hollandstar/sportteams/internal/auth/store"
)

// Sweeper drops expired entries from an in-process cache.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// HousekeepingService periodically removes expired refresh token rows and
// persisted security contexts, and sweeps the in-memory kv store when one
// is in use.
type HousekeepingService struct {
	Store    store.Store
	Sweeper  Sweeper // nil when the kv store expires entries itself
	Logger   *slog.Logger
	Interval time.Duration
	Now      func() time.Time

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(s store.Store, sweeper Sweeper, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    s,
		Sweeper:  sweeper,
		Logger:   logger,
		Interval: interval,
		Now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker that periodically runs cleanup.
// Call Stop() to gracefully shutdown the worker.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker.
// Blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// cleanup performs one pass. Each step is independent; a failure in one
// does not stop the others.
func (s *HousekeepingService) cleanup(ctx context.Context) {
	now := s.Now()
	s.Logger.Debug("starting housekeeping cleanup")

	tokens, err := s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx, now)
	if err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", "error", err)
	}

	contexts, err := s.Store.SecurityContexts().DeleteExpiredSecurityContexts(ctx, now)
	if err != nil {
		s.Logger.Error("failed to delete expired security contexts", "error", err)
	}

	var swept int
	if s.Sweeper != nil {
		if swept, err = s.Sweeper.Sweep(ctx); err != nil {
			s.Logger.Error("failed to sweep kv store", "error", err)
		}
	}

	s.Logger.Info("housekeeping cleanup completed",
		"refresh_tokens", tokens,
		"security_contexts", contexts,
		"kv_entries", swept,
	)
}
