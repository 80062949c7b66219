package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/auth/store"
	"github.com/aussiebroadwan/gatehouse/pkg/jwtx"
)

// HousekeepingService periodically deletes expired sessions and retired
// signing keys past their grace period, and runs scheduled key rotation.
type HousekeepingService struct {
	Store      store.Store
	KeyManager *jwtx.KeyManager
	Rotation   *KeyRotationService
	Logger     *slog.Logger
	Interval   time.Duration
	Now        func() time.Time

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(
	store store.Store,
	km *jwtx.KeyManager,
	rotation *KeyRotationService,
	logger *slog.Logger,
	interval time.Duration,
) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:      store,
		KeyManager: km,
		Rotation:   rotation,
		Logger:     logger,
		Interval:   interval,
		Now:        time.Now,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start begins the background worker that periodically runs cleanup.
// Call Stop() to gracefully shutdown the worker.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping_started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker.
// Blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping_stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.RunOnce(context.Background())

	for {
		select {
		case <-ticker.C:
			s.RunOnce(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// RunOnce performs one cleanup pass. Each step is independent; a failure in
// one does not stop the others.
func (s *HousekeepingService) RunOnce(ctx context.Context) {
	now := s.Now().UTC()

	if n, err := s.Store.Sessions().DeleteExpiredSessions(ctx, now); err != nil {
		s.Logger.Error("housekeeping_sessions_failed", "error", err)
	} else if n > 0 {
		s.Logger.Info("housekeeping_sessions_deleted", "count", n)
	}

	if kids, err := s.Store.SigningKeys().DeleteExpiredSigningKeys(ctx, now); err != nil {
		s.Logger.Error("housekeeping_keys_failed", "error", err)
	} else if len(kids) > 0 {
		if s.KeyManager != nil {
			s.KeyManager.Forget(kids...)
		}
		s.Logger.Info("housekeeping_keys_deleted", "kids", kids)
	}

	if _, err := s.Rotation.RotateIfDue(ctx, now); err != nil {
		s.Logger.Error("housekeeping_rotation_failed", "error", err)
	}
}
