package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"inventory-sync-backend/internal/models"
	"inventory-sync-backend/internal/repository"
	syncsvc "inventory-sync-backend/internal/services/sync"
)

// Scheduler owns the automatic trigger: once a minute it looks for users
// whose auto-sync interval has elapsed and starts a run through the same
// entry point manual and webhook triggers use, so the per-user lease applies.
type Scheduler struct {
	users    *repository.UserRepository
	service  *syncsvc.Service
	log      *logrus.Logger
	interval time.Duration
}

func New(users *repository.UserRepository, service *syncsvc.Service, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		users:    users,
		service:  service,
		log:      log,
		interval: time.Minute,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	users, err := s.users.AutoSyncCandidates()
	if err != nil {
		s.log.WithError(err).Error("failed to load auto-sync candidates")
		return
	}

	now := time.Now()
	for _, user := range users {
		if !due(user.SyncSettings, now) {
			continue
		}
		if _, err := s.service.Run(ctx, user.ID, models.TriggerAutomatic); err != nil {
			if errors.Is(err, syncsvc.ErrSyncInProgress) {
				continue
			}
			s.log.WithField("userId", user.ID).WithError(err).Error("automatic sync failed")
		}
	}
}

func due(settings models.SyncSettings, now time.Time) bool {
	if settings.LastSyncAt == nil {
		return true
	}
	return now.Sub(*settings.LastSyncAt) >= time.Duration(settings.SyncInterval)*time.Second
}
