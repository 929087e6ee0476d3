package sync

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"inventory-sync-backend/internal/models"
	"inventory-sync-backend/internal/platforms/shopify"
	"inventory-sync-backend/internal/repository"
	"inventory-sync-backend/internal/services/matching"
	"inventory-sync-backend/internal/services/snapshot"
)

var (
	ErrNotConnected    = errors.New("both Square and Shopify must be connected")
	ErrSyncInProgress  = errors.New("a sync is already running for this user")
	ErrLockUnavailable = errors.New("sync lock service not ready")
)

// ShopifyGateway is the full Shopify surface the service needs: product
// listing for the snapshot and the inventory write for reconciliation.
type ShopifyGateway interface {
	snapshot.ShopifyAPI
	SetInventoryLevel(ctx context.Context, session shopify.Session, inventoryItemID, locationID string, available int) error
}

// SquareFactory builds a Square client from one user's stored credentials.
type SquareFactory func(cfg models.SquareConfig) (snapshot.SquareAPI, error)

// Service owns the sync-run lifecycle: lease, snapshot, match, reconcile,
// terminal write. Manual, automatic and webhook triggers all enter via Run.
type Service struct {
	runs      *repository.SyncRunRepository
	users     *repository.UserRepository
	shopify   ShopifyGateway
	newSquare SquareFactory
	locker    *redislock.Client
	log       *logrus.Logger
}

func NewService(
	runs *repository.SyncRunRepository,
	users *repository.UserRepository,
	shopifyGateway ShopifyGateway,
	newSquare SquareFactory,
	locker *redislock.Client,
	log *logrus.Logger,
) *Service {
	return &Service{
		runs:      runs,
		users:     users,
		shopify:   shopifyGateway,
		newSquare: newSquare,
		locker:    locker,
		log:       log,
	}
}

// Result is the per-run rollup returned to the trigger's caller.
type Result struct {
	ItemsProcessed int      `json:"itemsProcessed"`
	ItemsUpdated   int      `json:"itemsUpdated"`
	Errors         []string `json:"errors"`
}

const leaseTTL = 5 * time.Minute

// Run executes one sync for the user. Preconditions (both platforms
// connected, lease obtainable) fail before any SyncRun row exists. After the
// row is created there is exactly one terminal write: completed, or error
// with the fatal cause re-raised to the caller.
func (s *Service) Run(ctx context.Context, userID uuid.UUID, trigger string) (*Result, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if !user.BothConnected() {
		return nil, ErrNotConnected
	}

	if s.locker == nil {
		return nil, ErrLockUnavailable
	}
	lock, err := s.locker.Obtain(ctx, "sync:lease:"+userID.String(), leaseTTL, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrSyncInProgress
	}
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = lock.Release(context.Background())
	}()

	run := &models.SyncRun{
		ID:        uuid.New(),
		UserID:    userID,
		Trigger:   trigger,
		Status:    models.RunStatusRunning,
		StartedAt: time.Now(),
		Errors:    models.EncodeErrors(nil),
	}
	if err := s.runs.Create(run); err != nil {
		return nil, err
	}

	result, err := s.performSync(ctx, user)
	if err != nil {
		if ferr := s.runs.MarkFailed(run.ID, time.Now(), err.Error()); ferr != nil {
			s.log.WithFields(logrus.Fields{
				"runId":  run.ID,
				"userId": userID,
			}).WithError(ferr).Error("failed to record sync run error state")
		}
		return nil, err
	}

	completedAt := time.Now()
	if err := s.runs.MarkCompleted(run.ID, completedAt, result.ItemsProcessed, result.ItemsUpdated, result.Errors); err != nil {
		return nil, err
	}
	if err := s.users.TouchLastSync(userID, completedAt); err != nil {
		s.log.WithField("userId", userID).WithError(err).Warn("failed to update last sync time")
	}

	s.log.WithFields(logrus.Fields{
		"runId":     run.ID,
		"userId":    userID,
		"trigger":   trigger,
		"processed": result.ItemsProcessed,
		"updated":   result.ItemsUpdated,
		"errors":    len(result.Errors),
	}).Info("sync run completed")
	return result, nil
}

// performSync builds both snapshots, matches them and reconciles the pairs.
// Snapshot failures are fatal; reconciliation failures are per-item.
func (s *Service) performSync(ctx context.Context, user *models.User) (*Result, error) {
	squareAPI, err := s.newSquare(user.SquareConfig)
	if err != nil {
		return nil, err
	}
	session := shopify.NewSession(user.ShopifyConfig.Shop, user.ShopifyConfig.AccessToken)
	builder := snapshot.NewBuilder(squareAPI, s.shopify)

	squareRecords, err := builder.SquareSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	shopifyRecords, err := builder.ShopifySnapshot(ctx, session)
	if err != nil {
		return nil, err
	}

	pairs, duplicates := matching.Match(squareRecords, shopifyRecords)
	for _, key := range duplicates {
		s.log.WithFields(logrus.Fields{
			"userId":      user.ID,
			"identityKey": key,
		}).Warn("duplicate square identity key, keeping last variation")
	}

	return s.reconcile(ctx, session, user.ShopifyConfig.LocationID, pairs), nil
}

// reconcile pushes the Square quantity to Shopify for every matched pair.
// Writes are unconditional. Each pair counts as processed exactly once; a
// failed write is recorded and the pass moves on to the next pair.
func (s *Service) reconcile(ctx context.Context, session shopify.Session, locationID string, pairs []matching.MatchedPair) *Result {
	result := &Result{Errors: []string{}}

	for _, pair := range pairs {
		result.ItemsProcessed++

		err := s.shopify.SetInventoryLevel(ctx, session, pair.Shopify.PlatformItemID, locationID, pair.Square.Quantity)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Failed to update %s: %v", pair.IdentityKey, err))
			s.log.WithField("identityKey", pair.IdentityKey).WithError(err).Error("inventory update failed")
			continue
		}

		result.ItemsUpdated++
		s.log.WithFields(logrus.Fields{
			"identityKey": pair.IdentityKey,
			"quantity":    pair.Square.Quantity,
		}).Info("updated inventory")
	}
	return result
}

// Status is the dashboard payload for one user.
type Status struct {
	IsConnected  bool             `json:"isConnected"`
	LastSync     *time.Time       `json:"lastSync"`
	AutoSync     bool             `json:"autoSync"`
	SyncInterval int              `json:"syncInterval"`
	Last24hSyncs int64            `json:"last24hSyncs"`
	Errors       int64            `json:"errors"`
	RecentLogs   []models.SyncRun `json:"recentLogs"`
}

func (s *Service) GetStatus(userID uuid.UUID) (*Status, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, err
	}

	recent, err := s.runs.RecentByUser(userID, 10)
	if err != nil {
		return nil, err
	}

	since := time.Now().Add(-24 * time.Hour)
	last24h, err := s.runs.CountByUserSince(userID, since)
	if err != nil {
		return nil, err
	}
	errorCount, err := s.runs.CountErrorsByUserSince(userID, since)
	if err != nil {
		return nil, err
	}

	return &Status{
		IsConnected:  user.BothConnected(),
		LastSync:     user.SyncSettings.LastSyncAt,
		AutoSync:     user.SyncSettings.AutoSync,
		SyncInterval: user.SyncSettings.SyncInterval,
		Last24hSyncs: last24h,
		Errors:       errorCount,
		RecentLogs:   recent,
	}, nil
}

type Pagination struct {
	Current    int  `json:"current"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

type HistoryPage struct {
	Logs       []models.SyncRun `json:"logs"`
	Pagination Pagination       `json:"pagination"`
}

func (s *Service) GetHistory(userID uuid.UUID, page, limit int) (*HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	offset := (page - 1) * limit

	logs, err := s.runs.ListByUser(userID, offset, limit)
	if err != nil {
		return nil, err
	}
	total, err := s.runs.CountByUser(userID)
	if err != nil {
		return nil, err
	}

	return &HistoryPage{
		Logs: logs,
		Pagination: Pagination{
			Current:    page,
			TotalPages: int(math.Ceil(float64(total) / float64(limit))),
			HasNext:    int64(offset+len(logs)) < total,
			HasPrev:    page > 1,
		},
	}, nil
}

// SettingsInput carries partial settings updates; nil fields are untouched.
type SettingsInput struct {
	AutoSync     *bool `json:"autoSync"`
	SyncInterval *int  `json:"syncInterval"`
}

// UpdateSettings applies the input. The interval is clamped up to the
// 60-second floor, never rejected.
func (s *Service) UpdateSettings(userID uuid.UUID, input SettingsInput) (*models.SyncSettings, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, err
	}

	autoSync := user.SyncSettings.AutoSync
	interval := user.SyncSettings.SyncInterval
	if input.AutoSync != nil {
		autoSync = *input.AutoSync
	}
	if input.SyncInterval != nil {
		interval = clampSyncInterval(*input.SyncInterval)
	}

	if err := s.users.UpdateSyncSettings(userID, autoSync, interval); err != nil {
		return nil, err
	}
	return &models.SyncSettings{
		AutoSync:     autoSync,
		SyncInterval: interval,
		LastSyncAt:   user.SyncSettings.LastSyncAt,
	}, nil
}

func clampSyncInterval(v int) int {
	if v < models.MinSyncInterval {
		return models.MinSyncInterval
	}
	return v
}
