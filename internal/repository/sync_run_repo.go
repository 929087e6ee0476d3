package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"inventory-sync-backend/internal/models"
)

type SyncRunRepository struct {
	db *gorm.DB
}

func NewSyncRunRepository(db *gorm.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

func (r *SyncRunRepository) Create(run *models.SyncRun) error {
	return r.db.Create(run).Error
}

// MarkCompleted writes the single terminal state for a successful run.
// Per-item errors do not make a run fail; they ride along in the JSON column.
func (r *SyncRunRepository) MarkCompleted(id uuid.UUID, completedAt time.Time, processed, updated int, errs []string) error {
	return r.db.Model(&models.SyncRun{}).
		Where("id = ? AND status = ?", id, models.RunStatusRunning).
		Updates(map[string]interface{}{
			"status":          models.RunStatusCompleted,
			"completed_at":    completedAt,
			"items_processed": processed,
			"items_updated":   updated,
			"errors":          models.EncodeErrors(errs),
		}).Error
}

// MarkFailed writes the single terminal state for a fatally-errored run.
func (r *SyncRunRepository) MarkFailed(id uuid.UUID, completedAt time.Time, message string) error {
	return r.db.Model(&models.SyncRun{}).
		Where("id = ? AND status = ?", id, models.RunStatusRunning).
		Updates(map[string]interface{}{
			"status":        models.RunStatusError,
			"completed_at":  completedAt,
			"error_message": message,
		}).Error
}

func (r *SyncRunRepository) RecentByUser(userID uuid.UUID, limit int) ([]models.SyncRun, error) {
	var runs []models.SyncRun
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}

func (r *SyncRunRepository) CountByUserSince(userID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.SyncRun{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error
	return count, err
}

func (r *SyncRunRepository) CountErrorsByUserSince(userID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.SyncRun{}).
		Where("user_id = ? AND status = ? AND created_at >= ?", userID, models.RunStatusError, since).
		Count(&count).Error
	return count, err
}

func (r *SyncRunRepository) ListByUser(userID uuid.UUID, offset, limit int) ([]models.SyncRun, error) {
	var runs []models.SyncRun
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&runs).Error
	return runs, err
}

func (r *SyncRunRepository) CountByUser(userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&models.SyncRun{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}
