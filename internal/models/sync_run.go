package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	TriggerManual    = "manual"
	TriggerAutomatic = "automatic"
	TriggerWebhook   = "webhook"

	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusError     = "error"
)

// SyncRun is one end-to-end reconciliation attempt. A run is created with
// status running and receives exactly one terminal write: completed (possibly
// with per-item errors) or error (with ErrorMessage set).
type SyncRun struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID      `gorm:"index:idx_sync_runs_user_created" json:"userId"`
	Trigger        string         `json:"trigger"`
	Status         string         `gorm:"index" json:"status"`
	StartedAt      time.Time      `json:"startedAt"`
	CompletedAt    *time.Time     `json:"completedAt"`
	ItemsProcessed int            `json:"itemsProcessed"`
	ItemsUpdated   int            `json:"itemsUpdated"`
	Errors         datatypes.JSON `json:"errors"`
	ErrorMessage   string         `json:"errorMessage,omitempty"`
	CreatedAt      time.Time      `gorm:"index:idx_sync_runs_user_created" json:"createdAt"`
}

// EncodeErrors marshals the per-item error list for the JSON column.
func EncodeErrors(errs []string) datatypes.JSON {
	if errs == nil {
		errs = []string{}
	}
	b, _ := json.Marshal(errs)
	return datatypes.JSON(b)
}

// ErrorList decodes the stored per-item errors.
func (r *SyncRun) ErrorList() []string {
	if len(r.Errors) == 0 {
		return []string{}
	}
	var errs []string
	if err := json.Unmarshal(r.Errors, &errs); err != nil {
		return []string{}
	}
	return errs
}
