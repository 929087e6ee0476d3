package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"inventory-sync-backend/internal/models"
)

func TestDueWithNoPreviousSync(t *testing.T) {
	settings := models.SyncSettings{AutoSync: true, SyncInterval: 300}
	assert.True(t, due(settings, time.Now()))
}

func TestDueHonorsInterval(t *testing.T) {
	now := time.Now()

	recent := now.Add(-30 * time.Second)
	assert.False(t, due(models.SyncSettings{SyncInterval: 300, LastSyncAt: &recent}, now))

	elapsed := now.Add(-301 * time.Second)
	assert.True(t, due(models.SyncSettings{SyncInterval: 300, LastSyncAt: &elapsed}, now))

	exact := now.Add(-300 * time.Second)
	assert.True(t, due(models.SyncSettings{SyncInterval: 300, LastSyncAt: &exact}, now))
}
