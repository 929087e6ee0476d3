package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"inventory-sync-backend/internal/models"
	"inventory-sync-backend/internal/platforms/shopify"
	"inventory-sync-backend/internal/platforms/square"
	"inventory-sync-backend/internal/repository"
	"inventory-sync-backend/internal/services/matching"
	"inventory-sync-backend/internal/services/snapshot"
)

var testDBSeq int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:syncsvc%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.SyncRun{}))
	return db
}

func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type inventoryWrite struct {
	inventoryItemID string
	locationID      string
	available       int
}

type fakeGateway struct {
	products []shopify.Product
	failIDs  map[string]bool
	writes   []inventoryWrite
}

func (g *fakeGateway) ListProducts(ctx context.Context, session shopify.Session) ([]shopify.Product, error) {
	return g.products, nil
}

func (g *fakeGateway) SetInventoryLevel(ctx context.Context, session shopify.Session, inventoryItemID, locationID string, available int) error {
	if g.failIDs[inventoryItemID] {
		return errors.New("write refused")
	}
	g.writes = append(g.writes, inventoryWrite{inventoryItemID, locationID, available})
	return nil
}

type fakeSquareAPI struct {
	items   []square.CatalogItem
	counts  map[string][]square.InventoryCount
	listErr error
}

func (f *fakeSquareAPI) ListCatalogItems(ctx context.Context) ([]square.CatalogItem, error) {
	return f.items, f.listErr
}

func (f *fakeSquareAPI) GetInventoryCounts(ctx context.Context, variationID string) ([]square.InventoryCount, error) {
	return f.counts[variationID], nil
}

func newTestService(t *testing.T, db *gorm.DB, gw *fakeGateway, squareAPI *fakeSquareAPI) *Service {
	t.Helper()
	factory := func(cfg models.SquareConfig) (snapshot.SquareAPI, error) {
		return squareAPI, nil
	}
	return NewService(
		repository.NewSyncRunRepository(db),
		repository.NewUserRepository(db),
		gw,
		factory,
		nil,
		discardLogger(),
	)
}

func connectedUser() *models.User {
	return &models.User{
		ID:    uuid.New(),
		Email: fmt.Sprintf("%s@example.com", uuid.NewString()),
		SquareConfig: models.SquareConfig{
			AccessToken: "sq-token",
			Environment: "sandbox",
			IsConnected: true,
		},
		ShopifyConfig: models.ShopifyConfig{
			Shop:        "demo.myshopify.com",
			AccessToken: "sh-token",
			LocationID:  "loc_9",
			IsConnected: true,
		},
		SyncSettings: models.SyncSettings{SyncInterval: 300},
	}
}

func TestReconcileUpdatesMatchedPairs(t *testing.T) {
	gw := &fakeGateway{}
	s := newTestService(t, newTestDB(t), gw, &fakeSquareAPI{})

	pairs := []matching.MatchedPair{
		{
			IdentityKey: "A1",
			Square:      snapshot.InventoryRecord{IdentityKey: "A1", Quantity: 5},
			Shopify:     snapshot.InventoryRecord{IdentityKey: "A1", PlatformItemID: "inv_1"},
		},
	}

	result := s.reconcile(context.Background(), shopify.NewSession("demo.myshopify.com", "t"), "loc_9", pairs)

	assert.Equal(t, 1, result.ItemsProcessed)
	assert.Equal(t, 1, result.ItemsUpdated)
	assert.Empty(t, result.Errors)
	require.Len(t, gw.writes, 1)
	assert.Equal(t, inventoryWrite{"inv_1", "loc_9", 5}, gw.writes[0])
}

func TestReconcileIsolatesFailedWrites(t *testing.T) {
	gw := &fakeGateway{failIDs: map[string]bool{"inv_2": true}}
	s := newTestService(t, newTestDB(t), gw, &fakeSquareAPI{})

	pairs := []matching.MatchedPair{
		{
			IdentityKey: "A1",
			Square:      snapshot.InventoryRecord{Quantity: 5},
			Shopify:     snapshot.InventoryRecord{PlatformItemID: "inv_1"},
		},
		{
			IdentityKey: "B2",
			Square:      snapshot.InventoryRecord{Quantity: 3},
			Shopify:     snapshot.InventoryRecord{PlatformItemID: "inv_2"},
		},
		{
			IdentityKey: "C3",
			Square:      snapshot.InventoryRecord{Quantity: 8},
			Shopify:     snapshot.InventoryRecord{PlatformItemID: "inv_3"},
		},
	}

	result := s.reconcile(context.Background(), shopify.NewSession("demo.myshopify.com", "t"), "loc_9", pairs)

	assert.Equal(t, 3, result.ItemsProcessed)
	assert.Equal(t, 2, result.ItemsUpdated)
	assert.Equal(t, []string{"Failed to update B2: write refused"}, result.Errors)
	assert.LessOrEqual(t, result.ItemsUpdated, result.ItemsProcessed)
	assert.LessOrEqual(t, len(result.Errors), result.ItemsProcessed)
}

func TestReconcileNoPairs(t *testing.T) {
	gw := &fakeGateway{}
	s := newTestService(t, newTestDB(t), gw, &fakeSquareAPI{})

	result := s.reconcile(context.Background(), shopify.NewSession("demo.myshopify.com", "t"), "loc_9", nil)

	assert.Equal(t, 0, result.ItemsProcessed)
	assert.Equal(t, 0, result.ItemsUpdated)
	require.NotNil(t, result.Errors)
	assert.Empty(t, result.Errors)
	assert.Empty(t, gw.writes)
}

func TestPerformSyncEndToEnd(t *testing.T) {
	squareAPI := &fakeSquareAPI{
		items: []square.CatalogItem{
			{
				Type: "ITEM",
				ItemData: &square.ItemData{
					Name: "Widget",
					Variations: []square.CatalogObject{
						{ID: "var_1", ItemVariationData: &square.ItemVariationData{SKU: "A1"}},
					},
				},
			},
		},
		counts: map[string][]square.InventoryCount{
			"var_1": {{CatalogObjectID: "var_1", LocationID: "loc_1", Quantity: "5"}},
		},
	}
	gw := &fakeGateway{
		products: []shopify.Product{
			{
				Title: "Widget",
				Variants: []shopify.Variant{
					{SKU: "A1", InventoryItemID: 9001},
					{SKU: "ZZ", InventoryItemID: 9002},
				},
			},
		},
	}
	s := newTestService(t, newTestDB(t), gw, squareAPI)

	result, err := s.performSync(context.Background(), connectedUser())
	require.NoError(t, err)

	assert.Equal(t, 1, result.ItemsProcessed)
	assert.Equal(t, 1, result.ItemsUpdated)
	assert.Empty(t, result.Errors)
	require.Len(t, gw.writes, 1)
	assert.Equal(t, inventoryWrite{"9001", "loc_9", 5}, gw.writes[0])
}

func TestPerformSyncSnapshotFailureIsFatal(t *testing.T) {
	squareAPI := &fakeSquareAPI{listErr: errors.New("square unavailable")}
	gw := &fakeGateway{}
	s := newTestService(t, newTestDB(t), gw, squareAPI)

	result, err := s.performSync(context.Background(), connectedUser())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Empty(t, gw.writes)
}

func TestRunRequiresBothPlatformsConnected(t *testing.T) {
	db := newTestDB(t)
	s := newTestService(t, db, &fakeGateway{}, &fakeSquareAPI{})

	user := connectedUser()
	user.ShopifyConfig.IsConnected = false
	require.NoError(t, db.Create(user).Error)

	_, err := s.Run(context.Background(), user.ID, models.TriggerManual)
	assert.ErrorIs(t, err, ErrNotConnected)

	var count int64
	db.Model(&models.SyncRun{}).Count(&count)
	assert.Zero(t, count, "a rejected trigger must not create a run record")
}

func TestRunWithoutLockService(t *testing.T) {
	db := newTestDB(t)
	s := newTestService(t, db, &fakeGateway{}, &fakeSquareAPI{})

	user := connectedUser()
	require.NoError(t, db.Create(user).Error)

	_, err := s.Run(context.Background(), user.ID, models.TriggerManual)
	assert.ErrorIs(t, err, ErrLockUnavailable)

	var count int64
	db.Model(&models.SyncRun{}).Count(&count)
	assert.Zero(t, count)
}

func seedRuns(t *testing.T, db *gorm.DB, userID uuid.UUID, n int, status string, base time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		run := &models.SyncRun{
			ID:        uuid.New(),
			UserID:    userID,
			Trigger:   models.TriggerManual,
			Status:    status,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			Errors:    models.EncodeErrors(nil),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(run).Error)
	}
}

func TestGetHistoryPagination(t *testing.T) {
	db := newTestDB(t)
	s := newTestService(t, db, &fakeGateway{}, &fakeSquareAPI{})

	user := connectedUser()
	require.NoError(t, db.Create(user).Error)
	seedRuns(t, db, user.ID, 25, models.RunStatusCompleted, time.Now().Add(-time.Hour))

	first, err := s.GetHistory(user.ID, 1, 20)
	require.NoError(t, err)
	assert.Len(t, first.Logs, 20)
	assert.Equal(t, 1, first.Pagination.Current)
	assert.Equal(t, 2, first.Pagination.TotalPages)
	assert.True(t, first.Pagination.HasNext)
	assert.False(t, first.Pagination.HasPrev)

	second, err := s.GetHistory(user.ID, 2, 20)
	require.NoError(t, err)
	assert.Len(t, second.Logs, 5)
	assert.False(t, second.Pagination.HasNext)
	assert.True(t, second.Pagination.HasPrev)

	// Newest first across the whole listing.
	assert.True(t, first.Logs[0].CreatedAt.After(first.Logs[19].CreatedAt))
	assert.True(t, first.Logs[19].CreatedAt.After(second.Logs[0].CreatedAt))
}

func TestGetStatusCounts(t *testing.T) {
	db := newTestDB(t)
	s := newTestService(t, db, &fakeGateway{}, &fakeSquareAPI{})

	user := connectedUser()
	require.NoError(t, db.Create(user).Error)

	seedRuns(t, db, user.ID, 2, models.RunStatusCompleted, time.Now().Add(-time.Hour))
	seedRuns(t, db, user.ID, 1, models.RunStatusError, time.Now().Add(-2*time.Hour))
	// Outside the 24h window.
	seedRuns(t, db, user.ID, 1, models.RunStatusCompleted, time.Now().Add(-48*time.Hour))

	status, err := s.GetStatus(user.ID)
	require.NoError(t, err)

	assert.True(t, status.IsConnected)
	assert.Equal(t, int64(3), status.Last24hSyncs)
	assert.Equal(t, int64(1), status.Errors)
	assert.Len(t, status.RecentLogs, 4)
	assert.Equal(t, 300, status.SyncInterval)
}

func TestUpdateSettingsClampsInterval(t *testing.T) {
	db := newTestDB(t)
	s := newTestService(t, db, &fakeGateway{}, &fakeSquareAPI{})

	user := connectedUser()
	require.NoError(t, db.Create(user).Error)

	interval := 10
	autoSync := true
	settings, err := s.UpdateSettings(user.ID, SettingsInput{AutoSync: &autoSync, SyncInterval: &interval})
	require.NoError(t, err)
	assert.Equal(t, models.MinSyncInterval, settings.SyncInterval)
	assert.True(t, settings.AutoSync)

	stored, err := repository.NewUserRepository(db).GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MinSyncInterval, stored.SyncSettings.SyncInterval)
	assert.True(t, stored.SyncSettings.AutoSync)
}

func TestUpdateSettingsPartialInput(t *testing.T) {
	db := newTestDB(t)
	s := newTestService(t, db, &fakeGateway{}, &fakeSquareAPI{})

	user := connectedUser()
	user.SyncSettings.AutoSync = true
	require.NoError(t, db.Create(user).Error)

	interval := 900
	settings, err := s.UpdateSettings(user.ID, SettingsInput{SyncInterval: &interval})
	require.NoError(t, err)
	assert.Equal(t, 900, settings.SyncInterval)
	assert.True(t, settings.AutoSync, "fields not present in the input stay untouched")
}
