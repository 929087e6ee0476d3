package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"inventory-sync-backend/internal/models"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

func (r *UserRepository) GetByID(id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetBySquareMerchant(merchantID string) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, "square_merchant_id = ?", merchantID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByShop(shop string) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, "shopify_shop = ?", shop).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) ConnectSquare(userID uuid.UUID, cfg models.SquareConfig) error {
	return r.db.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"square_access_token":          cfg.AccessToken,
			"square_environment":           cfg.Environment,
			"square_merchant_id":           cfg.MerchantID,
			"square_location_id":           cfg.LocationID,
			"square_webhook_signature_key": cfg.WebhookSignatureKey,
			"square_is_connected":          cfg.IsConnected,
		}).Error
}

func (r *UserRepository) ConnectShopify(userID uuid.UUID, cfg models.ShopifyConfig) error {
	return r.db.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"shopify_shop":         cfg.Shop,
			"shopify_access_token": cfg.AccessToken,
			"shopify_location_id":  cfg.LocationID,
			"shopify_is_connected": cfg.IsConnected,
		}).Error
}

func (r *UserRepository) UpdateSyncSettings(userID uuid.UUID, autoSync bool, syncInterval int) error {
	return r.db.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"sync_auto_sync":     autoSync,
			"sync_sync_interval": syncInterval,
		}).Error
}

// TouchLastSync records the completion time of the latest successful run.
func (r *UserRepository) TouchLastSync(userID uuid.UUID, at time.Time) error {
	return r.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("sync_last_sync_at", at).Error
}

// AutoSyncCandidates returns the users the scheduler should consider: auto
// sync enabled and both platforms connected.
func (r *UserRepository) AutoSyncCandidates() ([]models.User, error) {
	var users []models.User
	err := r.db.Where("sync_auto_sync = ? AND square_is_connected = ? AND shopify_is_connected = ?",
		true, true, true).
		Find(&users).Error
	return users, err
}
