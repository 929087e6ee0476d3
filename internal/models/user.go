package models

import (
	"time"

	"github.com/google/uuid"
)

// SquareConfig holds one merchant's Square credentials and webhook key.
type SquareConfig struct {
	AccessToken         string `json:"-"`
	Environment         string `json:"environment"`
	MerchantID          string `gorm:"index" json:"merchantId"`
	LocationID          string `json:"locationId"`
	WebhookSignatureKey string `json:"-"`
	IsConnected         bool   `json:"isConnected"`
}

// ShopifyConfig holds the shop domain, admin token and target location.
type ShopifyConfig struct {
	Shop        string `gorm:"index" json:"shop"`
	AccessToken string `json:"-"`
	LocationID  string `json:"locationId"`
	IsConnected bool   `json:"isConnected"`
}

// SyncSettings controls the automatic sync scheduler for one user.
// SyncInterval is seconds and is never stored below MinSyncInterval.
type SyncSettings struct {
	AutoSync     bool       `json:"autoSync"`
	SyncInterval int        `json:"syncInterval"`
	LastSyncAt   *time.Time `json:"lastSyncAt"`
}

const MinSyncInterval = 60

type User struct {
	ID            uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Email         string        `gorm:"uniqueIndex" json:"email"`
	PasswordHash  string        `json:"-"`
	Name          string        `json:"name"`
	SquareConfig  SquareConfig  `gorm:"embedded;embeddedPrefix:square_" json:"squareConfig"`
	ShopifyConfig ShopifyConfig `gorm:"embedded;embeddedPrefix:shopify_" json:"shopifyConfig"`
	SyncSettings  SyncSettings  `gorm:"embedded;embeddedPrefix:sync_" json:"syncSettings"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// BothConnected reports whether a sync run is allowed to start.
func (u *User) BothConnected() bool {
	return u.SquareConfig.IsConnected && u.ShopifyConfig.IsConnected
}
