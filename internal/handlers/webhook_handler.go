package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"inventory-sync-backend/internal/models"
	"inventory-sync-backend/internal/repository"
	syncsvc "inventory-sync-backend/internal/services/sync"
)

// WebhookHandler verifies platform webhook signatures and turns relevant
// events into webhook-triggered sync runs. Verification happens before any
// other processing; an invalid signature has no side effects.
type WebhookHandler struct {
	users         *repository.UserRepository
	service       *syncsvc.Service
	shopifySecret string
	log           *logrus.Logger
}

func NewWebhookHandler(users *repository.UserRepository, service *syncsvc.Service, shopifySecret string, log *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{
		users:         users,
		service:       service,
		shopifySecret: shopifySecret,
		log:           log,
	}
}

type squareWebhookEvent struct {
	MerchantID string `json:"merchant_id"`
	Type       string `json:"type"`
}

// HandleSquare authenticates with the account's own signature key
// (HMAC-SHA1, base64). The merchant id in the payload selects the account.
func (h *WebhookHandler) HandleSquare(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	var event squareWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	user, err := h.users.GetBySquareMerchant(event.MerchantID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	signature := c.GetHeader("x-square-signature")
	if !verifySquareSignature(user.SquareConfig.WebhookSignatureKey, signature, body) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	if event.Type == "inventory.count.updated" {
		h.log.WithField("merchantId", event.MerchantID).Info("square inventory update received")
		go h.triggerSync(user.ID)
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

// HandleShopify authenticates with the shared app secret (HMAC-SHA256,
// base64). The shop domain header selects the account.
func (h *WebhookHandler) HandleShopify(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	signature := c.GetHeader("X-Shopify-Hmac-Sha256")
	if !verifyShopifySignature(h.shopifySecret, signature, body) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	topic := c.GetHeader("X-Shopify-Topic")
	if topic == "orders/create" || topic == "orders/updated" {
		shop := c.GetHeader("X-Shopify-Shop-Domain")
		user, err := h.users.GetByShop(shop)
		if err != nil {
			h.log.WithField("shop", shop).Warn("shopify webhook for unknown shop")
		} else {
			h.log.WithFields(logrus.Fields{"shop": shop, "topic": topic}).Info("shopify order webhook received")
			go h.triggerSync(user.ID)
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

// triggerSync runs outside the request; a lease already held by another
// trigger is expected and only logged.
func (h *WebhookHandler) triggerSync(userID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), leaseRunTimeout)
	defer cancel()

	if _, err := h.service.Run(ctx, userID, models.TriggerWebhook); err != nil {
		if errors.Is(err, syncsvc.ErrSyncInProgress) {
			h.log.WithField("userId", userID).Debug("webhook sync skipped, run already in progress")
			return
		}
		h.log.WithField("userId", userID).WithError(err).Error("webhook sync failed")
	}
}

const leaseRunTimeout = 5 * time.Minute

func verifySquareSignature(key, signature string, body []byte) bool {
	if key == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func verifyShopifySignature(secret, signature string, body []byte) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
