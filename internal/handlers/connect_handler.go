package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"inventory-sync-backend/internal/middleware"
	"inventory-sync-backend/internal/models"
	"inventory-sync-backend/internal/repository"
)

type ConnectHandler struct {
	users *repository.UserRepository
}

func NewConnectHandler(users *repository.UserRepository) *ConnectHandler {
	return &ConnectHandler{users: users}
}

func (h *ConnectHandler) SquareConnect(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var payload struct {
		AccessToken         string `json:"accessToken"`
		Environment         string `json:"environment"`
		MerchantID          string `json:"merchantId"`
		LocationID          string `json:"locationId"`
		WebhookSignatureKey string `json:"webhookSignatureKey"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "accessToken is required"})
		return
	}

	cfg := models.SquareConfig{
		AccessToken:         payload.AccessToken,
		Environment:         payload.Environment,
		MerchantID:          payload.MerchantID,
		LocationID:          payload.LocationID,
		WebhookSignatureKey: payload.WebhookSignatureKey,
		IsConnected:         true,
	}
	if err := h.users.ConnectSquare(userID, cfg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *ConnectHandler) ShopifyConnect(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var payload struct {
		Shop        string `json:"shop"`
		AccessToken string `json:"accessToken"`
		LocationID  string `json:"locationId"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if strings.TrimSpace(payload.Shop) == "" || strings.TrimSpace(payload.AccessToken) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "shop and accessToken are required"})
		return
	}

	cfg := models.ShopifyConfig{
		Shop:        payload.Shop,
		AccessToken: payload.AccessToken,
		LocationID:  payload.LocationID,
		IsConnected: true,
	}
	if err := h.users.ConnectShopify(userID, cfg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
