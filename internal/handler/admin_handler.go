package handler

import (
	"context"
	"net/http"

	"pesagate/config"
	"pesagate/internal/auth"
	"pesagate/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type SettingsStore interface {
	Set(ctx context.Context, key, value string) error
	GetAll(ctx context.Context) ([]models.SystemSetting, error)
}

// AdminHandler exposes login and the Daraja settings the original gateway
// kept on its admin page. Changes apply at the next boot, when the stored
// settings are overlaid onto the environment config.
type AdminHandler struct {
	cfg      *config.AdminConfig
	settings SettingsStore
	log      *zap.Logger
}

func NewAdminHandler(cfg *config.AdminConfig, settings SettingsStore, log *zap.Logger) *AdminHandler {
	return &AdminHandler{cfg: cfg, settings: settings, log: log}
}

func (h *AdminHandler) Login(c *gin.Context) {
	if h.cfg.PasswordHash == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "admin API is not configured"})
		return
	}
	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(h.cfg.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	token, err := auth.GenerateAdminToken(&h.cfg.JWT)
	if err != nil {
		h.log.Error("failed to mint admin token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// secret settings are masked when listed
var secretSettings = map[string]bool{
	config.SettingConsumerSecret: true,
	config.SettingPasskey:        true,
}

func (h *AdminHandler) GetSettings(c *gin.Context) {
	list, err := h.settings.GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
		return
	}
	out := make(map[string]string, len(list))
	for _, s := range list {
		if secretSettings[s.Key] && s.Value != "" {
			out[s.Key] = "********"
			continue
		}
		out[s.Key] = s.Value
	}
	c.JSON(http.StatusOK, gin.H{"settings": out})
}

func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req map[string]string
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated := 0
	for _, key := range config.KnownSettingKeys() {
		value, ok := req[key]
		if !ok {
			continue
		}
		if err := h.settings.Set(c.Request.Context(), key, value); err != nil {
			h.log.Error("failed to store setting", zap.String("key", key), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store settings"})
			return
		}
		updated++
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated, "note": "settings apply at next restart"})
}
