package handler

import (
	"net/http"

	"github.com/Git-Paul-Emile/seek-front-sub000/cmd/reminder_api/app/internal/services"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ConfigHandler struct {
	service *services.ReminderConfigService
	log     *zap.Logger
}

func NewConfigHandler(service *services.ReminderConfigService, log *zap.Logger) *ConfigHandler {
	return &ConfigHandler{service: service, log: log}
}

func (h *ConfigHandler) ListConfigs(c *gin.Context) {
	configs, err := h.service.List(c.Request.Context(), ownerID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, configs)
}

func (h *ConfigHandler) GetConfig(c *gin.Context) {
	config, err := h.service.Get(c.Request.Context(), ownerID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, config)
}

func (h *ConfigHandler) CreateConfig(c *gin.Context) {
	var config models.ReminderConfig
	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.Create(c.Request.Context(), ownerID(c), &config); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, config)
}

func (h *ConfigHandler) UpdateConfig(c *gin.Context) {
	var config models.ReminderConfig
	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.Update(c.Request.Context(), ownerID(c), c.Param("id"), &config); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, config)
}

func (h *ConfigHandler) DeleteConfig(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), ownerID(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
