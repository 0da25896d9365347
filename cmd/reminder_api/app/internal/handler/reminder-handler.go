package handler

import (
	"net/http"
	"time"

	"github.com/Git-Paul-Emile/seek-front-sub000/cmd/reminder_api/app/internal/services"
	"github.com/Git-Paul-Emile/seek-front-sub000/middlewares"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/models"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ReminderHandler struct {
	service *services.ReminderService
	log     *zap.Logger
}

func NewReminderHandler(service *services.ReminderService, log *zap.Logger) *ReminderHandler {
	return &ReminderHandler{service: service, log: log}
}

type PaymentsRequest struct {
	Payments []models.Payment `json:"payments"`
	Now      *time.Time       `json:"now,omitempty"`
}

type SendRequest struct {
	Payment     models.Payment `json:"payment"`
	Channel     string         `json:"channel" binding:"required"`
	Type        string         `json:"type" binding:"required"`
	TenantName  string         `json:"tenant_name"`
	TenantEmail string         `json:"tenant_email"`
	TenantPhone string         `json:"tenant_phone"`
	Message     string         `json:"message"`
	ConfigID    string         `json:"config_id"`
}

type BulkRequest struct {
	Items   []types.BulkItem `json:"items" binding:"required"`
	Channel string           `json:"channel" binding:"required"`
	Type    string           `json:"type" binding:"required"`
}

func (h *ReminderHandler) GetPolicy(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.GetPolicy(c.Request.Context(), ownerID(c)))
}

func (h *ReminderHandler) SavePolicy(c *gin.Context) {
	var policy models.ReminderPolicy
	if err := c.ShouldBindJSON(&policy); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.SavePolicy(c.Request.Context(), ownerID(c), &policy); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, policy)
}

func (h *ReminderHandler) Evaluate(c *gin.Context) {
	var req PaymentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.service.Evaluate(c.Request.Context(), ownerID(c), req.Payments, req.Now))
}

func (h *ReminderHandler) Send(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	attempt, err := h.service.Send(c.Request.Context(), ownerID(c), services.SendInput{
		Payment:     req.Payment,
		Channel:     req.Channel,
		Type:        req.Type,
		TenantName:  req.TenantName,
		TenantEmail: req.TenantEmail,
		TenantPhone: req.TenantPhone,
		Message:     req.Message,
		ConfigID:    req.ConfigID,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if attempt == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusCreated, attempt)
}

func (h *ReminderHandler) SendBulk(c *gin.Context) {
	var req BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.service.SendBulk(c.Request.Context(), ownerID(c), req.Items, req.Channel, req.Type)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ReminderHandler) EnqueueBulk(c *gin.Context) {
	var req BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	job, err := h.service.EnqueueBulk(c.Request.Context(), ownerID(c), req.Items, req.Channel, req.Type, c.GetString(middlewares.IdemKey))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": job.JobID, "items": len(job.Items)})
}

func (h *ReminderHandler) Run(c *gin.Context) {
	var req PaymentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	report, err := h.service.Run(c.Request.Context(), ownerID(c), req.Payments, req.Now)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *ReminderHandler) History(c *gin.Context) {
	entries, err := h.service.History(c.Request.Context(), ownerID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *ReminderHandler) PaymentHistory(c *gin.Context) {
	entries, err := h.service.PaymentHistory(c.Request.Context(), ownerID(c), c.Param("paymentId"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *ReminderHandler) ClearHistory(c *gin.Context) {
	if err := h.service.ClearHistory(c.Request.Context(), ownerID(c)); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ReminderHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), ownerID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
