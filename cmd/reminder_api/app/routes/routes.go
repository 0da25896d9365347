package routes

import (
	"time"

	"github.com/Git-Paul-Emile/seek-front-sub000/cmd/reminder_api/app/internal/handler"
	"github.com/Git-Paul-Emile/seek-front-sub000/cmd/reminder_api/app/internal/services"
	"github.com/Git-Paul-Emile/seek-front-sub000/middlewares"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/reminders"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/repositories"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Deps struct {
	KV             repositories.KVStore
	Notifier       reminders.Notifier
	Events         reminders.EventPublisher
	Bulk           services.BulkPublisher
	Cache          middlewares.ResponseCache
	Limiter        *middlewares.RateLimiter
	IdempotencyTTL time.Duration
	Log            *zap.Logger
}

// Reminders mounts the owner-scoped reminder API on r.
func Reminders(r *gin.RouterGroup, deps Deps) {
	reminderService := services.NewReminderService(services.Deps{
		KV:       deps.KV,
		Notifier: deps.Notifier,
		Events:   deps.Events,
		Bulk:     deps.Bulk,
		Logger:   deps.Log,
	})
	reminderHandler := handler.NewReminderHandler(reminderService, deps.Log)
	configHandler := handler.NewConfigHandler(services.NewReminderConfigService(reminderService.Configs()), deps.Log)

	r.Use(middlewares.OwnerScope())

	sending := []gin.HandlerFunc{}
	if deps.Limiter != nil {
		sending = append(sending, deps.Limiter.Middleware())
	}
	idempotent := chain(sending, middlewares.Idempotency(deps.Cache, deps.IdempotencyTTL, deps.Log))

	r.GET("/policy", reminderHandler.GetPolicy)
	r.PUT("/policy", reminderHandler.SavePolicy)
	r.POST("/evaluate", reminderHandler.Evaluate)

	r.POST("/send", chain(idempotent, reminderHandler.Send)...)
	r.POST("/bulk", chain(idempotent, reminderHandler.SendBulk)...)
	r.POST("/bulk/async", chain(idempotent, reminderHandler.EnqueueBulk)...)
	r.POST("/run", chain(sending, reminderHandler.Run)...)

	r.GET("/history", reminderHandler.History)
	r.GET("/history/payments/:paymentId", reminderHandler.PaymentHistory)
	r.DELETE("/history", reminderHandler.ClearHistory)
	r.GET("/stats", reminderHandler.Stats)

	configs := r.Group("/configs")
	configs.GET("", configHandler.ListConfigs)
	configs.POST("", configHandler.CreateConfig)
	configs.GET("/:id", configHandler.GetConfig)
	configs.PUT("/:id", configHandler.UpdateConfig)
	configs.DELETE("/:id", configHandler.DeleteConfig)
}

func chain(middleware []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(middleware)+1)
	out = append(out, middleware...)
	return append(out, h)
}
