package handler

import (
	"errors"
	"net/http"

	"github.com/Git-Paul-Emile/seek-front-sub000/cmd/reminder_api/app/internal/services"
	"github.com/Git-Paul-Emile/seek-front-sub000/middlewares"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func ownerID(c *gin.Context) string {
	return c.GetString(middlewares.OwnerIDKey)
}

// respondError maps domain errors to status codes. Anything unknown is a 500
// and gets logged.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrInvalidChannel),
		errors.Is(err, models.ErrInvalidReminderType),
		errors.Is(err, models.ErrMissingOwner),
		errors.Is(err, services.ErrMissingPayment),
		errors.Is(err, services.ErrInvalidConfig):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrConfigNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrAsyncUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		log.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("owner_id", ownerID(c)),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
