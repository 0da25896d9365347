// Package reminders decides which rent payments need a reminder and sends
// them through the channel gateway, recording every attempt in the ledger.
package reminders

import (
	"context"
	"time"

	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/gateway"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/models"
)

type PolicyStore interface {
	Get(ctx context.Context, ownerID string) models.ReminderPolicy
	RecordOutcome(ctx context.Context, ownerID string, status models.AttemptStatus, at time.Time) error
}

type Ledger interface {
	Append(ctx context.Context, attempt models.ReminderAttempt) (models.ReminderAttempt, error)
	List(ctx context.Context, ownerID string) ([]models.ReminderAttempt, error)
}

// Notifier delivers one payload. Implementations report failures in the
// result rather than as errors.
type Notifier interface {
	Send(ctx context.Context, p models.NotificationPayload) gateway.Result
}

type EventPublisher interface {
	PublishAttempt(ctx context.Context, attempt models.ReminderAttempt) error
}
