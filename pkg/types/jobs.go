package types

import (
	"time"

	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/models"
)

// BulkItem is one tenant/payment pair of a bulk send.
type BulkItem struct {
	Payment     models.Payment `json:"payment" binding:"required"`
	TenantName  string         `json:"tenant_name"`
	TenantEmail string         `json:"tenant_email,omitempty"`
	TenantPhone string         `json:"tenant_phone,omitempty"`
}

// BulkJob is published on the bulk topic for the worker to process.
type BulkJob struct {
	JobID          string              `json:"job_id"`
	OwnerID        string              `json:"owner_id"`
	Channel        models.Channel      `json:"channel"`
	Type           models.ReminderType `json:"type"`
	Items          []BulkItem          `json:"items"`
	IdempotencyKey string              `json:"idempotency_key,omitempty"`
	RequestedAt    time.Time           `json:"requested_at"`
}

// AttemptEvent is published once per recorded reminder attempt.
type AttemptEvent struct {
	Attempt     models.ReminderAttempt `json:"attempt"`
	PublishedAt time.Time              `json:"published_at"`
}
