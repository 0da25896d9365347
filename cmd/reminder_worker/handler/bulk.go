package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/models"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/reminders"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/repositories"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

type BulkSender interface {
	SendBulkReminders(ctx context.Context, ownerID string, items []types.BulkItem, channel models.Channel, reminderType models.ReminderType) (reminders.BulkResult, error)
}

// JobRecord tracks how far a bulk job got. Items are sent in order, so
// Processed is the number of leading items already handled. A redelivered job
// resumes after them and a completed one is ignored.
type JobRecord struct {
	JobID       string    `json:"job_id"`
	Processed   int       `json:"processed"`
	Completed   bool      `json:"completed"`
	Successful  int       `json:"successful"`
	Failed      int       `json:"failed"`
	Skipped     int       `json:"skipped"`
	ProcessedAt time.Time `json:"processed_at"`
}

type BulkJobHandler struct {
	sender BulkSender
	kv     repositories.KVStore
	logger *zap.Logger
}

func NewBulkJobHandler(sender BulkSender, kv repositories.KVStore, logger *zap.Logger) *BulkJobHandler {
	return &BulkJobHandler{sender: sender, kv: kv, logger: logger}
}

func jobKey(job types.BulkJob) string {
	key := job.IdempotencyKey
	if key == "" {
		key = job.JobID
	}
	return "reminder_jobs:" + job.OwnerID + ":" + key
}

func (h *BulkJobHandler) Handle(ctx context.Context, job types.BulkJob) error {
	ctx, span := otel.Tracer("reminder_worker").Start(ctx, "handle-bulk-job")
	defer span.End()
	span.SetAttributes(
		attribute.String("reminder.job_id", job.JobID),
		attribute.String("reminder.owner_id", job.OwnerID),
		attribute.Int("reminder.items", len(job.Items)),
	)

	key := jobKey(job)
	record, err := h.load(ctx, key)
	if err != nil {
		h.logger.Warn("Could not read bulk job record", zap.String("job_id", job.JobID), zap.Error(err))
	}
	if record.Completed {
		h.logger.Info("Bulk job already processed, skipping",
			zap.String("job_id", job.JobID),
			zap.String("owner_id", job.OwnerID),
		)
		return nil
	}
	record.JobID = job.JobID

	items := job.Items
	if record.Processed > 0 && record.Processed <= len(items) {
		h.logger.Info("Resuming bulk job",
			zap.String("job_id", job.JobID),
			zap.Int("processed", record.Processed),
			zap.Int("total", len(items)),
		)
		items = items[record.Processed:]
	}

	res, err := h.sender.SendBulkReminders(ctx, job.OwnerID, items, job.Channel, job.Type)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	record.Processed += len(res.Results) + res.Skipped
	record.Successful += res.Successful
	record.Failed += res.Failed
	record.Skipped += res.Skipped
	record.Completed = record.Processed >= len(job.Items)
	record.ProcessedAt = time.Now()
	// The job context may already be cancelled; progress is still worth keeping.
	if err := h.save(context.WithoutCancel(ctx), key, record); err != nil {
		h.logger.Warn("Failed to record bulk job", zap.String("job_id", job.JobID), zap.Error(err))
	}

	if !record.Completed {
		err := ctx.Err()
		if err == nil {
			err = fmt.Errorf("bulk job %s stopped after %d of %d items", job.JobID, record.Processed, len(job.Items))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// load returns an empty record when the job was never seen.
func (h *BulkJobHandler) load(ctx context.Context, key string) (JobRecord, error) {
	var record JobRecord
	raw, err := h.kv.Get(ctx, key)
	if errors.Is(err, repositories.ErrKeyNotFound) {
		return record, nil
	}
	if err != nil {
		return record, err
	}
	if err := json.Unmarshal(raw, &record); err != nil {
		return JobRecord{}, err
	}
	return record, nil
}

func (h *BulkJobHandler) save(ctx context.Context, key string, record JobRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return h.kv.Set(ctx, key, raw)
}
