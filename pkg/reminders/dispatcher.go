package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/Git-Paul-Emile/seek-front-sub000/metrics"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/gateway"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/models"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/template"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	subjectBeforeDue = "Rappel : échéance de loyer"
	subjectAfterDue  = "Relance : loyer impayé"
)

// SendRequest describes one reminder. Contact fields fall back to the ones
// carried by the payment.
type SendRequest struct {
	OwnerID         string
	Payment         models.Payment
	Channel         models.Channel
	Type            models.ReminderType
	TenantName      string
	TenantEmail     string
	TenantPhone     string
	MessageOverride string
	TriggeredBy     models.TriggeredBy
}

type BulkResult struct {
	Total      int                      `json:"total"`
	Successful int                      `json:"successful"`
	Failed     int                      `json:"failed"`
	Skipped    int                      `json:"skipped"`
	Results    []models.ReminderAttempt `json:"results"`
}

type Dispatcher struct {
	policies  PolicyStore
	ledger    Ledger
	notifier  Notifier
	publisher EventPublisher
	tracer    trace.Tracer
	logger    *zap.Logger
	now       func() time.Time
}

type Option func(*Dispatcher)

func WithPublisher(p EventPublisher) Option {
	return func(d *Dispatcher) { d.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

func WithTracer(t trace.Tracer) Option {
	return func(d *Dispatcher) { d.tracer = t }
}

func NewDispatcher(policies PolicyStore, ledger Ledger, notifier Notifier, logger *zap.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		policies: policies,
		ledger:   ledger,
		notifier: notifier,
		tracer:   otel.Tracer("reminders"),
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SendReminder sends one reminder and records the attempt.
//
// It returns (nil, nil) when the tenant has no contact for the channel: the
// send is skipped and nothing is recorded. Gateway failures, including
// panics, come back as a failed attempt. The only errors are invalid
// channel or type values and a missing owner.
func (d *Dispatcher) SendReminder(ctx context.Context, req SendRequest) (*models.ReminderAttempt, error) {
	if !req.Channel.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidChannel, req.Channel)
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidReminderType, req.Type)
	}
	if req.OwnerID == "" {
		return nil, models.ErrMissingOwner
	}
	if req.TriggeredBy == "" {
		req.TriggeredBy = models.TriggeredManual
	}
	req = withPaymentContacts(req)

	recipient := recipientFor(req)
	if recipient == "" {
		metrics.RemindersSkippedTotal.WithLabelValues(string(req.Channel), "missing_contact").Inc()
		d.logger.Debug("Skipping reminder, no contact for channel",
			zap.String("owner_id", req.OwnerID),
			zap.String("payment_id", req.Payment.ID),
			zap.String("channel", string(req.Channel)),
		)
		return nil, nil
	}

	ctx, span := d.tracer.Start(ctx, "send-reminder", trace.WithAttributes(
		attribute.String("reminder.owner_id", req.OwnerID),
		attribute.String("reminder.payment_id", req.Payment.ID),
		attribute.String("reminder.channel", string(req.Channel)),
		attribute.String("reminder.type", string(req.Type)),
	))
	defer span.End()

	policy := d.policies.Get(ctx, req.OwnerID)
	message := d.resolveMessage(policy, req)

	start := d.now()
	result := d.deliver(ctx, models.NotificationPayload{
		Channel:   req.Channel,
		Recipient: recipient,
		Subject:   subjectFor(req.Type),
		Body:      message,
	})
	finished := d.now()

	attempt := models.ReminderAttempt{
		ID:                uuid.Must(uuid.NewV7()).String(),
		OwnerID:           req.OwnerID,
		PaymentID:         req.Payment.ID,
		TenantID:          req.Payment.TenantID,
		TenantName:        req.TenantName,
		TenantEmail:       req.TenantEmail,
		TenantPhone:       req.TenantPhone,
		Channel:           req.Channel,
		Type:              req.Type,
		Message:           message,
		Provider:          result.Provider,
		ProviderMessageID: result.MessageID,
		Handoff:           result.Handoff,
		TriggeredBy:       req.TriggeredBy,
		LatencyMs:         finished.Sub(start).Milliseconds(),
		CreatedAt:         finished,
	}
	if result.Success {
		attempt.Status = models.AttemptSent
		attempt.SentAt = &finished
	} else {
		attempt.Status = models.AttemptFailed
		attempt.ErrorMessage = result.Error
		if attempt.ErrorMessage == "" {
			attempt.ErrorMessage = "channel gateway reported a failure"
		}
		span.SetStatus(codes.Error, attempt.ErrorMessage)
	}

	d.record(ctx, &attempt)
	return &attempt, nil
}

// SendBulkReminders sends one reminder per item, in order. One item failing
// never stops the others. Cancelling ctx stops the loop between items; the
// items left over only count towards Total.
func (d *Dispatcher) SendBulkReminders(ctx context.Context, ownerID string, items []types.BulkItem, channel models.Channel, reminderType models.ReminderType) (BulkResult, error) {
	res := BulkResult{
		Total:   len(items),
		Results: []models.ReminderAttempt{},
	}
	if !channel.Valid() {
		return res, fmt.Errorf("%w: %q", models.ErrInvalidChannel, channel)
	}
	if !reminderType.Valid() {
		return res, fmt.Errorf("%w: %q", models.ErrInvalidReminderType, reminderType)
	}

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			d.logger.Warn("Bulk send interrupted",
				zap.String("owner_id", ownerID),
				zap.Int("processed", i),
				zap.Int("total", len(items)),
				zap.Error(err),
			)
			break
		}
		attempt, err := d.SendReminder(ctx, SendRequest{
			OwnerID:     ownerID,
			Payment:     item.Payment,
			Channel:     channel,
			Type:        reminderType,
			TenantName:  item.TenantName,
			TenantEmail: item.TenantEmail,
			TenantPhone: item.TenantPhone,
			TriggeredBy: models.TriggeredManual,
		})
		if err != nil {
			return res, err
		}
		if attempt == nil {
			res.Skipped++
			continue
		}
		res.Results = append(res.Results, *attempt)
		if attempt.Status == models.AttemptSent {
			res.Successful++
		} else {
			res.Failed++
		}
	}

	d.logger.Info("Bulk reminders processed",
		zap.String("owner_id", ownerID),
		zap.String("channel", string(channel)),
		zap.String("type", string(reminderType)),
		zap.Int("total", res.Total),
		zap.Int("successful", res.Successful),
		zap.Int("failed", res.Failed),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

func (d *Dispatcher) deliver(ctx context.Context, p models.NotificationPayload) (res gateway.Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Channel gateway panicked",
				zap.String("channel", string(p.Channel)),
				zap.Any("panic", r),
			)
			res = gateway.Result{Error: fmt.Sprintf("channel gateway panic: %v", r)}
		}
	}()
	return d.notifier.Send(ctx, p)
}

// record persists the attempt and its side effects. Storage failures are
// logged; the caller still gets the attempt.
func (d *Dispatcher) record(ctx context.Context, attempt *models.ReminderAttempt) {
	stored, err := d.ledger.Append(ctx, *attempt)
	if err != nil {
		d.logger.Error("Failed to append reminder attempt",
			zap.String("owner_id", attempt.OwnerID),
			zap.String("attempt_id", attempt.ID),
			zap.Error(err),
		)
	} else {
		*attempt = stored
	}

	if err := d.policies.RecordOutcome(ctx, attempt.OwnerID, attempt.Status, attempt.CreatedAt); err != nil {
		d.logger.Warn("Failed to update policy counters",
			zap.String("owner_id", attempt.OwnerID),
			zap.Error(err),
		)
	}

	if d.publisher != nil {
		if err := d.publisher.PublishAttempt(ctx, *attempt); err != nil {
			d.logger.Warn("Failed to publish reminder attempt",
				zap.String("attempt_id", attempt.ID),
				zap.Error(err),
			)
		}
	}

	metrics.RemindersAttemptedTotal.WithLabelValues(
		string(attempt.Channel),
		string(attempt.Type),
		string(attempt.Status),
		string(attempt.TriggeredBy),
	).Inc()

	fields := []zap.Field{
		zap.String("owner_id", attempt.OwnerID),
		zap.String("attempt_id", attempt.ID),
		zap.String("payment_id", attempt.PaymentID),
		zap.String("channel", string(attempt.Channel)),
		zap.String("type", string(attempt.Type)),
		zap.String("provider", attempt.Provider),
		zap.Int64("latency_ms", attempt.LatencyMs),
	}
	if attempt.Status == models.AttemptSent {
		d.logger.Info("Reminder sent", fields...)
	} else {
		d.logger.Warn("Reminder failed", append(fields, zap.String("error", attempt.ErrorMessage))...)
	}
}

func (d *Dispatcher) resolveMessage(policy models.ReminderPolicy, req SendRequest) string {
	tmpl := req.MessageOverride
	if tmpl == "" {
		tmpl = policy.Template(req.Type)
	}
	message, err := template.Render(tmpl, template.DataFromPayment(req.Payment, req.TenantName, d.now()))
	if err != nil {
		d.logger.Warn("Failed to render reminder template, sending it verbatim",
			zap.String("owner_id", req.OwnerID),
			zap.Error(err),
		)
		return tmpl
	}
	return message
}

func withPaymentContacts(req SendRequest) SendRequest {
	if req.TenantName == "" {
		req.TenantName = req.Payment.TenantName
	}
	if req.TenantEmail == "" {
		req.TenantEmail = req.Payment.TenantEmail
	}
	if req.TenantPhone == "" {
		req.TenantPhone = req.Payment.TenantPhone
	}
	return req
}

func recipientFor(req SendRequest) string {
	if req.Channel == models.ChannelEmail {
		return req.TenantEmail
	}
	return req.TenantPhone
}

func subjectFor(t models.ReminderType) string {
	if t == models.ReminderAfterDue {
		return subjectAfterDue
	}
	return subjectBeforeDue
}
