package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/models"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/reminders"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/repositories"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrAsyncUnavailable = errors.New("async bulk sending is not configured")
	ErrMissingPayment   = errors.New("payment with an id is required")
)

type BulkPublisher interface {
	PublishBulkJob(ctx context.Context, job types.BulkJob) error
}

type Deps struct {
	KV       repositories.KVStore
	Notifier reminders.Notifier
	Events   reminders.EventPublisher
	Bulk     BulkPublisher
	Logger   *zap.Logger
	Clock    func() time.Time
}

type SendInput struct {
	Payment     models.Payment
	Channel     string
	Type        string
	TenantName  string
	TenantEmail string
	TenantPhone string
	Message     string
	ConfigID    string
}

type ReminderService struct {
	policies   *repositories.PolicyRepository
	history    *repositories.HistoryRepository
	configs    *repositories.ReminderConfigRepository
	dispatcher *reminders.Dispatcher
	runner     *reminders.Runner
	bulk       BulkPublisher
	logger     *zap.Logger
	now        func() time.Time
}

func NewReminderService(deps Deps) *ReminderService {
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	policies := repositories.NewPolicyRepository(deps.KV, deps.Logger)
	history := repositories.NewHistoryRepository(deps.KV)

	opts := []reminders.Option{reminders.WithClock(now)}
	if deps.Events != nil {
		opts = append(opts, reminders.WithPublisher(deps.Events))
	}
	dispatcher := reminders.NewDispatcher(policies, history, deps.Notifier, deps.Logger, opts...)

	return &ReminderService{
		policies:   policies,
		history:    history,
		configs:    repositories.NewReminderConfigRepository(deps.KV),
		dispatcher: dispatcher,
		runner:     reminders.NewRunner(policies, history, dispatcher, deps.Logger),
		bulk:       deps.Bulk,
		logger:     deps.Logger,
		now:        now,
	}
}

func (s *ReminderService) Configs() *repositories.ReminderConfigRepository {
	return s.configs
}

func (s *ReminderService) GetPolicy(ctx context.Context, ownerID string) models.ReminderPolicy {
	return s.policies.Get(ctx, ownerID)
}

// SavePolicy replaces the owner's policy. The counters are informational and
// kept from the stored policy, whatever the caller sent.
func (s *ReminderService) SavePolicy(ctx context.Context, ownerID string, policy *models.ReminderPolicy) error {
	policy.OwnerID = ownerID
	return s.policies.Replace(ctx, policy)
}

func (s *ReminderService) Evaluate(ctx context.Context, ownerID string, payments []models.Payment, now *time.Time) reminders.Evaluation {
	return reminders.Evaluate(s.policies.Get(ctx, ownerID), payments, s.at(now))
}

func (s *ReminderService) Send(ctx context.Context, ownerID string, in SendInput) (*models.ReminderAttempt, error) {
	if in.Payment.ID == "" {
		return nil, ErrMissingPayment
	}
	channel, err := models.ParseChannel(in.Channel)
	if err != nil {
		return nil, err
	}
	reminderType, err := models.ParseReminderType(in.Type)
	if err != nil {
		return nil, err
	}

	message := in.Message
	if message == "" && in.ConfigID != "" {
		cfg, err := s.configs.GetByID(ctx, ownerID, in.ConfigID)
		if err != nil {
			return nil, err
		}
		message = cfg.Template
	}

	return s.dispatcher.SendReminder(ctx, reminders.SendRequest{
		OwnerID:         ownerID,
		Payment:         in.Payment,
		Channel:         channel,
		Type:            reminderType,
		TenantName:      in.TenantName,
		TenantEmail:     in.TenantEmail,
		TenantPhone:     in.TenantPhone,
		MessageOverride: message,
		TriggeredBy:     models.TriggeredManual,
	})
}

func (s *ReminderService) SendBulk(ctx context.Context, ownerID string, items []types.BulkItem, channel, reminderType string) (reminders.BulkResult, error) {
	c, t, err := parseKinds(channel, reminderType)
	if err != nil {
		return reminders.BulkResult{}, err
	}
	return s.dispatcher.SendBulkReminders(ctx, ownerID, items, c, t)
}

// EnqueueBulk hands the bulk send to the worker through Kafka.
func (s *ReminderService) EnqueueBulk(ctx context.Context, ownerID string, items []types.BulkItem, channel, reminderType, idempotencyKey string) (*types.BulkJob, error) {
	if s.bulk == nil {
		return nil, ErrAsyncUnavailable
	}
	c, t, err := parseKinds(channel, reminderType)
	if err != nil {
		return nil, err
	}
	job := types.BulkJob{
		JobID:          uuid.NewString(),
		OwnerID:        ownerID,
		Channel:        c,
		Type:           t,
		Items:          items,
		IdempotencyKey: idempotencyKey,
		RequestedAt:    s.now(),
	}
	if err := s.bulk.PublishBulkJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to enqueue bulk job: %w", err)
	}
	s.logger.Info("Bulk job enqueued",
		zap.String("owner_id", ownerID),
		zap.String("job_id", job.JobID),
		zap.Int("items", len(items)),
	)
	return &job, nil
}

func (s *ReminderService) Run(ctx context.Context, ownerID string, payments []models.Payment, now *time.Time) (reminders.RunReport, error) {
	return s.runner.RunOnce(ctx, ownerID, payments, s.at(now))
}

func (s *ReminderService) History(ctx context.Context, ownerID string) ([]models.ReminderAttempt, error) {
	return s.history.List(ctx, ownerID)
}

func (s *ReminderService) PaymentHistory(ctx context.Context, ownerID, paymentID string) ([]models.ReminderAttempt, error) {
	return s.history.ListByPayment(ctx, ownerID, paymentID)
}

func (s *ReminderService) ClearHistory(ctx context.Context, ownerID string) error {
	return s.history.Clear(ctx, ownerID)
}

func (s *ReminderService) Stats(ctx context.Context, ownerID string) (reminders.Stats, error) {
	return reminders.GetStats(ctx, s.history, ownerID)
}

func (s *ReminderService) at(now *time.Time) time.Time {
	if now != nil && !now.IsZero() {
		return *now
	}
	return s.now()
}

func parseKinds(channel, reminderType string) (models.Channel, models.ReminderType, error) {
	c, err := models.ParseChannel(channel)
	if err != nil {
		return "", "", err
	}
	t, err := models.ParseReminderType(reminderType)
	if err != nil {
		return "", "", err
	}
	return c, t, nil
}
