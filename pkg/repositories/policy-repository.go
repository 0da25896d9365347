package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/models"
	"go.uber.org/zap"
)

type PolicyRepository struct {
	kv     KVStore
	locks  *KeyedMutex
	logger *zap.Logger
	now    func() time.Time
}

func NewPolicyRepository(kv KVStore, logger *zap.Logger) *PolicyRepository {
	return &PolicyRepository{
		kv:     kv,
		locks:  NewKeyedMutex(),
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the time source, mostly for tests.
func (r *PolicyRepository) WithClock(now func() time.Time) *PolicyRepository {
	r.now = now
	return r
}

// Get returns the stored policy for the owner, or the default policy when
// nothing is stored or the store cannot be read.
func (r *PolicyRepository) Get(ctx context.Context, ownerID string) models.ReminderPolicy {
	policy, err := r.load(ctx, ownerID)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			r.logger.Warn("Failed to load reminder policy, using defaults",
				zap.String("owner_id", ownerID),
				zap.Error(err),
			)
		}
		return models.DefaultReminderPolicy(ownerID)
	}
	return policy
}

// Save replaces the stored policy. There is no partial update: callers read,
// modify and write back the whole policy.
func (r *PolicyRepository) Save(ctx context.Context, policy *models.ReminderPolicy) error {
	if policy.OwnerID == "" {
		return models.ErrMissingOwner
	}
	unlock := r.locks.Lock(policy.OwnerID)
	defer unlock()

	policy.UpdatedAt = r.now()
	return r.store(ctx, policy)
}

// Replace stores the policy while keeping the stored counters, which only
// RecordOutcome may change. Read and write happen under the owner lock so an
// outcome recorded concurrently is not lost.
func (r *PolicyRepository) Replace(ctx context.Context, policy *models.ReminderPolicy) error {
	if policy.OwnerID == "" {
		return models.ErrMissingOwner
	}
	unlock := r.locks.Lock(policy.OwnerID)
	defer unlock()

	current, err := r.load(ctx, policy.OwnerID)
	switch {
	case errors.Is(err, ErrKeyNotFound):
		current = models.DefaultReminderPolicy(policy.OwnerID)
	case err != nil:
		return err
	}
	policy.TotalSent = current.TotalSent
	policy.TotalFailed = current.TotalFailed
	policy.LastSentAt = current.LastSentAt
	policy.UpdatedAt = r.now()
	return r.store(ctx, policy)
}

// RecordOutcome bumps the informational counters after a send attempt.
func (r *PolicyRepository) RecordOutcome(ctx context.Context, ownerID string, status models.AttemptStatus, at time.Time) error {
	if status != models.AttemptSent && status != models.AttemptFailed {
		return nil
	}
	unlock := r.locks.Lock(ownerID)
	defer unlock()

	policy, err := r.load(ctx, ownerID)
	if errors.Is(err, ErrKeyNotFound) {
		policy = models.DefaultReminderPolicy(ownerID)
	} else if err != nil {
		return err
	}

	switch status {
	case models.AttemptSent:
		policy.TotalSent++
		sentAt := at
		policy.LastSentAt = &sentAt
	case models.AttemptFailed:
		policy.TotalFailed++
	}
	policy.UpdatedAt = r.now()
	return r.store(ctx, &policy)
}

func (r *PolicyRepository) load(ctx context.Context, ownerID string) (models.ReminderPolicy, error) {
	raw, err := r.kv.Get(ctx, settingsKey(ownerID))
	if err != nil {
		return models.ReminderPolicy{}, err
	}
	var policy models.ReminderPolicy
	if err := json.Unmarshal(raw, &policy); err != nil {
		return models.ReminderPolicy{}, err
	}
	policy.OwnerID = ownerID
	return policy, nil
}

func (r *PolicyRepository) store(ctx context.Context, policy *models.ReminderPolicy) error {
	raw, err := json.Marshal(policy)
	if err != nil {
		return err
	}
	return r.kv.Set(ctx, settingsKey(policy.OwnerID), raw)
}
