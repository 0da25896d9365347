package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/models"
	"github.com/google/uuid"
)

// MaxHistoryEntries caps the per-owner ledger. Older entries are dropped first.
const MaxHistoryEntries = 500

// HistoryRepository is the append-only reminder ledger, stored newest first.
type HistoryRepository struct {
	kv    KVStore
	locks *KeyedMutex
	limit int
	now   func() time.Time
}

func NewHistoryRepository(kv KVStore) *HistoryRepository {
	return &HistoryRepository{
		kv:    kv,
		locks: NewKeyedMutex(),
		limit: MaxHistoryEntries,
		now:   time.Now,
	}
}

func (r *HistoryRepository) WithClock(now func() time.Time) *HistoryRepository {
	r.now = now
	return r
}

// Append stamps the attempt with an ID and creation time, stores it at the
// head of the ledger and trims the tail beyond the cap.
func (r *HistoryRepository) Append(ctx context.Context, attempt models.ReminderAttempt) (models.ReminderAttempt, error) {
	if attempt.OwnerID == "" {
		return attempt, models.ErrMissingOwner
	}
	if attempt.ID == "" {
		attempt.ID = uuid.Must(uuid.NewV7()).String()
	}
	attempt.CreatedAt = r.now()

	unlock := r.locks.Lock(attempt.OwnerID)
	defer unlock()

	entries, err := r.load(ctx, attempt.OwnerID)
	if err != nil {
		return attempt, err
	}

	entries = append([]models.ReminderAttempt{attempt}, entries...)
	if len(entries) > r.limit {
		entries = entries[:r.limit]
	}

	raw, err := json.Marshal(entries)
	if err != nil {
		return attempt, err
	}
	if err := r.kv.Set(ctx, historyKey(attempt.OwnerID), raw); err != nil {
		return attempt, err
	}
	return attempt, nil
}

// List returns a fresh snapshot of the ledger, newest first.
func (r *HistoryRepository) List(ctx context.Context, ownerID string) ([]models.ReminderAttempt, error) {
	if ownerID == "" {
		return nil, models.ErrMissingOwner
	}
	return r.load(ctx, ownerID)
}

func (r *HistoryRepository) ListByPayment(ctx context.Context, ownerID, paymentID string) ([]models.ReminderAttempt, error) {
	entries, err := r.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]models.ReminderAttempt, 0)
	for _, e := range entries {
		if e.PaymentID == paymentID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Clear drops the whole ledger for the owner. Policy counters are not touched.
func (r *HistoryRepository) Clear(ctx context.Context, ownerID string) error {
	if ownerID == "" {
		return models.ErrMissingOwner
	}
	unlock := r.locks.Lock(ownerID)
	defer unlock()
	return r.kv.Delete(ctx, historyKey(ownerID))
}

func (r *HistoryRepository) load(ctx context.Context, ownerID string) ([]models.ReminderAttempt, error) {
	raw, err := r.kv.Get(ctx, historyKey(ownerID))
	if errors.Is(err, ErrKeyNotFound) {
		return []models.ReminderAttempt{}, nil
	}
	if err != nil {
		return nil, err
	}
	var entries []models.ReminderAttempt
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
