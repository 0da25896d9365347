package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/models"
	"github.com/google/uuid"
)

// ReminderConfigRepository stores named message templates per owner.
type ReminderConfigRepository struct {
	kv    KVStore
	locks *KeyedMutex
	now   func() time.Time
}

func NewReminderConfigRepository(kv KVStore) *ReminderConfigRepository {
	return &ReminderConfigRepository{kv: kv, locks: NewKeyedMutex(), now: time.Now}
}

func (r *ReminderConfigRepository) List(ctx context.Context, ownerID string) ([]models.ReminderConfig, error) {
	if ownerID == "" {
		return nil, models.ErrMissingOwner
	}
	return r.load(ctx, ownerID)
}

func (r *ReminderConfigRepository) GetByID(ctx context.Context, ownerID, id string) (*models.ReminderConfig, error) {
	configs, err := r.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for i := range configs {
		if configs[i].ID == id {
			return &configs[i], nil
		}
	}
	return nil, models.ErrConfigNotFound
}

func (r *ReminderConfigRepository) Create(ctx context.Context, config *models.ReminderConfig) error {
	if config.OwnerID == "" {
		return models.ErrMissingOwner
	}
	unlock := r.locks.Lock(config.OwnerID)
	defer unlock()

	configs, err := r.load(ctx, config.OwnerID)
	if err != nil {
		return err
	}
	now := r.now()
	config.ID = uuid.NewString()
	config.CreatedAt = now
	config.UpdatedAt = now
	configs = append(configs, *config)
	return r.store(ctx, config.OwnerID, configs)
}

func (r *ReminderConfigRepository) Update(ctx context.Context, config *models.ReminderConfig) error {
	if config.OwnerID == "" {
		return models.ErrMissingOwner
	}
	if config.ID == "" {
		return errors.New("invalid reminder config ID")
	}
	unlock := r.locks.Lock(config.OwnerID)
	defer unlock()

	configs, err := r.load(ctx, config.OwnerID)
	if err != nil {
		return err
	}
	for i := range configs {
		if configs[i].ID == config.ID {
			config.CreatedAt = configs[i].CreatedAt
			config.UpdatedAt = r.now()
			configs[i] = *config
			return r.store(ctx, config.OwnerID, configs)
		}
	}
	return models.ErrConfigNotFound
}

func (r *ReminderConfigRepository) Delete(ctx context.Context, ownerID, id string) error {
	if ownerID == "" {
		return models.ErrMissingOwner
	}
	unlock := r.locks.Lock(ownerID)
	defer unlock()

	configs, err := r.load(ctx, ownerID)
	if err != nil {
		return err
	}
	for i := range configs {
		if configs[i].ID == id {
			configs = append(configs[:i], configs[i+1:]...)
			return r.store(ctx, ownerID, configs)
		}
	}
	return models.ErrConfigNotFound
}

func (r *ReminderConfigRepository) load(ctx context.Context, ownerID string) ([]models.ReminderConfig, error) {
	raw, err := r.kv.Get(ctx, configsKey(ownerID))
	if errors.Is(err, ErrKeyNotFound) {
		return []models.ReminderConfig{}, nil
	}
	if err != nil {
		return nil, err
	}
	var configs []models.ReminderConfig
	if err := json.Unmarshal(raw, &configs); err != nil {
		return nil, err
	}
	return configs, nil
}

func (r *ReminderConfigRepository) store(ctx context.Context, ownerID string, configs []models.ReminderConfig) error {
	raw, err := json.Marshal(configs)
	if err != nil {
		return err
	}
	return r.kv.Set(ctx, configsKey(ownerID), raw)
}
