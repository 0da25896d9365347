package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/models"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/repositories"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/template"
)

var ErrInvalidConfig = errors.New("invalid reminder config")

type ReminderConfigService struct {
	repo *repositories.ReminderConfigRepository
}

func NewReminderConfigService(repo *repositories.ReminderConfigRepository) *ReminderConfigService {
	return &ReminderConfigService{repo: repo}
}

func (s *ReminderConfigService) List(ctx context.Context, ownerID string) ([]models.ReminderConfig, error) {
	return s.repo.List(ctx, ownerID)
}

func (s *ReminderConfigService) Get(ctx context.Context, ownerID, id string) (*models.ReminderConfig, error) {
	return s.repo.GetByID(ctx, ownerID, id)
}

func (s *ReminderConfigService) Create(ctx context.Context, ownerID string, config *models.ReminderConfig) error {
	config.OwnerID = ownerID
	if err := validateConfig(config); err != nil {
		return err
	}
	return s.repo.Create(ctx, config)
}

func (s *ReminderConfigService) Update(ctx context.Context, ownerID, id string, config *models.ReminderConfig) error {
	config.OwnerID = ownerID
	config.ID = id
	if err := validateConfig(config); err != nil {
		return err
	}
	return s.repo.Update(ctx, config)
}

func (s *ReminderConfigService) Delete(ctx context.Context, ownerID, id string) error {
	return s.repo.Delete(ctx, ownerID, id)
}

func validateConfig(config *models.ReminderConfig) error {
	if config.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}
	if !config.Type.Valid() {
		return models.ErrInvalidReminderType
	}
	for _, c := range config.Channels {
		if !c.Valid() {
			return models.ErrInvalidChannel
		}
	}
	if config.Template == "" {
		return fmt.Errorf("%w: template is required", ErrInvalidConfig)
	}
	if _, err := template.Render(config.Template, template.MessageData{}); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
