package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/campusdocs/proof-archive/internal/models"
	"github.com/campusdocs/proof-archive/internal/repositories"
)

type EventPostgreSQL struct {
	db *gorm.DB
}

func NewEventPostgreSQL(db *gorm.DB) repositories.EventRepository {
	return &EventPostgreSQL{db: db}
}

func (e *EventPostgreSQL) Create(ctx context.Context, event *models.Event) error {
	if err := e.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (e *EventPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	if err := e.db.WithContext(ctx).First(&event, id).Error; err != nil {
		return nil, wrapNotFound(err, "failed to get event %d", id)
	}
	return &event, nil
}
