package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campusdocs/proof-archive/internal/models"
	"github.com/campusdocs/proof-archive/internal/repositories"
)

type TokenPostgreSQL struct {
	db *gorm.DB
}

func NewTokenPostgreSQL(db *gorm.DB) repositories.TokenRepository {
	return &TokenPostgreSQL{db: db}
}

func (t *TokenPostgreSQL) Revoke(ctx context.Context, token *models.RevokedToken) error {
	if err := t.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "token_id"}}, DoNothing: true}).
		Create(token).Error; err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (t *TokenPostgreSQL) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var count int64
	if err := t.db.WithContext(ctx).
		Model(&models.RevokedToken{}).
		Where("token_id = ?", tokenID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check revoked token: %w", err)
	}
	return count > 0, nil
}

func (t *TokenPostgreSQL) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result := t.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.RevokedToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge revoked tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}
