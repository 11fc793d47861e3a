package store

import (
	"context"

	"gorm.io/gorm/clause"

	"castenobar/internal/models"
)

func (s *Store) SettingsByOwner(ctx context.Context, ownerID string) (*models.Settings, error) {
	var st models.Settings
	if err := s.conn(ctx).Where("user_id = ?", ownerID).First(&st).Error; err != nil {
		return nil, translate(err)
	}
	return &st, nil
}

// UpsertSettings writes every column, so false flags are stored as false.
func (s *Store) UpsertSettings(ctx context.Context, st *models.Settings) (*models.Settings, error) {
	err := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(st).Error
	if err != nil {
		return nil, translate(err)
	}
	return s.SettingsByOwner(ctx, st.UserID)
}
