package store

import (
	"context"

	"castenobar/internal/models"
)

func (s *Store) CreateIdentity(ctx context.Context, identity *models.Identity) error {
	return translate(s.conn(ctx).Create(identity).Error)
}

func (s *Store) IdentityByLoginID(ctx context.Context, loginID string) (*models.Identity, error) {
	var identity models.Identity
	if err := s.conn(ctx).Where("login_id = ?", loginID).First(&identity).Error; err != nil {
		return nil, translate(err)
	}
	return &identity, nil
}

func (s *Store) IdentityByID(ctx context.Context, id string) (*models.Identity, error) {
	var identity models.Identity
	if err := s.conn(ctx).Where("id = ?", id).First(&identity).Error; err != nil {
		return nil, translate(err)
	}
	return &identity, nil
}
