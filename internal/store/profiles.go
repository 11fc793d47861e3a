package store

import (
	"context"

	"castenobar/internal/models"
)

// editableColumns is everything an owner may overwrite on their own row.
// user_id, whatsapp_number and is_admin stay as inserted.
var editableColumns = []string{
	"name", "age", "date_of_birth", "profession", "gender", "city",
	"marriage_timeframe", "about_me", "photo_url", "email",
	"consent_no_dowry", "consent_medical_report", "consent_any_caste",
	"consent_any_religion", "consent_share_contact", "updated_at",
}

// Listing is a directory row together with its owner's settings.
type Listing struct {
	Profile  models.Profile
	Settings models.Settings
}

func (s *Store) InsertProfile(ctx context.Context, p *models.Profile) error {
	return translate(s.conn(ctx).Create(p).Error)
}

// UpdateProfile overwrites the editable columns of the owner's row, zero
// values included.
func (s *Store) UpdateProfile(ctx context.Context, ownerID string, p *models.Profile) (*models.Profile, error) {
	res := s.conn(ctx).Model(&models.Profile{}).
		Where("user_id = ?", ownerID).
		Select(editableColumns).
		Updates(p)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.ProfileByOwner(ctx, ownerID)
}

func (s *Store) ProfileByOwner(ctx context.Context, ownerID string) (*models.Profile, error) {
	var p models.Profile
	if err := s.conn(ctx).Where("user_id = ?", ownerID).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) ProfileByPhone(ctx context.Context, whatsappNumber string) (*models.Profile, error) {
	var p models.Profile
	if err := s.conn(ctx).Where("whatsapp_number = ?", whatsappNumber).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) ProfileExists(ctx context.Context, whatsappNumber string) (bool, error) {
	var n int64
	err := s.conn(ctx).Model(&models.Profile{}).
		Where("whatsapp_number = ?", whatsappNumber).
		Count(&n).Error
	return n > 0, translate(err)
}

// ListExcept returns every profile but the owner's whose owner has not
// hidden it, in insertion order.
func (s *Store) ListExcept(ctx context.Context, ownerID string) ([]Listing, error) {
	var rows []models.Profile
	if err := s.conn(ctx).Where("user_id <> ?", ownerID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	settings, err := s.settingsFor(ctx, rows)
	if err != nil {
		return nil, err
	}
	out := make([]Listing, 0, len(rows))
	for _, p := range rows {
		st, ok := settings[p.UserID]
		if !ok {
			st = models.DefaultSettings(p.UserID)
		}
		if !st.ProfileVisibility {
			continue
		}
		out = append(out, Listing{Profile: p, Settings: st})
	}
	return out, nil
}

// AllProfiles feeds the admin overview.
func (s *Store) AllProfiles(ctx context.Context) ([]models.Profile, error) {
	var rows []models.Profile
	if err := s.conn(ctx).Order("id asc").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	return rows, nil
}

func (s *Store) settingsFor(ctx context.Context, rows []models.Profile) (map[string]models.Settings, error) {
	out := make(map[string]models.Settings, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]string, 0, len(rows))
	for _, p := range rows {
		ids = append(ids, p.UserID)
	}
	var found []models.Settings
	if err := s.conn(ctx).Where("user_id IN ?", ids).Find(&found).Error; err != nil {
		return nil, translate(err)
	}
	for _, st := range found {
		out[st.UserID] = st
	}
	return out, nil
}
