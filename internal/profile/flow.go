// Package profile implements profile setup and editing, member settings and
// the contact helpers used from a member's details view.
package profile

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"castenobar/internal/models"
)

// Tables is the remote table store as seen by the owner of a profile.
type Tables interface {
	// ProfileByOwner returns nil, nil when the owner has no row.
	ProfileByOwner(ctx context.Context, ownerID string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, ownerID string, p *models.Profile) (*models.Profile, error)
	// Settings returns nil, nil when the owner has never saved settings.
	Settings(ctx context.Context, ownerID string) (*models.Settings, error)
	UpsertSettings(ctx context.Context, s *models.Settings) (*models.Settings, error)
}

// Blobs is the remote photo storage.
type Blobs interface {
	Upload(ctx context.Context, path string, body io.Reader, overwrite bool) (string, error)
	PublicURL(path string) string
}

type Photo struct {
	Filename string
	Body     io.Reader
}

type Flow struct {
	tables Tables
	blobs  Blobs
	logger *zap.Logger
}

func NewFlow(tables Tables, blobs Blobs, logger *zap.Logger) *Flow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Flow{tables: tables, blobs: blobs, logger: logger}
}

// Submit validates the draft, uploads the photo if one is given and then
// overwrites the owner's profile row with the draft's field set. An upload
// failure aborts before the row is touched. A row update failing after a
// successful upload leaves the new photo in place; the next submission
// overwrites the same object.
func (f *Flow) Submit(ctx context.Context, ownerID string, d Draft, photo *Photo) (*models.Profile, error) {
	if err := Validate(d); err != nil {
		return nil, err
	}
	row := d.profile(ownerID)

	if photo != nil {
		key, err := PhotoPath(ownerID, photo.Filename)
		if err != nil {
			return nil, err
		}
		stored, err := f.blobs.Upload(ctx, key, photo.Body, true)
		if err != nil {
			f.logger.Warn("photo upload failed", zap.String("user_id", ownerID), zap.Error(err))
			return nil, fmt.Errorf("upload photo: %w", err)
		}
		row.PhotoURL = f.blobs.PublicURL(stored)
	}

	updated, err := f.tables.UpdateProfile(ctx, ownerID, row)
	if err != nil {
		f.logger.Warn("profile update failed", zap.String("user_id", ownerID), zap.Error(err))
		return nil, fmt.Errorf("update profile: %w", err)
	}
	f.logger.Info("profile saved", zap.String("user_id", ownerID), zap.Bool("complete", updated.IsComplete()))
	return updated, nil
}

// Load returns the owner's profile and settings, defaulting settings that
// were never saved.
func (f *Flow) Load(ctx context.Context, ownerID string) (*models.Profile, *models.Settings, error) {
	p, err := f.tables.ProfileByOwner(ctx, ownerID)
	if err != nil {
		return nil, nil, fmt.Errorf("load profile: %w", err)
	}
	s, err := f.tables.Settings(ctx, ownerID)
	if err != nil {
		return nil, nil, fmt.Errorf("load settings: %w", err)
	}
	if s == nil {
		def := models.DefaultSettings(ownerID)
		s = &def
	}
	return p, s, nil
}

// SaveSettings upserts the owner's settings row.
func (f *Flow) SaveSettings(ctx context.Context, ownerID string, s models.Settings) (*models.Settings, error) {
	s.UserID = ownerID
	if s.ThemePreference == "" {
		s.ThemePreference = "system"
	}
	if s.LanguagePreference == "" {
		s.LanguagePreference = "en"
	}
	saved, err := f.tables.UpsertSettings(ctx, &s)
	if err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	return saved, nil
}
