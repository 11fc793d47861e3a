package models

import "time"

type Settings struct {
	UserID               string    `gorm:"primaryKey;size:36" json:"user_id"`
	EmailNotifications   bool      `json:"email_notifications"`
	ProfileVisibility    bool      `json:"profile_visibility"`
	ShowWhatsAppPublicly bool      `json:"show_whatsapp_publicly"`
	ShowEmailPublicly    bool      `json:"show_email_publicly"`
	ThemePreference      string    `gorm:"default:system" json:"theme_preference"`
	LanguagePreference   string    `gorm:"default:en" json:"language_preference"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// DefaultSettings is what an owner sees before saving settings once.
func DefaultSettings(userID string) Settings {
	return Settings{
		UserID:               userID,
		EmailNotifications:   true,
		ProfileVisibility:    true,
		ShowWhatsAppPublicly: true,
		ShowEmailPublicly:    false,
		ThemePreference:      "system",
		LanguagePreference:   "en",
	}
}
