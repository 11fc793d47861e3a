package models

import (
	"time"
)

type Identity struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	LoginID    string    `gorm:"uniqueIndex;not null" json:"login_id"` // <digits>@cnb.app
	SecretHash string    `json:"-"`                                    // Bcrypt hash, hidden from JSON
	CreatedAt  time.Time `json:"created_at"`
}

// Session is a time-bounded proof that a client acts as an Identity.
type Session struct {
	AccessToken string    `json:"access_token"`
	TokenID     string    `json:"-"`
	ExpiresAt   time.Time `json:"expires_at"`
	Identity    Identity  `json:"identity"`
}

func (s *Session) Expired(now time.Time) bool {
	return s == nil || !now.Before(s.ExpiresAt)
}
