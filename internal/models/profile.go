package models

import (
	"strings"
	"time"
)

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

type MarriageTimeframe string

const (
	TimeframeWithin6Months MarriageTimeframe = "Within 6 months"
	Timeframe6To12Months   MarriageTimeframe = "6-12 months"
	Timeframe1To2Years     MarriageTimeframe = "1-2 years"
	Timeframe2PlusYears    MarriageTimeframe = "2+ years"
)

func Timeframes() []MarriageTimeframe {
	return []MarriageTimeframe{TimeframeWithin6Months, Timeframe6To12Months, Timeframe1To2Years, Timeframe2PlusYears}
}

func (m MarriageTimeframe) Valid() bool {
	for _, t := range Timeframes() {
		if m == t {
			return true
		}
	}
	return false
}

// MaxAboutMe bounds the free-text "about me" field, in characters.
const MaxAboutMe = 500

// DateLayout is the storage format of DateOfBirth.
const DateLayout = "2006-01-02"

type Profile struct {
	ID                   uint              `gorm:"primaryKey" json:"id"`
	UserID               string            `gorm:"uniqueIndex;size:36;not null" json:"user_id"`
	Name                 string            `json:"name"`
	Age                  *int              `json:"age,omitempty"`
	DateOfBirth          *string           `json:"date_of_birth,omitempty"`
	Profession           string            `json:"profession"`
	Gender               Gender            `json:"gender"`
	City                 string            `json:"city"`
	MarriageTimeframe    MarriageTimeframe `json:"marriage_timeframe"`
	AboutMe              string            `gorm:"size:500" json:"about_me"`
	PhotoURL             string            `json:"photo_url"`
	WhatsAppNumber       string            `gorm:"uniqueIndex;not null" json:"whatsapp_number"`
	Email                string            `json:"email"`
	ConsentNoDowry       bool              `json:"consent_no_dowry"`
	ConsentMedicalReport bool              `json:"consent_medical_report"`
	ConsentAnyCaste      bool              `json:"consent_any_caste"`
	ConsentAnyReligion   bool              `json:"consent_any_religion"`
	ConsentShareContact  bool              `json:"consent_share_contact"`
	IsAdmin              bool              `gorm:"default:false" json:"is_admin"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// IsComplete reports whether the owner has finished setup. Incomplete
// profiles are routed to the setup flow instead of the directory.
func (p *Profile) IsComplete() bool {
	return p != nil &&
		strings.TrimSpace(p.Name) != "" &&
		strings.TrimSpace(p.Profession) != "" &&
		strings.TrimSpace(p.City) != ""
}

func (p *Profile) Consented() bool {
	return p.ConsentNoDowry && p.ConsentMedicalReport && p.ConsentAnyCaste &&
		p.ConsentAnyReligion && p.ConsentShareContact
}

// AgeInfo classifies which of age or date of birth the profile carries.
func (p *Profile) AgeInfo() Age {
	if p.Age != nil && *p.Age > 0 {
		return KnownAge(*p.Age)
	}
	if p.DateOfBirth != nil {
		if dob, err := time.Parse(DateLayout, strings.TrimSpace(*p.DateOfBirth)); err == nil {
			return BornOn(dob)
		}
	}
	return Age{}
}
