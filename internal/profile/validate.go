package profile

import (
	"errors"
	"path"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"castenobar/internal/credential"
	"castenobar/internal/models"
)

// ErrConsentRequired rejects a draft with any of the five consents unset.
var ErrConsentRequired = errors.New("All consent checkboxes must be checked to proceed")

// FieldError names the first draft field that failed validation.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// Draft is the field set a user submits from setup or settings.
type Draft struct {
	Name              string                   `json:"name" validate:"required"`
	Age               *int                     `json:"age,omitempty" validate:"required_without=DateOfBirth,omitempty,min=18,max=120"`
	DateOfBirth       string                   `json:"date_of_birth,omitempty" validate:"required_without=Age,omitempty,datetime=2006-01-02"`
	Profession        string                   `json:"profession" validate:"required"`
	Gender            models.Gender            `json:"gender" validate:"required,oneof=Male Female Other"`
	City              string                   `json:"city" validate:"required"`
	MarriageTimeframe models.MarriageTimeframe `json:"marriage_timeframe" validate:"required,oneof='Within 6 months' '6-12 months' '1-2 years' '2+ years'"`
	AboutMe           string                   `json:"about_me" validate:"max=500"` // models.MaxAboutMe
	WhatsAppNumber    string                   `json:"whatsapp_number" validate:"required,min=10"`
	Email             string                   `json:"email" validate:"required,email"`
	PhotoURL          string                   `json:"photo_url"`

	ConsentNoDowry       bool `json:"consent_no_dowry"`
	ConsentMedicalReport bool `json:"consent_medical_report"`
	ConsentAnyCaste      bool `json:"consent_any_caste"`
	ConsentAnyReligion   bool `json:"consent_any_religion"`
	ConsentShareContact  bool `json:"consent_share_contact"`
}

// DraftFrom pre-fills a draft from a stored profile, for editing.
func DraftFrom(p *models.Profile) Draft {
	d := Draft{
		Name:                 p.Name,
		Age:                  p.Age,
		Profession:           p.Profession,
		Gender:               p.Gender,
		City:                 p.City,
		MarriageTimeframe:    p.MarriageTimeframe,
		AboutMe:              p.AboutMe,
		WhatsAppNumber:       p.WhatsAppNumber,
		Email:                p.Email,
		PhotoURL:             p.PhotoURL,
		ConsentNoDowry:       p.ConsentNoDowry,
		ConsentMedicalReport: p.ConsentMedicalReport,
		ConsentAnyCaste:      p.ConsentAnyCaste,
		ConsentAnyReligion:   p.ConsentAnyReligion,
		ConsentShareContact:  p.ConsentShareContact,
	}
	if p.DateOfBirth != nil {
		d.DateOfBirth = *p.DateOfBirth
	}
	return d
}

func (d Draft) profile(ownerID string) *models.Profile {
	p := &models.Profile{
		UserID:               ownerID,
		Name:                 strings.TrimSpace(d.Name),
		Age:                  d.Age,
		Profession:           strings.TrimSpace(d.Profession),
		Gender:               d.Gender,
		City:                 strings.TrimSpace(d.City),
		MarriageTimeframe:    d.MarriageTimeframe,
		AboutMe:              d.AboutMe,
		PhotoURL:             d.PhotoURL,
		WhatsAppNumber:       strings.TrimSpace(d.WhatsAppNumber),
		Email:                strings.TrimSpace(d.Email),
		ConsentNoDowry:       d.ConsentNoDowry,
		ConsentMedicalReport: d.ConsentMedicalReport,
		ConsentAnyCaste:      d.ConsentAnyCaste,
		ConsentAnyReligion:   d.ConsentAnyReligion,
		ConsentShareContact:  d.ConsentShareContact,
	}
	if dob := strings.TrimSpace(d.DateOfBirth); dob != "" {
		p.DateOfBirth = &dob
	}
	return p
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks required fields first, then consents. It never touches
// the backend.
func Validate(d Draft) error {
	d.Name = strings.TrimSpace(d.Name)
	d.Profession = strings.TrimSpace(d.Profession)
	d.City = strings.TrimSpace(d.City)
	d.WhatsAppNumber = strings.TrimSpace(d.WhatsAppNumber)
	d.Email = strings.TrimSpace(d.Email)
	d.DateOfBirth = strings.TrimSpace(d.DateOfBirth)

	if err := validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fieldError(verrs[0])
		}
		return err
	}
	consents := []bool{d.ConsentNoDowry, d.ConsentMedicalReport, d.ConsentAnyCaste, d.ConsentAnyReligion, d.ConsentShareContact}
	for _, ok := range consents {
		if !ok {
			return ErrConsentRequired
		}
	}
	return nil
}

func fieldError(fe validator.FieldError) *FieldError {
	msg := "is invalid"
	switch fe.Tag() {
	case "required":
		msg = "is required"
	case "required_without":
		msg = "age or date of birth is required"
	case "oneof":
		msg = "must be one of: " + fe.Param()
	case "email":
		msg = "must be a valid email address"
	case "datetime":
		msg = "must be a date in YYYY-MM-DD format"
	case "min":
		msg = "must be at least " + fe.Param()
	case "max":
		msg = "must be at most " + fe.Param()
	}
	return &FieldError{Field: fe.Field(), Message: msg}
}

// CheckNumberUnchanged rejects a draft whose WhatsApp number differs from
// the stored one. The number is the member's sign-in login, so only its
// formatting may change.
func CheckNumberUnchanged(current *models.Profile, d Draft) error {
	if current == nil {
		return nil
	}
	if credential.Normalize(d.WhatsAppNumber) != credential.Normalize(current.WhatsAppNumber) {
		return &FieldError{Field: "whatsapp_number", Message: "cannot be changed; it is your sign-in number"}
	}
	return nil
}

var photoExts = map[string]bool{"jpg": true, "jpeg": true, "png": true, "webp": true, "gif": true, "heic": true}

// PhotoPath is the storage key of an owner's photo. Every upload for the
// same owner and extension lands on the same object.
func PhotoPath(ownerID, filename string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if ext == "" {
		ext = "jpg"
	}
	if !photoExts[ext] {
		return "", &FieldError{Field: "photo", Message: "must be an image (" + ext + " not supported)"}
	}
	return ownerID + "/profile." + ext, nil
}
