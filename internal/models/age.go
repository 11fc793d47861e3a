package models

import "time"

type AgeKind int

const (
	AgeUnknown AgeKind = iota
	AgeYears
	AgeDateOfBirth
)

// Age is either a stored age in years, a date of birth, or unknown.
type Age struct {
	Kind        AgeKind
	Years       int
	DateOfBirth time.Time
}

func KnownAge(years int) Age { return Age{Kind: AgeYears, Years: years} }

func BornOn(dob time.Time) Age { return Age{Kind: AgeDateOfBirth, DateOfBirth: dob} }

// ResolveAge returns whole years at now. A birthday not yet reached this
// year does not count. Unknown ages resolve to 0.
func ResolveAge(a Age, now time.Time) int {
	switch a.Kind {
	case AgeYears:
		return a.Years
	case AgeDateOfBirth:
		dob := a.DateOfBirth
		years := now.Year() - dob.Year()
		if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
			years--
		}
		if years < 0 {
			return 0
		}
		return years
	}
	return 0
}
