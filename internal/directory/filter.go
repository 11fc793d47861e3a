// Package directory narrows the list of member profiles shown to a
// signed-in user.
package directory

import (
	"strings"
	"time"

	"castenobar/internal/models"
)

// All is the criterion value that disables a gender or age filter.
const All = "all"

type Band struct {
	Key   string
	Label string
	Min   int
	Max   int
}

var bands = []Band{
	{Key: "18-25", Label: "18-25", Min: 18, Max: 25},
	{Key: "26-30", Label: "26-30", Min: 26, Max: 30},
	{Key: "31-35", Label: "31-35", Min: 31, Max: 35},
	{Key: "36-40", Label: "36-40", Min: 36, Max: 40},
	{Key: "41-50", Label: "41+", Min: 41, Max: 50},
}

// Bands returns the fixed age bands in ascending order.
func Bands() []Band {
	return append([]Band(nil), bands...)
}

// ParseBand looks a band up by key or label.
func ParseBand(s string) (Band, bool) {
	s = strings.TrimSpace(s)
	for _, b := range bands {
		if s == b.Key || s == b.Label {
			return b, true
		}
	}
	return Band{}, false
}

func (b Band) Contains(age int) bool {
	return age >= b.Min && age <= b.Max
}

type Criteria struct {
	City       string `form:"city" json:"city"`
	Gender     string `form:"gender" json:"gender"`
	Profession string `form:"profession" json:"profession"`
	AgeBand    string `form:"age" json:"age"`
}

// Filter returns the profiles matching every non-empty criterion, in input
// order. An unknown age band matches nothing.
func Filter(profiles []models.Profile, c Criteria, now time.Time) []models.Profile {
	city := strings.ToLower(strings.TrimSpace(c.City))
	profession := strings.ToLower(strings.TrimSpace(c.Profession))
	gender := strings.TrimSpace(c.Gender)
	if strings.EqualFold(gender, All) {
		gender = ""
	}

	var band *Band
	if key := strings.TrimSpace(c.AgeBand); key != "" && !strings.EqualFold(key, All) {
		b, ok := ParseBand(key)
		if !ok {
			return []models.Profile{}
		}
		band = &b
	}

	out := make([]models.Profile, 0, len(profiles))
	for _, p := range profiles {
		if city != "" && !strings.Contains(strings.ToLower(p.City), city) {
			continue
		}
		if gender != "" && string(p.Gender) != gender {
			continue
		}
		if profession != "" && !strings.Contains(strings.ToLower(p.Profession), profession) {
			continue
		}
		if band != nil && !band.Contains(models.ResolveAge(p.AgeInfo(), now)) {
			continue
		}
		out = append(out, p)
	}
	return out
}
