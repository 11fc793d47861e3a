package directory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"castenobar/internal/models"
)

var now = time.Date(2026, time.October, 16, 12, 0, 0, 0, time.UTC)

func aged(name, city string, gender models.Gender, profession string, age int) models.Profile {
	return models.Profile{Name: name, City: city, Gender: gender, Profession: profession, Age: &age}
}

func born(name, dob string) models.Profile {
	return models.Profile{Name: name, City: "Mumbai", DateOfBirth: &dob}
}

func sample() []models.Profile {
	return []models.Profile{
		aged("Priya", "Chennai", models.GenderFemale, "Doctor", 28),
		aged("Arun", "Chennai", models.GenderMale, "Teacher", 40),
		aged("Meera", "Bengaluru", models.GenderFemale, "Software Engineer", 27),
		aged("Rahul", "Delhi", models.GenderMale, "Engineer", 33),
		aged("Sam", "New Chennai Nagar", models.GenderOther, "Artist", 45),
	}
}

func names(ps []models.Profile) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Name)
	}
	return out
}

func TestEmptyCriteriaIsIdentity(t *testing.T) {
	in := sample()
	assert.Equal(t, in, Filter(in, Criteria{}, now))
	assert.Equal(t, in, Filter(in, Criteria{Gender: "all", AgeBand: "all"}, now))
}

func TestFilterIsSubsetInInputOrder(t *testing.T) {
	in := sample()
	criteria := []Criteria{
		{City: "chen"},
		{Gender: "Male"},
		{Profession: "ENGINEER"},
		{AgeBand: "26-30"},
		{City: "x", Gender: "Female"},
	}
	for _, c := range criteria {
		out := Filter(in, c, now)
		j := 0
		for _, p := range out {
			for j < len(in) && in[j].Name != p.Name {
				j++
			}
			require.Lessf(t, j, len(in), "%s not found in order for %+v", p.Name, c)
			j++
		}
	}
}

func TestChennaiAged26To30(t *testing.T) {
	out := Filter(sample(), Criteria{City: "Chennai", Gender: "all", AgeBand: "26-30"}, now)
	assert.Equal(t, []string{"Priya"}, names(out))
}

func TestSubstringMatchesAreCaseInsensitive(t *testing.T) {
	assert.Equal(t, []string{"Priya", "Arun", "Sam"}, names(Filter(sample(), Criteria{City: "CHENNAI"}, now)))
	assert.Equal(t, []string{"Meera", "Rahul"}, names(Filter(sample(), Criteria{Profession: "engineer"}, now)))
}

func TestGenderIsExact(t *testing.T) {
	assert.Equal(t, []string{"Arun", "Rahul"}, names(Filter(sample(), Criteria{Gender: "Male"}, now)))
	assert.Empty(t, Filter(sample(), Criteria{Gender: "male"}, now))
}

func TestBandBoundaries(t *testing.T) {
	in := []models.Profile{aged("twenty-five", "", "", "", 25), aged("twenty-six", "", "", "", 26)}

	assert.Equal(t, []string{"twenty-five"}, names(Filter(in, Criteria{AgeBand: "18-25"}, now)))
	assert.Equal(t, []string{"twenty-six"}, names(Filter(in, Criteria{AgeBand: "26-30"}, now)))
}

func TestOldestBandByLabel(t *testing.T) {
	in := []models.Profile{aged("fifty", "", "", "", 50), aged("fifty-one", "", "", "", 51)}
	assert.Equal(t, []string{"fifty"}, names(Filter(in, Criteria{AgeBand: "41+"}, now)))
	assert.Equal(t, []string{"fifty"}, names(Filter(in, Criteria{AgeBand: "41-50"}, now)))
}

func TestDateOfBirthIsCalendarAware(t *testing.T) {
	in := []models.Profile{
		born("turned 26 yesterday", "2000-10-15"),
		born("turns 26 tomorrow", "2000-10-17"),
	}
	assert.Equal(t, []string{"turns 26 tomorrow"}, names(Filter(in, Criteria{AgeBand: "18-25"}, now)))
	assert.Equal(t, []string{"turned 26 yesterday"}, names(Filter(in, Criteria{AgeBand: "26-30"}, now)))
}

func TestUnknownAgeOnlyMatchesAll(t *testing.T) {
	in := []models.Profile{{Name: "nobody"}}
	for _, b := range Bands() {
		assert.Empty(t, Filter(in, Criteria{AgeBand: b.Key}, now), b.Key)
	}
	assert.Len(t, Filter(in, Criteria{AgeBand: All}, now), 1)
}

func TestUnknownBandMatchesNothing(t *testing.T) {
	assert.Empty(t, Filter(sample(), Criteria{AgeBand: "60-70"}, now))
}

func TestBandsAreFixed(t *testing.T) {
	var labels []string
	for _, b := range Bands() {
		labels = append(labels, b.Label)
	}
	assert.Equal(t, []string{"18-25", "26-30", "31-35", "36-40", "41+"}, labels)
}
