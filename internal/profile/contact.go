package profile

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"castenobar/internal/credential"
	"castenobar/internal/models"
)

var ErrNoContact = errors.New("member has not shared a WhatsApp number")

// ContactLink builds the WhatsApp deep link that opens a chat with the
// member, pre-filled with a greeting.
func ContactLink(p models.Profile) (string, error) {
	digits := credential.Normalize(p.WhatsAppNumber)
	if digits == "" {
		return "", ErrNoContact
	}
	greeting := fmt.Sprintf("Hi %s, I found your profile on Caste No Bar and would like to connect.", p.Name)
	return "https://wa.me/" + digits + "?text=" + strings.ReplaceAll(url.QueryEscape(greeting), "+", "%20"), nil
}

// ShareText is the plain-text summary a member copies to share a profile.
func ShareText(p models.Profile, now time.Time) string {
	age := "not specified"
	if info := p.AgeInfo(); info.Kind != models.AgeUnknown {
		age = strconv.Itoa(models.ResolveAge(info, now)) + " years"
	}
	about := p.AboutMe
	if strings.TrimSpace(about) == "" {
		about = "No description provided"
	}
	lines := []string{
		"Name: " + p.Name,
		"Age: " + age,
		"Profession: " + p.Profession,
		"City: " + p.City,
		"Marriage Timeline: " + string(p.MarriageTimeframe),
		"About: " + about,
		"WhatsApp: " + p.WhatsAppNumber,
		"Email: " + p.Email,
	}
	return strings.Join(lines, "\n")
}
