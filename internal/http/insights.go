package http

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"castenobar/internal/directory"
	"castenobar/internal/models"
	"castenobar/internal/store"
)

const topCities = 10

type Breakdown struct {
	Label      string  `json:"label"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type Overview struct {
	TotalProfiles  int         `json:"total_profiles"`
	Complete       int         `json:"complete"`
	Incomplete     int         `json:"incomplete"`
	FullyConsented int         `json:"fully_consented"`
	ByGender       []Breakdown `json:"by_gender"`
	ByAgeBand      []Breakdown `json:"by_age_band"`
	TopCities      []Breakdown `json:"top_cities"`
}

// GET /v1/admin/overview
func (s *Server) adminOverview(c *gin.Context) {
	sess := sessionFrom(c)
	ctx, cancel := s.requestContext(c)
	defer cancel()

	if sess.Identity.LoginID != s.cfg.AdminLoginID {
		p, err := s.tables.ProfileByOwner(ctx, sess.Identity.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			s.logger.Error("load profile", zap.Error(err))
			c.JSON(500, gin.H{"error": "db_error"})
			return
		}
		if p == nil || !p.IsAdmin {
			c.JSON(403, gin.H{"error": "admin_only"})
			return
		}
	}

	profiles, err := s.tables.AllProfiles(ctx)
	if err != nil {
		s.logger.Error("load profiles", zap.Error(err))
		c.JSON(500, gin.H{"error": "db_error"})
		return
	}
	c.JSON(200, buildOverview(profiles, time.Now()))
}

func buildOverview(profiles []models.Profile, now time.Time) Overview {
	res := Overview{
		TotalProfiles: len(profiles),
		ByGender:      []Breakdown{},
		ByAgeBand:     []Breakdown{},
		TopCities:     []Breakdown{},
	}

	genders := make(map[string]int)
	bands := make(map[string]int)
	cities := make(map[string]int)
	cityLabel := make(map[string]string)

	for i := range profiles {
		p := &profiles[i]
		if p.IsComplete() {
			res.Complete++
		} else {
			res.Incomplete++
		}
		if p.Consented() {
			res.FullyConsented++
		}

		g := string(p.Gender)
		if g == "" {
			g = "Unspecified"
		}
		genders[g]++

		bands[bandLabel(p, now)]++

		if city := strings.TrimSpace(p.City); city != "" {
			key := strings.ToLower(city)
			if _, ok := cityLabel[key]; !ok {
				cityLabel[key] = city
			}
			cities[key]++
		}
	}

	for _, g := range []models.Gender{models.GenderMale, models.GenderFemale, models.GenderOther} {
		if n := genders[string(g)]; n > 0 {
			res.ByGender = append(res.ByGender, breakdown(string(g), n, res.TotalProfiles))
		}
	}
	if n := genders["Unspecified"]; n > 0 {
		res.ByGender = append(res.ByGender, breakdown("Unspecified", n, res.TotalProfiles))
	}

	for _, b := range directory.Bands() {
		if n := bands[b.Label]; n > 0 {
			res.ByAgeBand = append(res.ByAgeBand, breakdown(b.Label, n, res.TotalProfiles))
		}
	}
	if n := bands["Other"]; n > 0 {
		res.ByAgeBand = append(res.ByAgeBand, breakdown("Other", n, res.TotalProfiles))
	}

	for key, n := range cities {
		res.TopCities = append(res.TopCities, breakdown(cityLabel[key], n, res.TotalProfiles))
	}
	sort.Slice(res.TopCities, func(i, j int) bool {
		if res.TopCities[i].Count != res.TopCities[j].Count {
			return res.TopCities[i].Count > res.TopCities[j].Count
		}
		return res.TopCities[i].Label < res.TopCities[j].Label
	})
	if len(res.TopCities) > topCities {
		res.TopCities = res.TopCities[:topCities]
	}
	return res
}

// bandLabel places a profile in its directory age band, or "Other" when the
// resolved age is outside every band.
func bandLabel(p *models.Profile, now time.Time) string {
	age := models.ResolveAge(p.AgeInfo(), now)
	for _, b := range directory.Bands() {
		if b.Contains(age) {
			return b.Label
		}
	}
	return "Other"
}

func breakdown(label string, n, total int) Breakdown {
	pct := 0.0
	if total > 0 {
		pct = float64(n) / float64(total) * 100
	}
	return Breakdown{Label: label, Count: n, Percentage: pct}
}
