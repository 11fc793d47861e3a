package http

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"castenobar/internal/credential"
	"castenobar/internal/models"
	"castenobar/internal/store"
)

// POST /v1/profiles
func (s *Server) createProfile(c *gin.Context) {
	sess := sessionFrom(c)
	var p models.Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	p.WhatsAppNumber = strings.TrimSpace(p.WhatsAppNumber)
	if p.WhatsAppNumber == "" {
		c.JSON(400, gin.H{"error": "whatsapp_number is required"})
		return
	}
	// The row's number must be the one the identity signed up with.
	if credential.ToCredential(p.WhatsAppNumber, "").LoginID != sess.Identity.LoginID {
		c.JSON(403, gin.H{"error": "whatsapp_number_mismatch"})
		return
	}
	p.ID = 0
	p.UserID = sess.Identity.ID
	p.IsAdmin = sess.Identity.LoginID == s.cfg.AdminLoginID

	ctx, cancel := s.requestContext(c)
	defer cancel()
	if err := s.tables.InsertProfile(ctx, &p); err != nil {
		if errors.Is(err, store.ErrConflict) {
			c.JSON(409, gin.H{"error": "profile_exists"})
			return
		}
		s.logger.Error("insert profile", zap.Error(err))
		c.JSON(500, gin.H{"error": "db_error"})
		return
	}
	c.JSON(201, p)
}

// GET /v1/profiles
func (s *Server) listProfiles(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	listings, err := s.tables.ListExcept(ctx, identityID(c))
	if err != nil {
		s.logger.Error("list profiles", zap.Error(err))
		c.JSON(500, gin.H{"error": "db_error"})
		return
	}
	out := make([]models.Profile, 0, len(listings))
	for _, l := range listings {
		out = append(out, masked(l))
	}
	c.JSON(200, out)
}

// masked hides the contact fields the owner chose not to show.
func masked(l store.Listing) models.Profile {
	p := l.Profile
	if !l.Settings.ShowWhatsAppPublicly {
		p.WhatsAppNumber = ""
	}
	if !l.Settings.ShowEmailPublicly {
		p.Email = ""
	}
	return p
}

// GET /v1/profiles/me
func (s *Server) getOwnProfile(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	p, err := s.tables.ProfileByOwner(ctx, identityID(c))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(404, gin.H{"error": "profile_not_found"})
			return
		}
		s.logger.Error("load profile", zap.Error(err))
		c.JSON(500, gin.H{"error": "db_error"})
		return
	}
	c.JSON(200, p)
}

// PUT /v1/profiles/me
func (s *Server) updateOwnProfile(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(400, gin.H{"error": "failed to read body"})
		return
	}
	res, err := s.validator.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		c.JSON(400, gin.H{"error": "invalid_json"})
		return
	}
	if !res.Valid() {
		d := []string{}
		for _, e := range res.Errors() {
			d = append(d, e.String())
		}
		c.JSON(422, gin.H{"error": "schema_invalid", "details": d})
		return
	}
	var p models.Profile
	if err := json.Unmarshal(body, &p); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	// The number is the sign-in login; it can be reformatted but not changed.
	if credential.ToCredential(p.WhatsAppNumber, "").LoginID != sessionFrom(c).Identity.LoginID {
		c.JSON(422, gin.H{"error": "whatsapp_number_immutable"})
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()
	updated, err := s.tables.UpdateProfile(ctx, identityID(c), &p)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(404, gin.H{"error": "profile_not_found"})
		case errors.Is(err, store.ErrConflict):
			c.JSON(409, gin.H{"error": "profile_conflict"})
		default:
			s.logger.Error("update profile", zap.Error(err))
			c.JSON(500, gin.H{"error": "Failed to update profile."})
		}
		return
	}
	c.JSON(200, updated)
}

// GET /v1/settings
func (s *Server) getSettings(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	owner := identityID(c)
	st, err := s.tables.SettingsByOwner(ctx, owner)
	if errors.Is(err, store.ErrNotFound) {
		def := models.DefaultSettings(owner)
		c.JSON(200, def)
		return
	}
	if err != nil {
		s.logger.Error("load settings", zap.Error(err))
		c.JSON(500, gin.H{"error": "db_error"})
		return
	}
	c.JSON(200, st)
}

// PUT /v1/settings
func (s *Server) updateSettings(c *gin.Context) {
	var st models.Settings
	if err := c.ShouldBindJSON(&st); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	st.UserID = identityID(c)
	def := models.DefaultSettings(st.UserID)
	if strings.TrimSpace(st.ThemePreference) == "" {
		st.ThemePreference = def.ThemePreference
	}
	if strings.TrimSpace(st.LanguagePreference) == "" {
		st.LanguagePreference = def.LanguagePreference
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()
	saved, err := s.tables.UpsertSettings(ctx, &st)
	if err != nil {
		s.logger.Error("save settings", zap.Error(err))
		c.JSON(500, gin.H{"error": "db_error"})
		return
	}
	c.JSON(200, saved)
}
