package http

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"castenobar/internal/account"
)

type credentialsInput struct {
	LoginID string `json:"login_id" binding:"required"`
	Secret  string `json:"secret" binding:"required"`
}

// POST /v1/auth/signup
func (s *Server) authSignup(c *gin.Context) {
	var input credentialsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	ctx, cancel := s.requestContext(c)
	defer cancel()

	sess, err := s.accounts.CreateAccount(ctx, input.LoginID, input.Secret)
	switch {
	case errors.Is(err, account.ErrAccountExists):
		c.JSON(409, gin.H{"error": "account_exists"})
		return
	case errors.Is(err, account.ErrMissingCredentials):
		c.JSON(400, gin.H{"error": err.Error()})
		return
	case err != nil:
		s.logger.Error("create account", zap.Error(err))
		c.JSON(500, gin.H{"error": "account_create_failed"})
		return
	}
	c.JSON(201, sess)
}

// POST /v1/auth/token
func (s *Server) authToken(c *gin.Context) {
	var input credentialsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	ctx, cancel := s.requestContext(c)
	defer cancel()

	sess, err := s.accounts.Authenticate(ctx, input.LoginID, input.Secret)
	switch {
	case errors.Is(err, account.ErrInvalidCredentials), errors.Is(err, account.ErrMissingCredentials):
		c.JSON(401, gin.H{"error": "invalid_credentials"})
		return
	case err != nil:
		s.logger.Error("authenticate", zap.Error(err))
		c.JSON(500, gin.H{"error": "authentication_failed"})
		return
	}
	c.JSON(200, sess)
}

// GET /v1/auth/session
func (s *Server) authSession(c *gin.Context) {
	c.JSON(200, sessionFrom(c))
}

// POST /v1/auth/refresh
func (s *Server) authRefresh(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	sess, err := s.accounts.Refresh(ctx, sessionFrom(c).AccessToken)
	if err != nil {
		if errors.Is(err, account.ErrInvalidToken) {
			c.JSON(401, gin.H{"error": "invalid_session"})
			return
		}
		s.logger.Error("refresh session", zap.Error(err))
		c.JSON(500, gin.H{"error": "refresh_failed"})
		return
	}
	c.JSON(200, sess)
}

// POST /v1/auth/signout
func (s *Server) authSignOut(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	if err := s.accounts.SignOut(ctx, sessionFrom(c).AccessToken); err != nil {
		if errors.Is(err, account.ErrInvalidToken) {
			c.JSON(401, gin.H{"error": "invalid_session"})
			return
		}
		s.logger.Error("sign out", zap.Error(err))
		c.JSON(500, gin.H{"error": "signout_failed"})
		return
	}
	c.JSON(200, gin.H{"message": "signed_out"})
}

// GET /v1/profiles/exists?whatsapp_number=
func (s *Server) profileExists(c *gin.Context) {
	phone := strings.TrimSpace(c.Query("whatsapp_number"))
	if phone == "" {
		c.JSON(400, gin.H{"error": "whatsapp_number is required"})
		return
	}
	ctx, cancel := s.requestContext(c)
	defer cancel()

	exists, err := s.tables.ProfileExists(ctx, phone)
	if err != nil {
		s.logger.Error("profile lookup", zap.Error(err))
		c.JSON(500, gin.H{"error": "db_error"})
		return
	}
	c.JSON(200, gin.H{"exists": exists})
}
