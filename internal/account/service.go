// Package account is the identity provider: it creates identities from a
// login id and secret, issues and verifies session tokens and announces
// session transitions to watching clients.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"castenobar/internal/models"
	"castenobar/internal/store"
)

var (
	ErrAccountExists      = errors.New("account already exists")
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrInvalidToken       = errors.New("invalid or expired session")
	ErrMissingCredentials = errors.New("login id and secret are required")
)

// Identities persists identities.
type Identities interface {
	CreateIdentity(ctx context.Context, identity *models.Identity) error
	IdentityByLoginID(ctx context.Context, loginID string) (*models.Identity, error)
	IdentityByID(ctx context.Context, id string) (*models.Identity, error)
}

type Service struct {
	identities Identities
	revoked    Revocations
	hub        *Hub
	logger     *zap.Logger
	secret     string
	ttl        time.Duration
	now        func() time.Time
}

func New(identities Identities, revoked Revocations, hub *Hub, logger *zap.Logger, secret string, ttl time.Duration) *Service {
	return &Service{
		identities: identities,
		revoked:    revoked,
		hub:        hub,
		logger:     logger,
		secret:     secret,
		ttl:        ttl,
		now:        time.Now,
	}
}

func (s *Service) Hub() *Hub { return s.hub }

// CreateAccount registers a new identity and signs it in.
func (s *Service) CreateAccount(ctx context.Context, loginID, secret string) (*models.Session, error) {
	loginID = strings.ToLower(strings.TrimSpace(loginID))
	if loginID == "" || secret == "" {
		return nil, ErrMissingCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash secret: %w", err)
	}
	identity := &models.Identity{
		ID:         uuid.NewString(),
		LoginID:    loginID,
		SecretHash: string(hash),
		CreatedAt:  s.now().UTC(),
	}
	if err := s.identities.CreateIdentity(ctx, identity); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("create identity: %w", err)
	}
	s.logger.Info("identity created", zap.String("identity_id", identity.ID))
	return s.issue(identity)
}

// Authenticate checks a login id and secret and issues a session.
func (s *Service) Authenticate(ctx context.Context, loginID, secret string) (*models.Session, error) {
	loginID = strings.ToLower(strings.TrimSpace(loginID))
	if loginID == "" || secret == "" {
		return nil, ErrMissingCredentials
	}
	identity, err := s.identities.IdentityByLoginID(ctx, loginID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load identity: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(identity.SecretHash), []byte(secret)); err != nil {
		return nil, ErrInvalidCredentials
	}
	s.logger.Info("identity authenticated", zap.String("identity_id", identity.ID))
	return s.issue(identity)
}

// Verify resolves a bearer token to its live session.
func (s *Service) Verify(ctx context.Context, token string) (*models.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims, err := parseToken(token, s.secret, s.now())
	if err != nil {
		return nil, ErrInvalidToken
	}
	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrInvalidToken
	}
	identity, err := s.identities.IdentityByID(ctx, claims.IdentityID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("load identity: %w", err)
	}
	return &models.Session{
		AccessToken: token,
		TokenID:     claims.ID,
		ExpiresAt:   claims.ExpiresAt.Time,
		Identity:    *identity,
	}, nil
}

// Refresh swaps a live token for a new one and retires the old one.
func (s *Service) Refresh(ctx context.Context, token string) (*models.Session, error) {
	current, err := s.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	next, err := s.issue(&current.Identity)
	if err != nil {
		return nil, err
	}
	if err := s.revoke(ctx, current); err != nil {
		return nil, err
	}
	s.hub.Publish(current.TokenID, Event{Type: EventTokenRefreshed, Session: next})
	return next, nil
}

// SignOut revokes the token until it would have expired anyway.
func (s *Service) SignOut(ctx context.Context, token string) error {
	current, err := s.Verify(ctx, token)
	if err != nil {
		return err
	}
	if err := s.revoke(ctx, current); err != nil {
		return err
	}
	s.hub.Publish(current.TokenID, Event{Type: EventSignedOut})
	s.logger.Info("signed out", zap.String("identity_id", current.Identity.ID))
	return nil
}

func (s *Service) revoke(ctx context.Context, sess *models.Session) error {
	if err := s.revoked.Revoke(ctx, sess.TokenID, sess.ExpiresAt.Sub(s.now())); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *Service) issue(identity *models.Identity) (*models.Session, error) {
	token, claims, err := generateToken(identity.ID, s.secret, s.now(), s.ttl)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &models.Session{
		AccessToken: token,
		TokenID:     claims.ID,
		ExpiresAt:   claims.ExpiresAt.Time,
		Identity:    *identity,
	}, nil
}
