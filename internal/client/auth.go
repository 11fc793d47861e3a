package client

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"castenobar/internal/credential"
	"castenobar/internal/models"
	"castenobar/internal/session"
)

type credentialsRequest struct {
	LoginID string `json:"login_id"`
	Secret  string `json:"secret"`
}

// CreateAccount registers the credential and keeps the issued session.
func (c *Client) CreateAccount(ctx context.Context, cred credential.Credential) (*models.Session, error) {
	var s models.Session
	err := c.Post(ctx, "/v1/auth/signup", credentialsRequest{LoginID: cred.LoginID, Secret: cred.Secret}, &s)
	if err != nil {
		if StatusOf(err) == 409 {
			return nil, session.ErrAlreadyExists
		}
		return nil, err
	}
	if err := c.adopt(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Authenticate exchanges the credential for a session. A refusal wraps
// session.ErrCredentialsRejected.
func (c *Client) Authenticate(ctx context.Context, cred credential.Credential) (*models.Session, error) {
	var s models.Session
	err := c.Post(ctx, "/v1/auth/token", credentialsRequest{LoginID: cred.LoginID, Secret: cred.Secret}, &s)
	if err != nil {
		if StatusOf(err) == 401 {
			return nil, fmt.Errorf("%w: %w", session.ErrCredentialsRejected, err)
		}
		return nil, err
	}
	if err := c.adopt(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// CurrentSession checks the stored token with the server. A token the
// server no longer accepts is forgotten and nil, nil returned.
func (c *Client) CurrentSession(ctx context.Context) (*models.Session, error) {
	c.mu.Lock()
	if c.session == nil {
		stored, err := c.tokens.Load()
		if err != nil {
			c.mu.Unlock()
			return nil, err
		}
		c.session = stored
	}
	has := c.session != nil
	c.mu.Unlock()
	if !has {
		return nil, nil
	}

	var s models.Session
	if err := c.Get(ctx, "/v1/auth/session", &s); err != nil {
		if StatusOf(err) == 401 {
			c.forget()
			return nil, nil
		}
		return nil, err
	}
	if err := c.adopt(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Refresh swaps the current token for a fresh one and reports it.
func (c *Client) Refresh(ctx context.Context) (*models.Session, error) {
	var s models.Session
	if err := c.Post(ctx, "/v1/auth/refresh", nil, &s); err != nil {
		if StatusOf(err) == 401 {
			c.forget()
			c.publish(session.Change{Event: session.EventExpired})
		}
		return nil, err
	}
	if err := c.adopt(&s); err != nil {
		return nil, err
	}
	c.publish(session.Change{Event: session.EventTokenRefreshed, Session: &s})
	return &s, nil
}

// SignOut ends the session on the server and forgets it locally either
// way. A token the server had already dropped is not an error.
func (c *Client) SignOut(ctx context.Context) error {
	if c.token() == "" {
		return c.forget()
	}
	err := c.Post(ctx, "/v1/auth/signout", nil, nil)
	if ferr := c.forget(); ferr != nil {
		c.logger.Warn("clear stored session", zap.Error(ferr))
	}
	if err != nil && StatusOf(err) != 401 {
		return err
	}
	return nil
}

// OnSessionChange registers fn for transitions the server pushes through
// Watch or that Refresh performs.
func (c *Client) OnSessionChange(fn func(session.Change)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Client) adopt(s *models.Session) error {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	if err := c.tokens.Save(s); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (c *Client) forget() error {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
	return c.tokens.Clear()
}

func (c *Client) publish(ch session.Change) {
	c.mu.Lock()
	subs := make([]func(session.Change), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()
	for _, fn := range subs {
		fn(ch)
	}
}
