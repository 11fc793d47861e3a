package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"castenobar/internal/credential"
	"castenobar/internal/models"
)

var (
	ErrInvalidPIN   = errors.New("PIN must be exactly 4 digits")
	ErrInvalidPhone = errors.New("Please enter a valid WhatsApp number")
	ErrPINMismatch  = errors.New("PIN and confirmation PIN don't match")
)

var pinPattern = regexp.MustCompile(`^\d{4}$`)

// CheckInput applies the sign-in form rules before anything is sent.
func CheckInput(phone, pin string) error {
	if !pinPattern.MatchString(pin) {
		return ErrInvalidPIN
	}
	if len(phone) < 10 {
		return ErrInvalidPhone
	}
	return nil
}

// CheckSignUpInput adds the confirmation PIN rule of the sign-up form.
func CheckSignUpInput(phone, pin, confirm string) error {
	if err := CheckInput(phone, pin); err != nil {
		return err
	}
	if pin != confirm {
		return ErrPINMismatch
	}
	return nil
}

func (m *Manager) isAdmin(phone, pin string) bool {
	return m.adminPhone != "" && phone == m.adminPhone && pin == m.adminPIN
}

// SignIn authenticates with the mapped credential. Members must already
// have a profile; the reserved admin pair skips that lookup. On failure
// the current session is left untouched.
func (m *Manager) SignIn(ctx context.Context, phone, pin string) error {
	cred := credential.ToCredential(phone, pin)
	admin := m.isAdmin(phone, pin)

	if !admin {
		exists, err := m.profiles.ProfileExists(ctx, phone)
		if err != nil {
			return fmt.Errorf("look up profile: %w", err)
		}
		if !exists {
			return ErrInvalidLogin
		}
	}

	s, err := m.accounts.Authenticate(ctx, cred)
	if err != nil {
		if !admin && errors.Is(err, ErrCredentialsRejected) {
			return ErrInvalidLogin
		}
		return err
	}

	m.logger.Info("signed in", zap.String("identity_id", s.Identity.ID), zap.Bool("admin", admin))
	m.apply(Change{Event: EventSignedIn, Session: s})
	return nil
}

// SignUp creates the identity and its stub profile. When the profile insert
// fails the identity stays behind without a profile; only the session it
// was issued is dropped.
func (m *Manager) SignUp(ctx context.Context, phone, pin string) error {
	exists, err := m.profiles.ProfileExists(ctx, phone)
	if err != nil {
		return fmt.Errorf("look up profile: %w", err)
	}
	if exists {
		return ErrAlreadyExists
	}

	s, err := m.accounts.CreateAccount(ctx, credential.ToCredential(phone, pin))
	if err != nil {
		return err
	}

	stub := &models.Profile{UserID: s.Identity.ID, WhatsAppNumber: phone, Name: ""}
	if err := m.profiles.InsertProfile(ctx, stub); err != nil {
		m.logger.Error("identity left without profile",
			zap.String("identity_id", s.Identity.ID), zap.Error(err))
		if serr := m.accounts.SignOut(ctx); serr != nil {
			m.logger.Warn("sign out after failed sign-up", zap.Error(serr))
		}
		return fmt.Errorf("create profile: %w", err)
	}

	m.logger.Info("signed up", zap.String("identity_id", s.Identity.ID))
	m.apply(Change{Event: EventSignedIn, Session: s})
	return nil
}

// SignOut ends the remote session and always clears the local one.
func (m *Manager) SignOut(ctx context.Context) error {
	err := m.accounts.SignOut(ctx)
	m.apply(Change{Event: EventSignedOut})
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

type Route string

const (
	RouteAuth      Route = "auth"
	RouteSetup     Route = "setup"
	RouteDirectory Route = "directory"
)

// Destination picks where a user goes next: sign-in while unauthenticated,
// setup until the profile is complete, the directory after that.
func (m *Manager) Destination(p *models.Profile) Route {
	if m.Current().State != StateAuthenticated {
		return RouteAuth
	}
	if !p.IsComplete() {
		return RouteSetup
	}
	return RouteDirectory
}
