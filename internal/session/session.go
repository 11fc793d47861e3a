// Package session tracks who the current user of a client is and notifies
// interested parts of the client when that changes.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"castenobar/internal/credential"
	"castenobar/internal/models"
)

var (
	ErrInvalidLogin  = errors.New("Invalid WhatsApp number or PIN")
	ErrAlreadyExists = errors.New("User with this WhatsApp number already exists")

	// ErrCredentialsRejected is wrapped by AccountService implementations
	// when the service refuses a login id and secret.
	ErrCredentialsRejected = errors.New("credentials rejected")
)

// AccountService is the remote identity provider.
type AccountService interface {
	CreateAccount(ctx context.Context, c credential.Credential) (*models.Session, error)
	Authenticate(ctx context.Context, c credential.Credential) (*models.Session, error)
	// CurrentSession returns nil, nil when no session can be restored.
	CurrentSession(ctx context.Context) (*models.Session, error)
	// OnSessionChange reports transitions the service observed on its own,
	// such as a sign-out from another device or a token refresh.
	OnSessionChange(fn func(Change)) (unsubscribe func())
	SignOut(ctx context.Context) error
}

// ProfileLookup is the slice of the profiles table the manager needs.
type ProfileLookup interface {
	ProfileExists(ctx context.Context, whatsappNumber string) (bool, error)
	InsertProfile(ctx context.Context, p *models.Profile) error
}

type State int

const (
	StateUnknown State = iota
	StateUnauthenticated
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	}
	return "unknown"
}

type Event string

const (
	EventRestored       Event = "restored"
	EventSignedIn       Event = "signed_in"
	EventSignedOut      Event = "signed_out"
	EventTokenRefreshed Event = "token_refreshed"
	EventExpired        Event = "expired"
)

// Change is one session transition. Session is nil when the transition
// leaves the client signed out.
type Change struct {
	Event   Event           `json:"event"`
	Session *models.Session `json:"session,omitempty"`
}

type Snapshot struct {
	State    State
	Identity *models.Identity
	Session  *models.Session
}

type Option func(*Manager)

// WithAdmin sets the reserved phone and PIN pair that signs in without a
// profile lookup.
func WithAdmin(phone, pin string) Option {
	return func(m *Manager) { m.adminPhone, m.adminPIN = phone, pin }
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager is the single writer of the current session.
type Manager struct {
	accounts   AccountService
	profiles   ProfileLookup
	logger     *zap.Logger
	now        func() time.Time
	adminPhone string
	adminPIN   string

	mu      sync.RWMutex
	state   State
	session *models.Session
	subs    map[int]func(Change)
	nextSub int

	ready     chan struct{}
	readyOnce sync.Once
	unwatch   func()
}

func New(accounts AccountService, profiles ProfileLookup, opts ...Option) *Manager {
	m := &Manager{
		accounts: accounts,
		profiles: profiles,
		logger:   zap.NewNop(),
		now:      time.Now,
		subs:     make(map[int]func(Change)),
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.unwatch = accounts.OnSessionChange(m.apply)
	return m
}

// Close stops listening to the account service.
func (m *Manager) Close() {
	if m.unwatch != nil {
		m.unwatch()
	}
}

// Ready is closed once Restore has finished, whatever its outcome.
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

// Restore adopts any valid session the account service still holds. On
// error the manager settles as signed out and the error is returned.
func (m *Manager) Restore(ctx context.Context) error {
	defer m.readyOnce.Do(func() { close(m.ready) })

	s, err := m.accounts.CurrentSession(ctx)
	if err != nil {
		m.logger.Warn("session restore failed", zap.Error(err))
		m.apply(Change{Event: EventRestored})
		return fmt.Errorf("restore session: %w", err)
	}
	if s.Expired(m.now()) {
		s = nil
	}
	m.apply(Change{Event: EventRestored, Session: s})
	return nil
}

// Subscribe registers fn for every later transition.
func (m *Manager) Subscribe(fn func(Change)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Current returns the latest state. An authenticated session past its
// expiry is dropped here and reported as EventExpired.
func (m *Manager) Current() Snapshot {
	m.mu.RLock()
	snap := m.snapshotLocked()
	m.mu.RUnlock()

	if snap.State == StateAuthenticated && snap.Session.Expired(m.now()) {
		m.expire(snap.Session)
		m.mu.RLock()
		snap = m.snapshotLocked()
		m.mu.RUnlock()
	}
	return snap
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{State: m.state, Session: m.session}
	if m.session != nil {
		id := m.session.Identity
		snap.Identity = &id
	}
	return snap
}

func (m *Manager) expire(s *models.Session) {
	m.mu.Lock()
	if m.session != s {
		m.mu.Unlock()
		return
	}
	m.session = nil
	m.state = StateUnauthenticated
	subs := m.subscribersLocked()
	m.mu.Unlock()

	m.logger.Info("session expired", zap.String("identity_id", s.Identity.ID))
	notify(subs, Change{Event: EventExpired})
}

// apply replaces the current session in one step. Concurrent transitions
// are not reconciled: the last to reach apply wins.
func (m *Manager) apply(c Change) {
	m.mu.Lock()
	m.session = c.Session
	if c.Session != nil {
		m.state = StateAuthenticated
	} else {
		m.state = StateUnauthenticated
	}
	subs := m.subscribersLocked()
	m.mu.Unlock()

	notify(subs, c)
}

func (m *Manager) subscribersLocked() []func(Change) {
	ids := make([]int, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]func(Change), 0, len(ids))
	for _, id := range ids {
		out = append(out, m.subs[id])
	}
	return out
}

func notify(subs []func(Change), c Change) {
	for _, fn := range subs {
		fn(c)
	}
}
