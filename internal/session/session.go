// Package session owns the per-user privileged authentication state for
// private-channel access. The provider protocol itself sits behind the
// Client interface; this package only drives the login state machine and
// hands authorized connections to the extraction core.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is the login state of one session.
type State int

const (
	// StateUnauthenticated is the initial state; no phone submitted yet.
	StateUnauthenticated State = iota
	// StatePhoneSubmitted means a verification code has been requested.
	StatePhoneSubmitted
	// StateSecondFactorRequired means the code was accepted but the
	// account has two-step verification enabled.
	StateSecondFactorRequired
	// StateAuthorized is terminal success.
	StateAuthorized
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StatePhoneSubmitted:
		return "phone_submitted"
	case StateSecondFactorRequired:
		return "second_factor_required"
	case StateAuthorized:
		return "authorized"
	}
	return "unknown"
}

// ErrPasswordNeeded is returned by Client.SignIn when the account requires
// a second factor after code verification.
var ErrPasswordNeeded = errors.New("two-step verification password needed")

// ErrChannelPrivate is the provider's access-denied signal for a private
// or inaccessible channel.
var ErrChannelPrivate = errors.New("channel is private or inaccessible")

// FloodWaitError is the provider's rate-limit signal carrying the wait it
// demands before the next call.
type FloodWaitError struct {
	RetryAfter time.Duration
}

func (e *FloodWaitError) Error() string {
	return fmt.Sprintf("flood wait: retry after %s", e.RetryAfter)
}

// Entity is a resolved channel.
type Entity struct {
	// Title is the channel display name; empty when the provider does not
	// expose one.
	Title string
}

// Message is one fetched channel post.
type Message struct {
	ID    int64
	Text  string
	Views int64
	Date  time.Time
}

// Client is the provider connection boundary. One Client belongs to one
// user session; implementations wrap the real MTProto-style client.
type Client interface {
	// SendCode requests a login code for the phone number.
	SendCode(ctx context.Context, phone string) error

	// SignIn verifies the code. Returns ErrPasswordNeeded when the account
	// has two-step verification enabled.
	SignIn(ctx context.Context, phone, code string) error

	// SignInPassword verifies the second-factor password.
	SignInPassword(ctx context.Context, password string) error

	// IsAuthorized reports whether the connection may fetch messages.
	IsAuthorized() bool

	// EntityByHandle resolves a public channel by handle.
	EntityByHandle(ctx context.Context, handle string) (*Entity, error)

	// EntityByID resolves a channel by its internal numeric identifier.
	EntityByID(ctx context.Context, id int64) (*Entity, error)

	// MessageByID fetches one message of the entity.
	MessageByID(ctx context.Context, entity *Entity, messageID int64) (*Message, error)

	// Close releases the underlying connection.
	Close() error
}

// Dialer opens a fresh provider connection for a user.
type Dialer func(ctx context.Context, userID int64) (Client, error)

// Session is one user's login progress and connection handle.
type Session struct {
	UserID int64
	Phone  string

	client Client
	state  State
	busy   bool
	mu     sync.Mutex
}

// State returns the current login state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Client returns the underlying provider connection.
func (s *Session) Client() Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// TryAcquire marks the session busy for one batch. It fails when another
// batch already holds the session, so overlapping requests from the same
// user cannot interleave provider-protocol state.
func (s *Session) TryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	return true
}

// Release returns the session after a batch.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
}

// Manager is the explicit per-user session store.
type Manager struct {
	dial     Dialer
	log      *zap.Logger
	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewManager creates a session manager that opens provider connections
// with the given dialer.
func NewManager(dial Dialer, log *zap.Logger) *Manager {
	return &Manager{
		dial:     dial,
		log:      log.Named("session"),
		sessions: make(map[int64]*Session),
	}
}

// SubmitPhone starts (or restarts) the login flow for a user: a fresh
// connection is dialed and a code request sent. Any previous session for
// the user is abandoned.
func (m *Manager) SubmitPhone(ctx context.Context, userID int64, phone string) error {
	client, err := m.dial(ctx, userID)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if err := client.SendCode(ctx, phone); err != nil {
		client.Close()
		return fmt.Errorf("failed to send code: %w", err)
	}

	m.mu.Lock()
	if old := m.sessions[userID]; old != nil && old.client != nil {
		old.client.Close()
	}
	m.sessions[userID] = &Session{
		UserID: userID,
		Phone:  phone,
		client: client,
		state:  StatePhoneSubmitted,
	}
	m.mu.Unlock()

	m.log.Info("code requested", zap.Int64("user_id", userID))
	return nil
}

// SubmitCode verifies the login code. needsPassword is true when the
// account requires a second factor; any other sign-in error abandons the
// session and the user must restart from the phone step.
func (m *Manager) SubmitCode(ctx context.Context, userID int64, code string) (needsPassword bool, err error) {
	sess := m.get(userID)
	if sess == nil || sess.State() != StatePhoneSubmitted {
		return false, errors.New("session lost, restart login")
	}

	err = sess.client.SignIn(ctx, sess.Phone, code)
	switch {
	case errors.Is(err, ErrPasswordNeeded):
		sess.setState(StateSecondFactorRequired)
		return true, nil
	case err != nil:
		m.abandon(userID)
		return false, fmt.Errorf("sign in failed: %w", err)
	}

	sess.setState(StateAuthorized)
	m.log.Info("user authorized", zap.Int64("user_id", userID))
	return false, nil
}

// SubmitPassword verifies the second-factor password. Failure abandons
// the session.
func (m *Manager) SubmitPassword(ctx context.Context, userID int64, password string) error {
	sess := m.get(userID)
	if sess == nil || sess.State() != StateSecondFactorRequired {
		return errors.New("session lost, restart login")
	}

	if err := sess.client.SignInPassword(ctx, password); err != nil {
		m.abandon(userID)
		return fmt.Errorf("two-step verification failed: %w", err)
	}

	sess.setState(StateAuthorized)
	m.log.Info("user authorized with second factor", zap.Int64("user_id", userID))
	return nil
}

// IsAuthorized reports whether the user holds an authorized session.
func (m *Manager) IsAuthorized(userID int64) bool {
	sess := m.get(userID)
	if sess == nil || sess.State() != StateAuthorized {
		return false
	}
	client := sess.Client()
	return client != nil && client.IsAuthorized()
}

// Session returns the user's session, or nil when none exists.
func (m *Manager) Session(userID int64) *Session {
	return m.get(userID)
}

func (m *Manager) get(userID int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[userID]
}

// abandon drops a session after a verification failure. The connection is
// closed; the user has to restart from the phone step.
func (m *Manager) abandon(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess := m.sessions[userID]; sess != nil && sess.client != nil {
		sess.client.Close()
	}
	delete(m.sessions, userID)
	m.log.Info("session abandoned", zap.Int64("user_id", userID))
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}
