package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"shop-chatter/internal/shopapi"
)

// Keys under which the session is persisted.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrSessionExpired     = errors.New("session token expired")
)

// Session is the authenticated identity. Username and Token are either
// both set or both empty.
type Session struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

func (s Session) Valid() bool {
	return s.Username != "" && s.Token != ""
}

type State int

const (
	StateLoading State = iota
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Backend is the part of the shop API the manager needs.
type Backend interface {
	Login(ctx context.Context, username, password string) (shopapi.LoginReply, error)
	Register(ctx context.Context, username, password string) (string, error)
}

// Manager owns the session. All reads and writes go through it.
type Manager struct {
	mu       sync.RWMutex
	store    Store
	api      Backend
	log      logrus.FieldLogger
	now      func() time.Time
	session  Session
	state    State
	onLogout []func()
}

func NewManager(store Store, api Backend, log logrus.FieldLogger) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{
		store: store,
		api:   api,
		log:   log.WithField("component", "session"),
		now:   time.Now,
		state: StateLoading,
	}
}

// Restore loads a persisted session. Both entries must be present; a JWT
// whose exp has passed is dropped. Nothing is verified with the backend.
func (m *Manager) Restore() (Session, bool) {
	tok, hasTok, errTok := m.store.Get(KeyToken)
	user, hasUser, errUser := m.store.Get(KeyUser)
	if err := errors.Join(errTok, errUser); err != nil {
		m.log.WithError(err).Warn("failed to read persisted session")
		m.setAnonymous()
		return Session{}, false
	}

	s := Session{Username: user, Token: tok}
	if !s.Valid() {
		if hasTok || hasUser {
			m.clearStore()
		}
		m.setAnonymous()
		return Session{}, false
	}
	if exp, ok := TokenExpiry(tok); ok && !m.now().Before(exp) {
		m.log.WithFields(logrus.Fields{"user": user, "expired_at": exp}).Info(ErrSessionExpired.Error())
		m.clearStore()
		m.setAnonymous()
		return Session{}, false
	}

	m.mu.Lock()
	m.session = s
	m.state = StateAuthenticated
	m.mu.Unlock()
	return s, true
}

// Login authenticates against the backend and persists the session. On any
// failure the current session is left as it was.
func (m *Manager) Login(ctx context.Context, username, password string) (Session, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return Session{}, ErrMissingCredentials
	}
	reply, err := m.api.Login(ctx, username, password)
	if err != nil {
		m.log.WithError(err).WithField("user", username).Warn("login failed")
		return Session{}, err
	}
	s := Session{Username: reply.User, Token: reply.Token}
	if !s.Valid() {
		err := &shopapi.Error{Kind: shopapi.KindProtocol, Op: "login", Message: "reply is missing token or user"}
		m.log.WithError(err).Warn("login failed")
		return Session{}, err
	}
	if err := m.store.Put(map[string]string{KeyToken: s.Token, KeyUser: s.Username}); err != nil {
		return Session{}, fmt.Errorf("persist session: %w", err)
	}

	m.mu.Lock()
	m.session = s
	m.state = StateAuthenticated
	m.mu.Unlock()
	m.log.WithField("user", s.Username).Info("logged in")
	return s, nil
}

// Register creates an account. It does not log in.
func (m *Manager) Register(ctx context.Context, username, password string) (string, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return "", ErrMissingCredentials
	}
	msg, err := m.api.Register(ctx, username, password)
	if err != nil {
		m.log.WithError(err).WithField("user", username).Warn("registration failed")
		return "", err
	}
	return msg, nil
}

// Logout clears the session from memory and storage. Memory is cleared
// even if the store fails. Safe to call repeatedly.
func (m *Manager) Logout() error {
	m.mu.Lock()
	m.session = Session{}
	m.state = StateAnonymous
	hooks := append([]func(){}, m.onLogout...)
	m.mu.Unlock()

	err := m.store.Delete(KeyToken, KeyUser)
	for _, h := range hooks {
		h()
	}
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// OnLogout registers fn to run after every Logout.
func (m *Manager) OnLogout(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLogout = append(m.onLogout, fn)
}

func (m *Manager) Current() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session, m.session.Valid()
}

// Token implements shopapi.TokenSource.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.Token
}

func (m *Manager) DisplayName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.Username
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) setAnonymous() {
	m.mu.Lock()
	m.session = Session{}
	m.state = StateAnonymous
	m.mu.Unlock()
}

func (m *Manager) clearStore() {
	if err := m.store.Delete(KeyToken, KeyUser); err != nil {
		m.log.WithError(err).Warn("failed to clear persisted session")
	}
}
