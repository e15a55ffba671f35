package session

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

var (
	ErrAlreadyInitialized = errors.New("session manager already initialized")
	ErrNotInitialized     = errors.New("session manager not initialized")
)

// Persister is the storage contract the manager needs; *Store satisfies it.
type Persister interface {
	Load() (Session, bool)
	Save(Session) error
	Clear() error
}

// Manager owns the current session for the life of the process. It is
// initialized once from storage and changed only through Login and Logout.
type Manager struct {
	mu          sync.RWMutex
	store       Persister
	current     *Session
	initialized bool
	logger      zerolog.Logger
}

func NewManager(store Persister, logger zerolog.Logger) *Manager {
	return &Manager{
		store:  store,
		logger: logger.With().Str("component", "session").Logger(),
	}
}

func (m *Manager) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return ErrAlreadyInitialized
	}
	m.initialized = true

	if sess, ok := m.store.Load(); ok {
		m.current = &sess
		m.logger.Debug().Str("identity", sess.Identity).Str("role", sess.Role.String()).Msg("session restored")
	}
	return nil
}

// Current returns a copy of the active session, or nil for a guest.
func (m *Manager) Current() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return nil
	}
	sess := *m.current
	return &sess
}

// Credential returns the opaque credential of the active session, if any.
func (m *Manager) Credential() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return ""
	}
	return m.current.Credential
}

func (m *Manager) Login(sess Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return ErrNotInitialized
	}
	if err := m.store.Save(sess); err != nil {
		return err
	}
	m.current = &sess
	m.logger.Info().Str("identity", sess.Identity).Str("role", sess.Role.String()).Msg("logged in")
	return nil
}

func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return ErrNotInitialized
	}
	if err := m.store.Clear(); err != nil {
		return err
	}
	m.current = nil
	m.logger.Info().Msg("logged out")
	return nil
}
