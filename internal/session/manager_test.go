package session

import (
	"errors"
	"testing"

	"github.com/Togather-Foundation/eventhub/internal/auth"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type memoryPersister struct {
	saved   *Session
	saves   int
	clears  int
	saveErr error
}

func (p *memoryPersister) Load() (Session, bool) {
	if p.saved == nil {
		return Session{}, false
	}
	return *p.saved, true
}

func (p *memoryPersister) Save(s Session) error {
	if p.saveErr != nil {
		return p.saveErr
	}
	p.saves++
	p.saved = &s
	return nil
}

func (p *memoryPersister) Clear() error {
	p.clears++
	p.saved = nil
	return nil
}

func TestManagerInitRestoresOnce(t *testing.T) {
	stored := adminSession()
	manager := NewManager(&memoryPersister{saved: &stored}, zerolog.Nop())

	require.NoError(t, manager.Init())
	require.Equal(t, "user-1", manager.Current().Identity)
	require.Equal(t, "opaque-token", manager.Credential())

	require.ErrorIs(t, manager.Init(), ErrAlreadyInitialized)
}

func TestManagerRequiresInit(t *testing.T) {
	manager := NewManager(&memoryPersister{}, zerolog.Nop())

	require.ErrorIs(t, manager.Login(adminSession()), ErrNotInitialized)
	require.ErrorIs(t, manager.Logout(), ErrNotInitialized)
}

func TestManagerLoginLogout(t *testing.T) {
	persister := &memoryPersister{}
	manager := NewManager(persister, zerolog.Nop())
	require.NoError(t, manager.Init())
	require.Nil(t, manager.Current())

	require.NoError(t, manager.Login(adminSession()))
	require.Equal(t, auth.RoleAdmin, RoleOf(manager.Current()))
	require.Equal(t, 1, persister.saves)

	require.NoError(t, manager.Logout())
	require.Nil(t, manager.Current())
	require.Empty(t, manager.Credential())
	require.Equal(t, 1, persister.clears)
}

func TestManagerLoginFailureKeepsPrevious(t *testing.T) {
	stored := adminSession()
	persister := &memoryPersister{saved: &stored}
	manager := NewManager(persister, zerolog.Nop())
	require.NoError(t, manager.Init())

	persister.saveErr = errors.New("disk full")
	err := manager.Login(Session{Identity: "user-2", Role: auth.RoleMember})

	require.Error(t, err)
	require.Equal(t, "user-1", manager.Current().Identity)
}

func TestManagerCurrentIsACopy(t *testing.T) {
	manager := NewManager(&memoryPersister{}, zerolog.Nop())
	require.NoError(t, manager.Init())
	require.NoError(t, manager.Login(adminSession()))

	current := manager.Current()
	current.Role = auth.RoleGuest

	require.Equal(t, auth.RoleAdmin, manager.Current().Role)
}
