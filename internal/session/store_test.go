package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Togather-Foundation/eventhub/internal/auth"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "nested", "session.json"), zerolog.Nop())
}

func adminSession() Session {
	return Session{
		Identity:    "user-1",
		DisplayName: "Ada",
		Role:        auth.RoleAdmin,
		IssuedAt:    time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
		Credential:  "opaque-token",
	}
}

func TestStoreLoadMissingIsAbsent(t *testing.T) {
	store := newTestStore(t)

	_, ok := store.Load()

	require.False(t, ok)
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save(adminSession()))
	loaded, ok := store.Load()

	require.True(t, ok)
	require.Equal(t, adminSession(), loaded)

	info, err := os.Stat(store.Path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStoreSaveReplacesWholesale(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(adminSession()))

	member := Session{Identity: "user-2", Role: auth.RoleMember, Credential: "other"}
	require.NoError(t, store.Save(member))

	loaded, ok := store.Load()
	require.True(t, ok)
	require.Equal(t, "user-2", loaded.Identity)
	require.Empty(t, loaded.DisplayName)
	require.Equal(t, auth.RoleMember, loaded.Role)

	entries, err := os.ReadDir(filepath.Dir(store.Path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
}

func TestStoreLoadCorruptIsAbsent(t *testing.T) {
	tests := map[string]string{
		"not json":      "{{{",
		"unknown role":  `{"user":{"identity":"u","role":"root"},"token":"t"}`,
		"no identity":   `{"user":{"identity":"","role":"admin"},"token":"t"}`,
		"wrong shape":   `[1,2,3]`,
		"empty content": ``,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			store := newTestStore(t)
			require.NoError(t, os.MkdirAll(filepath.Dir(store.Path), 0o700))
			require.NoError(t, os.WriteFile(store.Path, []byte(content), 0o600))

			_, ok := store.Load()

			require.False(t, ok)
		})
	}
}

func TestStoreSaveRejectsInvalidSession(t *testing.T) {
	store := newTestStore(t)

	err := store.Save(Session{Role: auth.RoleAdmin})

	require.ErrorIs(t, err, ErrInvalidSession)
	_, ok := store.Load()
	require.False(t, ok)
}

func TestStoreClear(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(adminSession()))

	require.NoError(t, store.Clear())
	_, ok := store.Load()
	require.False(t, ok)

	require.NoError(t, store.Clear(), "clearing an absent record is not an error")
}

func TestFromCredential(t *testing.T) {
	token, err := auth.NewJWTManager("secret", time.Hour, "eventhub").Generate("user-7", auth.RoleAdmin, "Linus")
	require.NoError(t, err)

	sess, err := FromCredential(token, "")

	require.NoError(t, err)
	require.Equal(t, "user-7", sess.Identity)
	require.Equal(t, "Linus", sess.DisplayName)
	require.Equal(t, auth.RoleAdmin, sess.Role)
	require.Equal(t, token, sess.Credential)
	require.False(t, sess.IssuedAt.IsZero())

	override, err := FromCredential(token, "Display")
	require.NoError(t, err)
	require.Equal(t, "Display", override.DisplayName)

	bearer, err := FromCredential("Bearer "+token, "")
	require.NoError(t, err)
	require.Equal(t, token, bearer.Credential)
}

func TestFromCredentialRejectsGarbage(t *testing.T) {
	_, err := FromCredential("garbage", "")
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestRoleOfNilIsGuest(t *testing.T) {
	require.Equal(t, auth.RoleGuest, RoleOf(nil))
	sess := adminSession()
	require.Equal(t, auth.RoleAdmin, RoleOf(&sess))
}
