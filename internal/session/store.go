package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/Togather-Foundation/eventhub/internal/auth"
	"github.com/rs/zerolog"
)

// record mirrors the two keys the browser client kept: the user and the token.
type record struct {
	User  userRecord `json:"user"`
	Token string     `json:"token"`
}

type userRecord struct {
	Identity    string    `json:"identity"`
	DisplayName string    `json:"displayName"`
	Role        auth.Role `json:"role"`
	IssuedAt    time.Time `json:"issuedAt"`
}

// Store keeps one session record in a file. It never touches the network.
type Store struct {
	Path   string
	logger zerolog.Logger
}

func NewStore(path string, logger zerolog.Logger) *Store {
	return &Store{
		Path:   path,
		logger: logger.With().Str("component", "session_store").Logger(),
	}
}

// Load returns the persisted session. Missing, unreadable or corrupt records
// report absent rather than failing.
func (s *Store) Load() (Session, bool) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn().Err(err).Str("path", s.Path).Msg("session record unreadable")
		}
		return Session{}, false
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn().Err(err).Str("path", s.Path).Msg("session record corrupt")
		return Session{}, false
	}

	sess := Session{
		Identity:    rec.User.Identity,
		DisplayName: rec.User.DisplayName,
		Role:        rec.User.Role,
		IssuedAt:    rec.User.IssuedAt,
		Credential:  rec.Token,
	}
	if err := sess.Validate(); err != nil {
		s.logger.Warn().Err(err).Str("path", s.Path).Msg("session record invalid")
		return Session{}, false
	}
	return sess, true
}

// Save atomically replaces the persisted record.
func (s *Store) Save(sess Session) error {
	if s.Path == "" {
		return fmt.Errorf("store path is required")
	}
	if err := sess.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(record{
		User: userRecord{
			Identity:    sess.Identity,
			DisplayName: sess.DisplayName,
			Role:        sess.Role,
			IssuedAt:    sess.IssuedAt.UTC(),
		},
		Token: sess.Credential,
	})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp session: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp session: %w", err)
	}
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path); err != nil {
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}

// Clear removes the record. Clearing an absent record is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
