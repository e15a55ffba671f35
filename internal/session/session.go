// Package session persists and restores the identity the client acts as.
//
// A Session is immutable once issued. Login replaces it wholesale and logout
// clears it; Manager is the only place that holds the current value.
package session

import (
	"errors"
	"strings"
	"time"

	"github.com/Togather-Foundation/eventhub/internal/auth"
)

var ErrInvalidSession = errors.New("invalid session")

type Session struct {
	Identity    string
	DisplayName string
	Role        auth.Role
	IssuedAt    time.Time
	Credential  string
}

func (s Session) Validate() error {
	if strings.TrimSpace(s.Identity) == "" {
		return ErrInvalidSession
	}
	if !s.Role.Valid() {
		return ErrInvalidSession
	}
	return nil
}

// RoleOf treats an absent session as a guest.
func RoleOf(s *Session) auth.Role {
	if s == nil {
		return auth.RoleGuest
	}
	return s.Role
}

// FromCredential builds a session from the claims of a backend-issued
// credential. The signature is not checked here.
func FromCredential(credential, displayName string) (Session, error) {
	credential = strings.TrimSpace(credential)
	if token, err := auth.TokenFromHeader(credential); err == nil {
		credential = token
	}
	claims, err := auth.InspectCredential(credential)
	if err != nil {
		return Session{}, err
	}
	role, err := auth.ParseRole(claims.Role)
	if err != nil {
		return Session{}, err
	}

	issuedAt := time.Now().UTC()
	if claims.IssuedAt != nil {
		issuedAt = claims.IssuedAt.Time.UTC()
	}
	if displayName == "" {
		displayName = claims.Name
	}
	if displayName == "" {
		displayName = claims.Subject
	}

	s := Session{
		Identity:    claims.Subject,
		DisplayName: displayName,
		Role:        role,
		IssuedAt:    issuedAt,
		Credential:  strings.TrimSpace(credential),
	}
	return s, s.Validate()
}
