package auth

import (
	"errors"
	"fmt"
	"strings"
)

// Role is the closed set of privilege levels a session can hold.
type Role int

const (
	RoleGuest Role = iota
	RoleMember
	RoleAdmin
)

var ErrUnknownRole = errors.New("unknown role")

func (r Role) String() string {
	switch r {
	case RoleGuest:
		return "guest"
	case RoleMember:
		return "member"
	case RoleAdmin:
		return "admin"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	switch r {
	case RoleGuest, RoleMember, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole maps a persisted or claimed role name onto the enumeration.
// "user" is accepted as an alias for member because the event backend issues it.
func ParseRole(role string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "guest", "":
		return RoleGuest, nil
	case "member", "user":
		return RoleMember, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return RoleGuest, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
}

// CanMutateEvents is the single rule for create/update/delete on the local store.
func CanMutateEvents(role Role) bool {
	return role == RoleAdmin
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, int(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
