// Package access decides whether a session may enter a route.
package access

import (
	"fmt"

	"github.com/Togather-Foundation/eventhub/internal/auth"
	"github.com/Togather-Foundation/eventhub/internal/session"
)

type Route int

const (
	RouteHome Route = iota
	RouteCatalog
	RouteLogin
	RouteRegister
	RouteDashboard
)

func (r Route) String() string {
	switch r {
	case RouteHome:
		return "home"
	case RouteCatalog:
		return "catalog"
	case RouteLogin:
		return "login"
	case RouteRegister:
		return "register"
	case RouteDashboard:
		return "dashboard"
	default:
		return fmt.Sprintf("Route(%d)", int(r))
	}
}

// Decision is either an allow or a redirect to another route.
type Decision struct {
	Allowed  bool
	Redirect Route
}

func allow() Decision { return Decision{Allowed: true} }

func redirect(to Route) Decision { return Decision{Redirect: to} }

func (d Decision) String() string {
	if d.Allowed {
		return "allow"
	}
	return "redirect(" + d.Redirect.String() + ")"
}

// CanAccess is evaluated on every navigation and holds no state. A nil session
// is a guest. Unknown routes and roles are refused and sent home.
func CanAccess(s *session.Session, route Route) Decision {
	role := session.RoleOf(s)

	switch route {
	case RouteHome, RouteCatalog:
		return allow()
	case RouteLogin, RouteRegister:
		switch role {
		case auth.RoleGuest:
			return allow()
		case auth.RoleMember, auth.RoleAdmin:
			return redirect(RouteHome)
		}
	case RouteDashboard:
		switch role {
		case auth.RoleAdmin:
			return allow()
		case auth.RoleGuest, auth.RoleMember:
			return redirect(RouteLogin)
		}
	}
	return redirect(RouteHome)
}
