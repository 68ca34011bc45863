// Package guard gates navigation on session and permission state. The
// decision functions are pure; the HTTP adapters in middleware.go
// translate decisions into responses.
package guard

import (
	"net/url"

	"github.com/mealdesk/mealdesk-console/internal/authz"
	"github.com/mealdesk/mealdesk-console/internal/session"
)

// DecisionKind classifies a guard outcome.
type DecisionKind int

const (
	// Render lets the requested page through.
	Render DecisionKind = iota
	// RenderDisabled lets the content through wrapped in an inert,
	// pointer-events-suppressed treatment. Used for in-page controls,
	// never for whole-route protection.
	RenderDisabled
	// Redirect bounces the navigation to Decision.Path.
	Redirect
	// Pending renders a loading placeholder; authorization must not be
	// decided on a still-loading session.
	Pending
)

// Decision is a guard's verdict for one navigation.
type Decision struct {
	Kind DecisionKind
	Path string
}

// Enforce selects how PermissionGuard handles a denied permission. The
// two behaviors are categorical, not a toggle.
type Enforce interface {
	isEnforce()
}

// EnforceRedirect bounces denied navigations. An empty To falls back to
// the first accessible route, then to the root.
type EnforceRedirect struct {
	To string
}

// EnforceOverlay renders denied content inert instead of redirecting.
type EnforceOverlay struct{}

func (EnforceRedirect) isEnforce() {}
func (EnforceOverlay) isEnforce()  {}

// LoginPath is where unauthenticated navigations are sent.
const LoginPath = "/auth/login"

// Auth decides whether an authenticated-only navigation may proceed.
// requested is carried to the sign-in flow so it can return the user
// afterward, best-effort.
func Auth(st session.State, requested string) Decision {
	if st.Loading {
		return Decision{Kind: Pending}
	}
	if !st.IsAuthenticated {
		path := LoginPath
		if requested != "" && requested != "/" {
			path += "?next=" + url.QueryEscape(requested)
		}
		return Decision{Kind: Redirect, Path: path}
	}
	return Decision{Kind: Render}
}

// Permission decides whether a navigation requiring a permission may
// proceed. It must run after Auth: an unauthenticated state here is
// handled as a plain denial, never a panic, but the redirect target
// would be wrong. Superadmins pass by role, not by permission list.
func Permission(st session.State, required authz.PermissionType, enforce Enforce) Decision {
	if required == "" {
		return Decision{Kind: Render}
	}
	if st.Principal.IsSuperadmin() || st.HasPermission(required) {
		return Decision{Kind: Render}
	}
	switch e := enforce.(type) {
	case EnforceOverlay:
		return Decision{Kind: RenderDisabled}
	case EnforceRedirect:
		if e.To != "" {
			return Decision{Kind: Redirect, Path: e.To}
		}
	}
	if routes := st.AccessibleRoutes(); len(routes) > 0 {
		return Decision{Kind: Redirect, Path: routes[0].Path}
	}
	return Decision{Kind: Redirect, Path: "/"}
}
