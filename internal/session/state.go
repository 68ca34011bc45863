package session

import (
	"github.com/mealdesk/mealdesk-console/internal/authz"
)

// State is the session snapshot read by guards and views. It is a
// value; holders never mutate it in place - transitions go through
// Reduce.
type State struct {
	IsAuthenticated bool
	Principal       *authz.Principal
	CurrentOutletID int64
	Loading         bool
	Error           string
}

// NewState returns the startup state: loading until the first
// session-check settles.
func NewState() State {
	return State{Loading: true}
}

// HasPermission resolves t against the currently selected outlet.
func (st State) HasPermission(t authz.PermissionType) bool {
	return authz.HasPermission(st.Principal, st.CurrentOutletID, t)
}

// HasPermissionAt resolves t against an explicit outlet.
func (st State) HasPermissionAt(outletID int64, t authz.PermissionType) bool {
	return authz.HasPermission(st.Principal, outletID, t)
}

// AccessibleRoutes lists the routes reachable with the currently
// selected outlet, in route-table order.
func (st State) AccessibleRoutes() []authz.Route {
	return authz.AccessibleRoutes(st.Principal, st.CurrentOutletID)
}

// Action is one atomic session transition. The set is closed; Reduce is
// exhaustive over it.
type Action interface {
	isAction()
}

// BeginLoading marks an auth operation in flight and clears any stale
// error.
type BeginLoading struct{}

// AuthSucceeded installs a freshly authenticated principal. It does not
// select an outlet; outlet defaulting is a deliberate separate step so
// each sign-in flow can apply its own policy.
type AuthSucceeded struct {
	Principal *authz.Principal
}

// SetCurrentOutlet selects an outlet unconditionally. Referential
// validation against the principal's grants happens at the edges.
type SetCurrentOutlet struct {
	OutletID int64
}

// AuthFailed resets to the anonymous default.
type AuthFailed struct{}

// Errored records an operation failure without touching the
// authentication fields.
type Errored struct {
	Message string
}

// ClearError discards a previously recorded error.
type ClearError struct{}

// SettleLoading marks an operation as finished without touching the
// authentication fields. Used by flows like sign-up whose success does
// not authenticate.
type SettleLoading struct{}

func (BeginLoading) isAction()     {}
func (AuthSucceeded) isAction()    {}
func (SetCurrentOutlet) isAction() {}
func (AuthFailed) isAction()       {}
func (Errored) isAction()          {}
func (ClearError) isAction()       {}
func (SettleLoading) isAction()    {}

// Reduce applies one action to a state and returns the next state.
func Reduce(st State, a Action) State {
	switch a := a.(type) {
	case BeginLoading:
		st.Loading = true
		st.Error = ""
	case AuthSucceeded:
		st.Loading = false
		st.IsAuthenticated = true
		st.Principal = a.Principal
		st.Error = ""
	case SetCurrentOutlet:
		st.CurrentOutletID = a.OutletID
	case AuthFailed:
		st = State{}
	case Errored:
		st.Loading = false
		st.Error = a.Message
	case ClearError:
		st.Error = ""
	case SettleLoading:
		st.Loading = false
		st.Error = ""
	}
	return st
}
