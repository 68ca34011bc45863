package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mealdesk/mealdesk-console/internal/authz"
	"github.com/mealdesk/mealdesk-console/internal/session"
	_ "github.com/mealdesk/mealdesk-console/testing"
)

func TestReduceBeginLoadingClearsError(t *testing.T) {
	st := session.State{Error: "boom"}
	next := session.Reduce(st, session.BeginLoading{})
	assert.True(t, next.Loading)
	assert.Empty(t, next.Error)
}

func TestReduceAuthSucceededDoesNotSelectOutlet(t *testing.T) {
	p := &authz.Principal{ID: 1, Role: authz.RoleAdmin, Outlets: []authz.OutletGrant{{OutletID: 5}}}
	next := session.Reduce(session.NewState(), session.AuthSucceeded{Principal: p})

	assert.True(t, next.IsAuthenticated)
	assert.False(t, next.Loading)
	assert.Same(t, p, next.Principal)
	// Outlet defaulting is a separate, flow-specific step.
	assert.Zero(t, next.CurrentOutletID)
}

func TestReduceSetCurrentOutletIsUnconditional(t *testing.T) {
	// No referential check at this layer; edges validate.
	next := session.Reduce(session.State{}, session.SetCurrentOutlet{OutletID: 99})
	assert.EqualValues(t, 99, next.CurrentOutletID)
}

func TestReduceAuthFailedResetsEverything(t *testing.T) {
	st := session.State{
		IsAuthenticated: true,
		Principal:       &authz.Principal{ID: 1},
		CurrentOutletID: 5,
		Loading:         true,
		Error:           "old",
	}
	next := session.Reduce(st, session.AuthFailed{})
	assert.Equal(t, session.State{}, next)
}

func TestReduceErroredKeepsAuthFields(t *testing.T) {
	p := &authz.Principal{ID: 1}
	st := session.State{IsAuthenticated: true, Principal: p, CurrentOutletID: 5, Loading: true}
	next := session.Reduce(st, session.Errored{Message: "bad credentials"})

	assert.False(t, next.Loading)
	assert.Equal(t, "bad credentials", next.Error)
	assert.True(t, next.IsAuthenticated)
	assert.Same(t, p, next.Principal)
	assert.EqualValues(t, 5, next.CurrentOutletID)
}

func TestReduceClearError(t *testing.T) {
	next := session.Reduce(session.State{Error: "x"}, session.ClearError{})
	assert.Empty(t, next.Error)
}

func TestReduceSettleLoadingKeepsAuthFields(t *testing.T) {
	p := &authz.Principal{ID: 1}
	st := session.State{IsAuthenticated: true, Principal: p, Loading: true, Error: "x"}
	next := session.Reduce(st, session.SettleLoading{})

	assert.False(t, next.Loading)
	assert.Empty(t, next.Error)
	assert.True(t, next.IsAuthenticated)
	assert.Same(t, p, next.Principal)
}
