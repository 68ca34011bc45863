package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealdesk/mealdesk-console/internal/authz"
	"github.com/mealdesk/mealdesk-console/internal/session"
	_ "github.com/mealdesk/mealdesk-console/testing"
)

type memPrefs struct {
	mu    sync.Mutex
	id    int64
	saved bool
}

func (m *memPrefs) Load(ctx context.Context) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id, m.saved
}

func (m *memPrefs) Save(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id, m.saved = id, true
	return nil
}

func (m *memPrefs) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id, m.saved = 0, false
	return nil
}

type mockGateway struct {
	principal    *authz.Principal
	credential   string
	signInErr    error
	checkErr     error
	signOutErr   error
	signUpMsg    string
	signUpErr    error
	signOutCalls int
}

func (g *mockGateway) SessionCheck(ctx context.Context, credential string) (*authz.Principal, error) {
	if g.checkErr != nil {
		return nil, g.checkErr
	}
	return g.principal, nil
}

func (g *mockGateway) signIn() (*authz.Principal, string, error) {
	if g.signInErr != nil {
		return nil, "", g.signInErr
	}
	return g.principal, g.credential, nil
}

func (g *mockGateway) SignInAdmin(ctx context.Context, email, password string) (*authz.Principal, string, error) {
	return g.signIn()
}

func (g *mockGateway) SignInSuperadmin(ctx context.Context, email, password string) (*authz.Principal, string, error) {
	return g.signIn()
}

func (g *mockGateway) SignInUser(ctx context.Context, email, password string) (*authz.Principal, string, error) {
	return g.signIn()
}

func (g *mockGateway) SignUp(ctx context.Context, form session.SignUpForm) (string, error) {
	return g.signUpMsg, g.signUpErr
}

func (g *mockGateway) SignOut(ctx context.Context, credential string) error {
	g.signOutCalls++
	return g.signOutErr
}

func twoOutletPrincipal(role authz.Role) *authz.Principal {
	return &authz.Principal{
		ID:   7,
		Role: role,
		Outlets: []authz.OutletGrant{
			{OutletID: 5, Outlet: authz.Outlet{Name: "North Court"}},
			{OutletID: 7, Outlet: authz.Outlet{Name: "South Court"}},
		},
	}
}

func TestInitializeRestoresPersistedOutlet(t *testing.T) {
	gw := &mockGateway{principal: twoOutletPrincipal(authz.RoleAdmin)}
	prefs := &memPrefs{}
	require.NoError(t, prefs.Save(context.Background(), 7))

	store := session.NewStore(gw, prefs, nil)
	store.Initialize(context.Background())

	st := store.State()
	assert.True(t, st.IsAuthenticated)
	assert.False(t, st.Loading)
	assert.EqualValues(t, 7, st.CurrentOutletID)
}

func TestInitializeFallsBackToFirstOutlet(t *testing.T) {
	gw := &mockGateway{principal: twoOutletPrincipal(authz.RoleAdmin)}
	prefs := &memPrefs{}
	// Persisted id not present in the restored principal's grants.
	require.NoError(t, prefs.Save(context.Background(), 99))

	store := session.NewStore(gw, prefs, nil)
	store.Initialize(context.Background())

	st := store.State()
	assert.True(t, st.IsAuthenticated)
	assert.EqualValues(t, 5, st.CurrentOutletID)

	saved, ok := prefs.Load(context.Background())
	assert.True(t, ok)
	assert.EqualValues(t, 5, saved)
}

func TestInitializeFailureResetsToAnonymous(t *testing.T) {
	gw := &mockGateway{checkErr: session.ErrNoSession}
	prefs := &memPrefs{}
	require.NoError(t, prefs.Save(context.Background(), 5))

	store := session.NewStore(gw, prefs, nil)
	store.Initialize(context.Background())

	st := store.State()
	assert.False(t, st.IsAuthenticated)
	assert.False(t, st.Loading)
	assert.Nil(t, st.Principal)
	assert.Zero(t, st.CurrentOutletID)
	assert.Empty(t, st.Error)

	_, ok := prefs.Load(context.Background())
	assert.False(t, ok)
}

func TestSignInAdminSelectsFirstOutlet(t *testing.T) {
	gw := &mockGateway{principal: twoOutletPrincipal(authz.RoleAdmin), credential: "tok-1"}
	prefs := &memPrefs{}
	store := session.NewStore(gw, prefs, nil)

	require.NoError(t, store.SignInAdmin(context.Background(), "a@b.test", "secretpass"))

	st := store.State()
	assert.True(t, st.IsAuthenticated)
	assert.EqualValues(t, 5, st.CurrentOutletID)
	assert.Equal(t, "tok-1", store.Credential())

	saved, ok := prefs.Load(context.Background())
	assert.True(t, ok)
	assert.EqualValues(t, 5, saved)
}

func TestSignInUserSelectsFirstOutlet(t *testing.T) {
	gw := &mockGateway{principal: twoOutletPrincipal(authz.RoleAdmin), credential: "tok-9"}
	prefs := &memPrefs{}
	store := session.NewStore(gw, prefs, nil)

	require.NoError(t, store.SignInUser(context.Background(), "u@b.test", "secretpass"))

	st := store.State()
	assert.True(t, st.IsAuthenticated)
	assert.EqualValues(t, 5, st.CurrentOutletID)
	assert.Equal(t, "tok-9", store.Credential())

	saved, ok := prefs.Load(context.Background())
	assert.True(t, ok)
	assert.EqualValues(t, 5, saved)
}

func TestSignInSuperadminSkipsOutletSelection(t *testing.T) {
	gw := &mockGateway{principal: twoOutletPrincipal(authz.RoleSuperadmin)}
	prefs := &memPrefs{}
	store := session.NewStore(gw, prefs, nil)

	require.NoError(t, store.SignInSuperadmin(context.Background(), "root@hq.test", "secretpass"))

	st := store.State()
	assert.True(t, st.IsAuthenticated)
	assert.Zero(t, st.CurrentOutletID)
	_, ok := prefs.Load(context.Background())
	assert.False(t, ok)
}

func TestSignInFailureSurfacesErrorAndReRaises(t *testing.T) {
	boom := errors.New("invalid credentials")
	gw := &mockGateway{signInErr: boom}
	store := session.NewStore(gw, &memPrefs{}, nil)

	err := store.SignInAdmin(context.Background(), "a@b.test", "wrong")
	require.ErrorIs(t, err, boom)

	st := store.State()
	assert.False(t, st.IsAuthenticated)
	assert.False(t, st.Loading)
	assert.Equal(t, "invalid credentials", st.Error)
}

func TestSignOutUnconditional(t *testing.T) {
	gw := &mockGateway{principal: twoOutletPrincipal(authz.RoleAdmin), signOutErr: errors.New("network down")}
	prefs := &memPrefs{}
	store := session.NewStore(gw, prefs, nil)
	require.NoError(t, store.SignInAdmin(context.Background(), "a@b.test", "secretpass"))

	store.SignOut(context.Background())

	st := store.State()
	assert.False(t, st.IsAuthenticated)
	assert.Nil(t, st.Principal)
	assert.Zero(t, st.CurrentOutletID)
	assert.Empty(t, store.Credential())
	assert.Equal(t, 1, gw.signOutCalls)
	_, ok := prefs.Load(context.Background())
	assert.False(t, ok)
}

// racingGateway blocks its first sign-in until released so a second
// operation can overtake it.
type racingGateway struct {
	mockGateway
	mu      sync.Mutex
	calls   int
	started chan struct{}
	release chan struct{}
}

func (g *racingGateway) SignInAdmin(ctx context.Context, email, password string) (*authz.Principal, string, error) {
	g.mu.Lock()
	call := g.calls
	g.calls++
	g.mu.Unlock()
	if call == 0 {
		close(g.started)
		<-g.release
		return twoOutletPrincipal(authz.RoleAdmin), "stale", nil
	}
	return twoOutletPrincipal(authz.RoleAdmin), "fresh", nil
}

func TestOverlappingSignInsLastWriterWins(t *testing.T) {
	gw := &racingGateway{started: make(chan struct{}), release: make(chan struct{})}
	store := session.NewStore(gw, &memPrefs{}, nil)

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- store.SignInAdmin(context.Background(), "first@b.test", "secretpass")
	}()
	<-gw.started

	// A newer operation starts and completes while the first is still
	// in flight.
	require.NoError(t, store.SignInAdmin(context.Background(), "second@b.test", "secretpass"))

	// The stale operation's commit must be dropped.
	close(gw.release)
	err := <-firstDone
	require.ErrorIs(t, err, session.ErrSuperseded)
	assert.Equal(t, "fresh", store.Credential())
}

func TestSignUpReturnsMessage(t *testing.T) {
	gw := &mockGateway{signUpMsg: "verification email sent"}
	store := session.NewStore(gw, &memPrefs{}, nil)

	msg, err := store.SignUp(context.Background(), session.SignUpForm{Name: "A", Email: "a@b.test"})
	require.NoError(t, err)
	assert.Equal(t, "verification email sent", msg)

	st := store.State()
	assert.False(t, st.IsAuthenticated)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Error)
}
