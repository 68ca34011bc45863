package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/mealdesk/mealdesk-console/internal/authz"
)

var (
	// ErrSuperseded is returned when an auth operation completed but a
	// newer operation had already started; the stale result was discarded.
	ErrSuperseded = errors.New("session: operation superseded")
	// ErrNoSession is returned by a session-check when the remote API
	// reports no active session. It is expected and never logged.
	ErrNoSession = errors.New("session: no active session")
)

// SignUpForm is the admin registration payload forwarded to the remote
// API. Structural validation happens at the UI edge before this point.
type SignUpForm struct {
	Name           string
	Email          string
	Phone          string
	Password       string
	RetypePassword string
}

// Gateway is the remote auth API surface the store depends on.
// Implementations normalize backend payload variants into one Principal
// shape and never retry.
type Gateway interface {
	SessionCheck(ctx context.Context, credential string) (*authz.Principal, error)
	SignInAdmin(ctx context.Context, email, password string) (*authz.Principal, string, error)
	SignInSuperadmin(ctx context.Context, email, password string) (*authz.Principal, string, error)
	SignInUser(ctx context.Context, email, password string) (*authz.Principal, string, error)
	SignUp(ctx context.Context, form SignUpForm) (string, error)
	SignOut(ctx context.Context, credential string) error
}

// OutletPrefs persists the selected outlet id across reloads. It is the
// only durable state owned by the session core.
type OutletPrefs interface {
	Load(ctx context.Context) (int64, bool)
	Save(ctx context.Context, outletID int64) error
	Clear(ctx context.Context) error
}

// Store is the single owner of session state. All transitions funnel
// through its reducer; readers take value snapshots via State.
//
// Overlapping operations follow last-writer-wins: every operation
// snapshots a generation at start, and commits from a superseded
// generation are dropped.
type Store struct {
	mu         sync.Mutex
	state      State
	gen        uint64
	credential string

	gateway Gateway
	prefs   OutletPrefs
	logger  *slog.Logger
}

// NewStore builds a store in the startup (loading) state.
func NewStore(gateway Gateway, prefs OutletPrefs, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		state:   NewState(),
		gateway: gateway,
		prefs:   prefs,
		logger:  logger,
	}
}

// Seed installs a previously committed snapshot, bypassing the gateway.
// Used when rehydrating a store from a persisted browser session.
func (s *Store) Seed(st State, credential string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
	s.credential = credential
}

// State returns a snapshot of the current session state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Credential returns the ambient credential for the remote API.
func (s *Store) Credential() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credential
}

// Dispatch applies a single action outside of any operation. Callers
// owning outlet-selection policy use this together with SelectOutlet.
func (s *Store) Dispatch(a Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, a)
}

// begin starts an operation: bumps the generation, dispatches
// BeginLoading and returns the operation's generation token.
func (s *Store) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.state = Reduce(s.state, BeginLoading{})
	return s.gen
}

// commit applies the operation's result actions unless a newer
// operation has started since gen was issued.
func (s *Store) commit(gen uint64, credential string, actions ...Action) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	for _, a := range actions {
		s.state = Reduce(s.state, a)
	}
	s.credential = credential
	return true
}

// Initialize runs the session-restore protocol: a remote session-check
// followed by outlet restoration from the persisted preference, falling
// back to the principal's first outlet. Failures are swallowed into the
// anonymous state; there is no caller awaiting them.
func (s *Store) Initialize(ctx context.Context) {
	gen := s.begin()
	principal, err := s.gateway.SessionCheck(ctx, s.Credential())
	if err != nil || principal == nil {
		if err != nil && !errors.Is(err, ErrNoSession) {
			s.logger.Warn("session check", slog.Any("error", err))
		}
		if err := s.prefs.Clear(ctx); err != nil {
			s.logger.Warn("clear outlet preference", slog.Any("error", err))
		}
		s.commit(gen, "", AuthFailed{})
		return
	}

	actions := []Action{AuthSucceeded{Principal: principal}}
	var selected int64
	if len(principal.Outlets) > 0 {
		selected = principal.Outlets[0].OutletID
		if stored, ok := s.prefs.Load(ctx); ok && principal.HasOutlet(stored) {
			selected = stored
		}
		actions = append(actions, SetCurrentOutlet{OutletID: selected})
	}
	if s.commit(gen, s.Credential(), actions...) && selected != 0 {
		if err := s.prefs.Save(ctx, selected); err != nil {
			s.logger.Warn("persist outlet preference", slog.Any("error", err))
		}
	}
}

// SignInAdmin authenticates an outlet administrator. On success the
// first granted outlet is selected and persisted. The gateway error is
// re-raised so the form layer can display it.
func (s *Store) SignInAdmin(ctx context.Context, email, password string) error {
	return s.signIn(ctx, email, password, s.gateway.SignInAdmin, true)
}

// SignInSuperadmin authenticates a platform operator. Superadmins are
// not outlet-scoped, so no outlet is auto-selected.
func (s *Store) SignInSuperadmin(ctx context.Context, email, password string) error {
	return s.signIn(ctx, email, password, s.gateway.SignInSuperadmin, false)
}

// SignInUser authenticates through the plain user endpoint.
func (s *Store) SignInUser(ctx context.Context, email, password string) error {
	return s.signIn(ctx, email, password, s.gateway.SignInUser, true)
}

type signInFunc func(ctx context.Context, email, password string) (*authz.Principal, string, error)

func (s *Store) signIn(ctx context.Context, email, password string, call signInFunc, selectFirstOutlet bool) error {
	if err := s.prefs.Clear(ctx); err != nil {
		s.logger.Warn("clear outlet preference", slog.Any("error", err))
	}
	gen := s.begin()
	principal, credential, err := call(ctx, email, password)
	if err != nil {
		s.commit(gen, "", Errored{Message: err.Error()})
		return err
	}

	actions := []Action{AuthSucceeded{Principal: principal}}
	var selected int64
	if selectFirstOutlet && len(principal.Outlets) > 0 {
		selected = principal.Outlets[0].OutletID
		actions = append(actions, SetCurrentOutlet{OutletID: selected})
	}
	if !s.commit(gen, credential, actions...) {
		return ErrSuperseded
	}
	if selected != 0 {
		if err := s.prefs.Save(ctx, selected); err != nil {
			s.logger.Warn("persist outlet preference", slog.Any("error", err))
		}
	}
	return nil
}

// SignUp registers a new admin account. The session state is untouched
// beyond the loading flag; the remote message is returned for display.
func (s *Store) SignUp(ctx context.Context, form SignUpForm) (string, error) {
	gen := s.begin()
	message, err := s.gateway.SignUp(ctx, form)
	if err != nil {
		s.commit(gen, s.Credential(), Errored{Message: err.Error()})
		return "", err
	}
	if !s.commit(gen, s.Credential(), SettleLoading{}) {
		return "", ErrSuperseded
	}
	return message, nil
}

// SignOut tears the session down. Local invalidation is unconditional:
// the remote call's outcome is logged and otherwise ignored, and a
// sign-out always wins over any in-flight operation.
func (s *Store) SignOut(ctx context.Context) {
	credential := s.Credential()
	if err := s.gateway.SignOut(ctx, credential); err != nil {
		s.logger.Warn("remote sign-out", slog.Any("error", err))
	}
	if err := s.prefs.Clear(ctx); err != nil {
		s.logger.Warn("clear outlet preference", slog.Any("error", err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.state = Reduce(s.state, AuthFailed{})
	s.credential = ""
}

// SelectOutlet switches the active outlet and persists the choice.
// Callers validate the id against the principal's grants first.
func (s *Store) SelectOutlet(ctx context.Context, outletID int64) {
	s.Dispatch(SetCurrentOutlet{OutletID: outletID})
	if err := s.prefs.Save(ctx, outletID); err != nil {
		s.logger.Warn("persist outlet preference", slog.Any("error", err))
	}
}
