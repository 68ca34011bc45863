package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mealdesk/mealdesk-console/internal/authz"
	"github.com/mealdesk/mealdesk-console/internal/session"
	"github.com/mealdesk/mealdesk-console/internal/shared"
)

// Service glues the session store to the browser session: it builds a
// store per request from the persisted snapshot and writes committed
// state back.
type Service struct {
	gateway session.Gateway
	redis   *redis.Client
	prefTTL time.Duration
	logger  *slog.Logger
}

// NewService constructs a Service.
func NewService(gateway session.Gateway, redisClient *redis.Client, prefTTL time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{gateway: gateway, redis: redisClient, prefTTL: prefTTL, logger: logger}
}

// StoreFor builds a session store bound to the browser session's outlet
// preference, seeded from its cached snapshot when one exists.
func (s *Service) StoreFor(ctx context.Context, sess *shared.Session) *session.Store {
	prefs := session.NewOutletPrefs(s.redis, sess.ID, s.prefTTL)
	store := session.NewStore(s.gateway, prefs, s.logger)

	raw := sess.Principal()
	if len(raw) == 0 {
		store.Seed(session.State{}, sess.Credential())
		return store
	}

	var principal authz.Principal
	if err := json.Unmarshal(raw, &principal); err != nil {
		s.logger.Warn("decode principal snapshot", slog.Any("error", err))
		store.Seed(session.State{}, sess.Credential())
		return store
	}

	st := session.State{IsAuthenticated: true, Principal: &principal}
	if len(principal.Outlets) > 0 {
		st.CurrentOutletID = principal.Outlets[0].OutletID
		if stored, ok := prefs.Load(ctx); ok && principal.HasOutlet(stored) {
			st.CurrentOutletID = stored
		}
	}
	store.Seed(st, sess.Credential())
	return store
}

// ResolveState produces the session state for a request. A session
// holding a credential but no principal snapshot triggers the full
// session-restore protocol against the remote API.
func (s *Service) ResolveState(ctx context.Context, sess *shared.Session) session.State {
	if sess == nil {
		return session.State{}
	}
	store := s.StoreFor(ctx, sess)
	if len(sess.Principal()) == 0 && sess.Credential() != "" {
		store.Initialize(ctx)
		s.CommitState(sess, store)
	}
	return store.State()
}

// CommitState writes the store's committed state back into the browser
// session. An unauthenticated state clears the snapshot and credential.
func (s *Service) CommitState(sess *shared.Session, store *session.Store) {
	if sess == nil || store == nil {
		return
	}
	st := store.State()
	if !st.IsAuthenticated || st.Principal == nil {
		sess.SetPrincipal(nil)
		sess.SetCredential("")
		return
	}
	raw, err := json.Marshal(st.Principal)
	if err != nil {
		s.logger.Error("encode principal snapshot", slog.Any("error", err))
		return
	}
	sess.SetPrincipal(raw)
	sess.SetCredential(store.Credential())
}
