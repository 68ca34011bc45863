package guard

import (
	"log/slog"
	"net/http"

	"github.com/mealdesk/mealdesk-console/internal/authz"
	"github.com/mealdesk/mealdesk-console/internal/session"
)

// Middleware adapts guard decisions to chi-style HTTP middleware. The
// session state is read from the request context, where the auth
// middleware placed it.
type Middleware struct {
	Logger *slog.Logger
	// Pending renders the loading placeholder while a session-check is
	// still in flight. Falls back to 503 when unset.
	Pending http.Handler
	// Metrics counts denied navigations when set.
	Metrics DenialRecorder
}

// DenialRecorder counts guard bounces, labeled by which guard fired.
type DenialRecorder interface {
	RecordGuardDenial(guard string)
}

// RequireAuth enforces "must be authenticated". It always runs before
// any permission middleware on a protected route.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := session.StateFromContext(r.Context())
		switch d := Auth(st, r.URL.RequestURI()); d.Kind {
		case Render:
			next.ServeHTTP(w, r)
		case Pending:
			m.renderPending(w, r)
		case Redirect:
			if m.Metrics != nil {
				m.Metrics.RecordGuardDenial("auth")
			}
			http.Redirect(w, r, d.Path, http.StatusSeeOther)
		}
	})
}

// RequirePermission enforces "must hold the permission for the current
// outlet", redirecting denials to the first accessible route.
func (m Middleware) RequirePermission(required authz.PermissionType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st := session.StateFromContext(r.Context())
			switch d := Permission(st, required, EnforceRedirect{}); d.Kind {
			case Render:
				next.ServeHTTP(w, r)
			case Redirect:
				if m.Metrics != nil {
					m.Metrics.RecordGuardDenial("permission")
				}
				if m.Logger != nil {
					m.Logger.Debug("permission denied",
						slog.String("permission", string(required)),
						slog.String("path", r.URL.Path),
						slog.Int64("outlet", st.CurrentOutletID))
				}
				http.Redirect(w, r, d.Path, http.StatusSeeOther)
			default:
				// RenderDisabled never comes out of redirect mode and
				// Pending belongs to RequireAuth; treat as denial.
				http.Redirect(w, r, "/", http.StatusSeeOther)
			}
		})
	}
}

func (m Middleware) renderPending(w http.ResponseWriter, r *http.Request) {
	if m.Pending != nil {
		m.Pending.ServeHTTP(w, r)
		return
	}
	w.Header().Set("Retry-After", "1")
	http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
}
