package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mealdesk/mealdesk-console/internal/auth"
	"github.com/mealdesk/mealdesk-console/internal/authz"
	"github.com/mealdesk/mealdesk-console/internal/guard"
	"github.com/mealdesk/mealdesk-console/internal/observability"
	"github.com/mealdesk/mealdesk-console/internal/session"
	"github.com/mealdesk/mealdesk-console/internal/shared"
	"github.com/mealdesk/mealdesk-console/internal/view"
	"github.com/mealdesk/mealdesk-console/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	AuthService    *auth.Service
	AuthHandler    *auth.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router for the console. Every section
// from the route table is mounted behind AuthGuard first, then
// PermissionGuard; both read the state resolved by the middleware
// stack. The navigation partial uses the same table, so guards and nav
// cannot drift.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		AuthService:    params.AuthService,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	if static, err := fs.Sub(web.Static, "static"); err == nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)

	guards := guard.Middleware{
		Logger:  params.Logger,
		Pending: pendingHandler(params),
		Metrics: params.Metrics,
	}

	r.Group(func(r chi.Router) {
		r.Use(guards.RequireAuth)
		r.Post("/outlets/select", params.AuthHandler.HandleSelectOutlet)
	})

	for _, route := range authz.Routes() {
		route := route
		r.Group(func(r chi.Router) {
			r.Use(guards.RequireAuth)
			if route.RequiredPermission != "" {
				r.Use(guards.RequirePermission(route.RequiredPermission))
			}
			if route.Path == "/" {
				r.Get(route.Path, homeHandler(params))
			} else {
				r.Get(route.Path, sectionHandler(params, route))
			}
		})
	}

	return r
}

// baseData assembles the template fields every signed-in page shares.
func baseData(st session.State, title, currentPath, csrfToken string, flash *shared.FlashMessage) view.TemplateData {
	data := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: currentPath,
		SignedIn:    st.IsAuthenticated,
	}
	if st.Principal != nil {
		data.DisplayName = st.Principal.DisplayName
		data.Outlets = st.Principal.Outlets
		data.CurrentOutletID = st.CurrentOutletID
		if st.Principal.IsSuperadmin() {
			data.Nav = authz.Routes()
		} else {
			data.Nav = st.AccessibleRoutes()
		}
	}
	return data
}

type homeTile struct {
	Route    authz.Route
	Disabled bool
}

func homeHandler(params RouterParams) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := session.StateFromContext(r.Context())
		sess := shared.SessionFromContext(r.Context())
		csrfToken, flash := sessionBits(r, params, sess)

		tiles := make([]homeTile, 0, len(authz.Routes()))
		for _, route := range authz.Routes() {
			if route.Path == "/" {
				continue
			}
			decision := guard.Permission(st, route.RequiredPermission, guard.EnforceOverlay{})
			tiles = append(tiles, homeTile{Route: route, Disabled: decision.Kind == guard.RenderDisabled})
		}

		data := baseData(st, "Home", r.URL.Path, csrfToken, flash)
		data.Data = struct{ Tiles []homeTile }{Tiles: tiles}
		renderPage(w, params, "pages/home.html", data)
	}
}

func sectionHandler(params RouterParams, route authz.Route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := session.StateFromContext(r.Context())
		sess := shared.SessionFromContext(r.Context())
		csrfToken, flash := sessionBits(r, params, sess)

		var outlet *authz.OutletGrant
		if grant, ok := st.Principal.Grant(st.CurrentOutletID); ok {
			outlet = &grant
		}

		data := baseData(st, route.Name, r.URL.Path, csrfToken, flash)
		data.Data = struct {
			Section authz.Route
			Outlet  *authz.OutletGrant
		}{Section: route, Outlet: outlet}
		renderPage(w, params, "pages/section.html", data)
	}
}

func pendingHandler(params RouterParams) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := session.StateFromContext(r.Context())
		data := baseData(st, "Loading", r.URL.Path, "", nil)
		renderPage(w, params, "pages/loading.html", data)
	})
}

func sessionBits(r *http.Request, params RouterParams, sess *shared.Session) (string, *shared.FlashMessage) {
	if sess == nil {
		return "", nil
	}
	token, _ := params.CSRFManager.EnsureToken(r.Context(), sess)
	return token, sess.PopFlash()
}

func renderPage(w http.ResponseWriter, params RouterParams, page string, data view.TemplateData) {
	if err := params.Templates.Render(w, page, data); err != nil {
		params.Logger.Error("render page", slog.String("page", page), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
