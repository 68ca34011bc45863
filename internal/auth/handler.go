package auth

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mealdesk/mealdesk-console/internal/observability"
	"github.com/mealdesk/mealdesk-console/internal/session"
	"github.com/mealdesk/mealdesk-console/internal/shared"
	"github.com/mealdesk/mealdesk-console/internal/view"
)

// Handler wires HTTP endpoints for the sign-in, sign-up, sign-out and
// outlet-selection flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	audit          AuditRepository
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
	metrics        *observability.Metrics
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, audit AuditRepository, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager, metrics *observability.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		audit:          audit,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
		metrics:        metrics,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Get("/superadmin", h.showSuperadminLogin)
	r.Post("/superadmin", h.handleSuperadminLogin)
	r.Get("/signup", h.showSignup)
	r.Post("/signup", h.handleSignup)
	r.Post("/logout", h.handleLogout)
}

// HandleSelectOutlet switches the active outlet for the session. The
// requested id is validated against the principal's grants here, at the
// edge; the store itself trusts its callers.
func (h *Handler) HandleSelectOutlet(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}
	outletID, err := strconv.ParseInt(r.PostFormValue("outlet_id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	store := h.service.StoreFor(r.Context(), sess)
	st := store.State()
	if !st.IsAuthenticated || !st.Principal.HasOutlet(outletID) {
		h.logger.Warn("outlet switch rejected", slog.Int64("outlet", outletID), slog.Any("error", shared.ErrOutletNotGranted))
		sess.AddFlash(shared.FlashMessage{Kind: "error", Message: "That outlet is not available for your account"})
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	store.SelectOutlet(r.Context(), outletID)
	h.service.CommitState(sess, store)

	target := r.PostFormValue("return_to")
	if target == "" || !strings.HasPrefix(target, "/") {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

type signupForm struct {
	Name           string `validate:"required,min=2"`
	Email          string `validate:"required,email"`
	Phone          string `validate:"required,min=6"`
	Password       string `validate:"required,min=8"`
	RetypePassword string `validate:"required,eqfield=Password"`
}

type loginPageData struct {
	Form       loginForm
	Errors     map[string]string
	Next       string
	Superadmin bool
}

type signupPageData struct {
	Form    signupForm
	Errors  map[string]string
	Message string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, r, loginPageData{Next: r.URL.Query().Get("next")}, http.StatusOK)
}

func (h *Handler) showSuperadminLogin(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, r, loginPageData{Next: r.URL.Query().Get("next"), Superadmin: true}, http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	h.signIn(w, r, false)
}

func (h *Handler) handleSuperadminLogin(w http.ResponseWriter, r *http.Request) {
	h.signIn(w, r, true)
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request, superadmin bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())

	form := loginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	next := r.PostFormValue("next")
	formErrors := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		for _, fieldErr := range err.(validator.ValidationErrors) {
			formErrors[fieldErr.Field()] = fieldErr.Error()
		}
	}

	if len(formErrors) == 0 && sess != nil {
		store := h.service.StoreFor(r.Context(), sess)
		var err error
		if superadmin {
			err = store.SignInSuperadmin(r.Context(), form.Email, form.Password)
		} else {
			err = store.SignInAdmin(r.Context(), form.Email, form.Password)
		}
		role := "admin"
		if superadmin {
			role = "superadmin"
		}
		if err != nil {
			h.metrics.RecordSignIn(role, "failure")
			formErrors["general"] = store.State().Error
			if formErrors["general"] == "" {
				formErrors["general"] = "Sign-in failed"
			}
		} else {
			h.metrics.RecordSignIn(role, "success")
			h.service.CommitState(sess, store)
			st := store.State()
			h.recordSignIn(r, sess.ID, st)
			sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Welcome back"})
			http.Redirect(w, r, postLoginRedirect(st, next), http.StatusSeeOther)
			return
		}
	}

	h.renderLogin(w, r, loginPageData{Form: form, Errors: formErrors, Next: next, Superadmin: superadmin}, http.StatusBadRequest)
}

func (h *Handler) showSignup(w http.ResponseWriter, r *http.Request) {
	h.renderSignup(w, r, signupPageData{}, http.StatusOK)
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())

	form := signupForm{
		Name:           strings.TrimSpace(r.PostFormValue("name")),
		Email:          strings.TrimSpace(r.PostFormValue("email")),
		Phone:          strings.TrimSpace(r.PostFormValue("phone")),
		Password:       r.PostFormValue("password"),
		RetypePassword: r.PostFormValue("retype_password"),
	}
	formErrors := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		for _, fieldErr := range err.(validator.ValidationErrors) {
			formErrors[fieldErr.Field()] = fieldErr.Error()
		}
	}

	if len(formErrors) == 0 && sess != nil {
		store := h.service.StoreFor(r.Context(), sess)
		message, err := store.SignUp(r.Context(), session.SignUpForm{
			Name:           form.Name,
			Email:          form.Email,
			Phone:          form.Phone,
			Password:       form.Password,
			RetypePassword: form.RetypePassword,
		})
		if err != nil {
			formErrors["general"] = err.Error()
		} else {
			if message == "" {
				message = "Account created. You can sign in once it is verified."
			}
			sess.AddFlash(shared.FlashMessage{Kind: "success", Message: message})
			http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
			return
		}
	}

	h.renderSignup(w, r, signupPageData{Form: form, Errors: formErrors}, http.StatusBadRequest)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		store := h.service.StoreFor(r.Context(), sess)
		store.SignOut(r.Context())
		h.service.CommitState(sess, store)
		if h.audit != nil {
			if err := h.audit.CloseSession(r.Context(), sess.ID); err != nil {
				h.logger.Warn("close audit session", slog.Any("error", err))
			}
		}
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

func (h *Handler) recordSignIn(r *http.Request, sessionID string, st session.State) {
	if h.audit == nil || st.Principal == nil {
		return
	}
	rec := SignInRecord{
		SessionID:   sessionID,
		PrincipalID: st.Principal.ID,
		Email:       st.Principal.Email,
		Role:        st.Principal.Role,
		IP:          r.RemoteAddr,
		UserAgent:   r.UserAgent(),
		ExpiresAt:   time.Now().Add(h.sessionManager.TTL()),
	}
	if err := h.audit.RecordSignIn(r.Context(), rec); err != nil {
		h.logger.Warn("record sign-in", slog.Any("error", err))
	}
}

// postLoginRedirect honors the originally requested location when it is
// reachable, otherwise falls back to the first accessible route.
func postLoginRedirect(st session.State, next string) string {
	if next != "" && strings.HasPrefix(next, "/") {
		trimmed := next
		if i := strings.IndexByte(trimmed, '?'); i >= 0 {
			trimmed = trimmed[:i]
		}
		for _, route := range st.AccessibleRoutes() {
			if route.Path == trimmed {
				return next
			}
		}
		if st.Principal.IsSuperadmin() {
			return next
		}
	}
	if routes := st.AccessibleRoutes(); len(routes) > 0 {
		return routes[0].Path
	}
	return "/"
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, data loginPageData, status int) {
	page := "pages/login.html"
	title := "Sign in"
	if data.Superadmin {
		page = "pages/superadmin_login.html"
		title = "Superadmin sign in"
	}
	h.renderPage(w, r, page, title, data, status)
}

func (h *Handler) renderSignup(w http.ResponseWriter, r *http.Request, data signupPageData, status int) {
	h.renderPage(w, r, "pages/signup.html", "Create account", data, status)
}

func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, page, title string, data any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken := ""
	var flash *shared.FlashMessage
	if sess != nil {
		csrfToken, _ = h.csrfManager.EnsureToken(r.Context(), sess)
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	if err := h.templates.Render(w, page, viewData); err != nil {
		h.logger.Error("render auth page", slog.String("page", page), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// ShowLoginForTest exposes the GET handler for tests.
func (h *Handler) ShowLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.showLogin(w, r)
}

// HandleLoginForTest exposes the POST handler for tests.
func (h *Handler) HandleLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogin(w, r)
}
