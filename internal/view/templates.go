package view

import (
	"fmt"
	"html/template"
	"net/http"

	"github.com/mealdesk/mealdesk-console/internal/authz"
	"github.com/mealdesk/mealdesk-console/internal/shared"
	"github.com/mealdesk/mealdesk-console/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title           string
	CSRFToken       string
	Flash           *shared.FlashMessage
	CurrentPath     string
	SignedIn        bool
	DisplayName     string
	Nav             []authz.Route
	Outlets         []authz.OutletGrant
	CurrentOutletID int64
	Data            any
}

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"permLabel": func(t authz.PermissionType) string {
			return permissionLabel(t)
		},
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.templates.ExecuteTemplate(w, name, data)
}

// permissionLabel maps a permission type to its section title.
func permissionLabel(t authz.PermissionType) string {
	for _, r := range authz.Routes() {
		if r.RequiredPermission == t {
			return r.Name
		}
	}
	return string(t)
}
