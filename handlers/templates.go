package handlers

import (
	"embed"
	"html/template"
	"io/fs"
	"path"
	"strings"

	"github.com/giygas/hospital-portal/entities"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/layout.html"

var templateFuncs = template.FuncMap{
	"appointmentLabel": func(s entities.AppointmentStatus) string { return s.Label() },
	"title": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
}

// mustParseTemplates parses every page together with the shared layout.
// Each page gets its own set so their "content" blocks do not collide.
func mustParseTemplates() map[string]*template.Template {
	pages, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		panic(err)
	}

	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		if page == layoutFile {
			continue
		}
		name := strings.TrimSuffix(path.Base(page), ".html")
		templates[name] = template.Must(
			template.New(name).Funcs(templateFuncs).ParseFS(templateFS, layoutFile, page),
		)
	}
	return templates
}
