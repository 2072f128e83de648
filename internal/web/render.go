package web

import (
	"embed"
	"html/template"
	"io/fs"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var templateFuncs = template.FuncMap{
	// PAGE_VIEW -> Page view
	"actionLabel": func(action string) string {
		s := strings.ToLower(strings.ReplaceAll(action, "_", " "))
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
	"datetime": func(t time.Time) string {
		return t.Local().Format("2006-01-02 15:04:05")
	},
}

func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.tmpl")
}

func staticFiles() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// page assembles the data of a page rendered inside the layout.
func (s *Server) page(title, active string, data gin.H) gin.H {
	out := gin.H{"Title": title, "Active": active}
	if n, ok := s.flash.Take(); ok {
		out["Flash"] = n
	}
	for k, v := range data {
		out[k] = v
	}
	return out
}
