package server

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
)

// templateFuncs are the helpers every page template can call.
var templateFuncs = template.FuncMap{
	"money": func(v float64) string {
		return fmt.Sprintf("$%.2f", v)
	},
	"runtime": func(minutes int) string {
		if minutes < 60 {
			return fmt.Sprintf("%dm", minutes)
		}
		return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
	},
}

// SetupTemplates parses the embedded page templates onto the router.
func SetupTemplates(r *gin.Engine, templates fs.FS) error {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templates, "templates/*.tmpl")
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)
	return nil
}

// SetupAssets configures static asset serving for the Gin router
func SetupAssets(r *gin.Engine, assets fs.FS) error {
	staticFiles, err := fs.Sub(assets, "assets")
	if err != nil {
		return err
	}
	r.StaticFS("/assets", http.FS(staticFiles))
	return nil
}
