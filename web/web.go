// Package web embeds the HTML templates.
package web

import (
	"embed"
	"html/template"
	"time"

	"stocks-trader/usd"
)

//go:embed templates/*.html
var templateFS embed.FS

// FuncMap is available to every template.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"usd": usd.Format,
		"timestamp": func(t time.Time) string {
			return t.UTC().Format("2006-01-02 15:04:05")
		},
	}
}

// Templates parses every page. Pages share the "header" and "footer"
// blocks from layout.html and are looked up by file name.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(FuncMap()).ParseFS(templateFS, "templates/*.html")
}
