package console

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
)

const contentTypeHTML = "text/html; charset=utf-8"

//go:embed templates/*
var templateFiles embed.FS

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

// pageSet holds each page parsed together with the shared layout.
type pageSet struct {
	pages map[string]*template.Template
}

var pageNames = []string{
	"login.html",
	"register.html",
	"dashboard.html",
	"users.html",
	"unauthorized.html",
	"forgot_password.html",
}

var templateFuncs = template.FuncMap{
	// safeURL admits inline image data URIs, which html/template would otherwise filter,
	// and plain http(s) image links.
	"safeURL": func(s string) template.URL {
		switch {
		case strings.HasPrefix(s, "data:image/"), strings.HasPrefix(s, "https://"), strings.HasPrefix(s, "http://"):
			return template.URL(s)
		}
		return ""
	},
}

func parsePages() (*pageSet, error) {
	set := &pageSet{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(TemplateFilesFS(), "layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		set.pages[name] = tmpl
	}
	return set, nil
}

// render executes page into a buffer first so a template error never leaves a half
// written response.
func (p *pageSet) render(w http.ResponseWriter, status int, name string, data any) error {
	tmpl, ok := p.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
