// Package site serves the embedded lineup planner page.
package site

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net/http"
)

//go:embed static/*
var static embed.FS

// ErrServe is returned when the planner page cannot be served.
var ErrServe = errors.New("planner site serve failed")

const indexFile = "index.html"

// Register attaches the planner page at / and its assets under /static/.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	NewPlanner(Assets()).Register(mux)
}

// Assets returns the embedded static directory.
func Assets() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		return static
	}
	return sub
}

// Planner serves the planner page from an asset tree.
type Planner struct {
	files http.FileSystem
}

// NewPlanner creates a Planner over assets, which must hold index.html.
func NewPlanner(assets fs.FS) *Planner {
	return &Planner{files: http.FS(assets)}
}

// Register adds the planner routes to mux.
func (p *Planner) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", p.HandleIndex)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(p.files)))
}

// HandleIndex writes index.html.
func (p *Planner) HandleIndex(w http.ResponseWriter, r *http.Request) {
	f, err := p.files.Open(indexFile)
	if err != nil {
		http.Error(w, ErrServe.Error(), http.StatusInternalServerError)
		return
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		http.Error(w, ErrServe.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeContent(w, r, indexFile, st.ModTime(), f)
}
