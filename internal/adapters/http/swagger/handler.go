// Package swagger publishes the OpenAPI document of the lineup API together
// with a ReDoc page that renders it.
package swagger

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// OpenAPI is the embedded OpenAPI 3 document.
//
//go:embed openapi.yaml
var OpenAPI []byte

// ErrServe is reported when the embedded document is missing.
var ErrServe = errors.New("swagger serve failed")

const (
	docsPath = "/api-docs"
	specPath = "/openapi.yaml"
)

// Register adds GET /api-docs (ReDoc) and GET /openapi.yaml to mux.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("GET "+docsPath, serveDocs)
	mux.HandleFunc("GET "+specPath, serveSpec)
}

func serveDocs(w http.ResponseWriter, _ *http.Request) {
	write(w, "text/html; charset=utf-8", []byte(docsPage))
}

func serveSpec(w http.ResponseWriter, _ *http.Request) {
	if len(OpenAPI) == 0 {
		http.Error(w, ErrServe.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	write(w, "application/yaml; charset=utf-8", OpenAPI)
}

func write(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	_, _ = w.Write(body)
}

var docsPage = fmt.Sprintf(`<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>Lineup API Docs</title>
    <style>body{margin:0}</style>
  </head>
  <body>
    <redoc id="redoc-container"></redoc>
    <script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>
    <script>Redoc.init(%q, {suppressWarnings: true, hideDownloadButton: false}, document.getElementById('redoc-container'));</script>
  </body>
</html>`, specPath)
