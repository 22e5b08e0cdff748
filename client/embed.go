// Package client provides the embedded browser assets for the live page.
package client

import (
	"embed"
	"io/fs"
	"net/http"
)

// Asset names served under the live prefix.
const (
	ScriptName     = "cardgrid.js"
	StylesheetName = "cardgrid.css"
)

//go:embed src/*.js src/*.css
var assets embed.FS

// Assets returns the embedded filesystem rooted at the asset directory.
func Assets() fs.FS {
	fsys, err := fs.Sub(assets, "src")
	if err != nil {
		panic(err)
	}
	return fsys
}

// Handler returns an HTTP handler that serves the embedded assets.
func Handler() http.Handler {
	return http.FileServer(http.FS(Assets()))
}

// GetFile returns the contents of an embedded file.
func GetFile(name string) ([]byte, error) {
	return assets.ReadFile("src/" + name)
}
