// Package client embeds the browser script that binds the intake page to
// its live session.
package client

import (
	"embed"
	"io/fs"
	"net/http"
)

// ScriptName is the file the page layout loads.
const ScriptName = "intake.js"

//go:embed src/*.js
var assets embed.FS

// Assets returns the embedded filesystem containing JavaScript files.
func Assets() fs.FS {
	fsys, err := fs.Sub(assets, "src")
	if err != nil {
		panic(err)
	}
	return fsys
}

// Handler serves the embedded assets. Mount it behind http.StripPrefix.
func Handler() http.Handler {
	return http.FileServer(http.FS(Assets()))
}

// GetFile returns the contents of an embedded file.
func GetFile(name string) ([]byte, error) {
	return assets.ReadFile("src/" + name)
}
