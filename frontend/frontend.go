// Package frontend provides the embedded review UI, served when no
// --static-dir is configured.
package frontend

import (
	"embed"
	"io/fs"
)

//go:embed dist/*
var files embed.FS

// Files returns the UI rooted at its index.html.
func Files() fs.FS {
	sub, err := fs.Sub(files, "dist")
	if err != nil {
		panic(err)
	}
	return sub
}
