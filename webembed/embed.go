// Package webembed holds the browser editor page, the preview page and their
// static assets.
package webembed

import (
	"embed"
	"io/fs"
)

//go:embed static templates
var content embed.FS

// Static is served under /www.
var Static = mustSub("static")

// Templates holds the html/template sources for the editor and preview pages.
var Templates = mustSub("templates")

func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(content, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
