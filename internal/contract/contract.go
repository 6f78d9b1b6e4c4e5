// Package contract embeds the per-parameter code of the fixed
// parameter-access insertion points: storage declarations, reset to
// defaults, getter cases and setter cases.
package contract

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.cgen_template
var templatesFS embed.FS

// Fixed insertion points, in the order they appear in a generated unit.
const (
	PointMemPool = "mem_pool"
	PointInit    = "initParams"
	PointGet     = "getParams"
	PointSet     = "setParams"
)

// Extension of the embedded templates.
const Extension = ".cgen_template"

// Points lists the fixed insertion points.
var Points = []string{PointMemPool, PointInit, PointGet, PointSet}

// IsFixed reports whether point is one of the fixed insertion points.
func IsFixed(point string) bool {
	for _, p := range Points {
		if p == point {
			return true
		}
	}
	return false
}

// FS exposes the built-in templates, one "<point>.cgen_template" per fixed
// insertion point.
func FS() fs.FS {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// Template returns the raw built-in template of point.
func Template(point string) ([]byte, error) {
	return fs.ReadFile(FS(), point+Extension)
}
