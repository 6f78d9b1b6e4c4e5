package diagfmt

import (
	"paramgen/internal/source"
)

// filePath renders the path of span's file, or "" for spans that point at no
// loaded file (project-level findings).
func filePath(fs *source.FileSet, span source.Span, mode PathMode) string {
	if fs == nil {
		return ""
	}
	f := fs.Get(span.File)
	if f == nil {
		return ""
	}
	if mode == PathModeRelative {
		return f.FormatPath("relative", fs.BaseDir())
	}
	return f.FormatPath(mode.mode(), "")
}
