package driver

import (
	"path/filepath"
	"strings"

	"paramgen/internal/diag"
	"paramgen/internal/params"
	"paramgen/internal/source"
)

// LoadTable reads the descriptor at path into files and builds its table.
// Files ending in .csv are read as CSV parameter lists; anything else as
// $param$ declarations. A read failure is reported and returned as a
// *LoadError.
func LoadTable(files *source.FileSet, path string, reporter diag.Reporter, opts params.Options) (*params.Table, error) {
	id, err := files.Load(path)
	if err != nil {
		lerr := &LoadError{Path: path, What: "descriptor", Err: err}
		diag.ReportError(reporter, diag.IOLoadFileError, source.NoSpan, lerr.Error()).Emit()
		return params.Empty(), lerr
	}
	file := files.Get(id)
	if IsCSV(path) {
		return params.BuildCSV(file, reporter, opts), nil
	}
	return params.Build(file, reporter, opts), nil
}

// IsCSV reports whether path names a CSV parameter list.
func IsCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}
