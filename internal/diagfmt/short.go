package diagfmt

import (
	"io"

	"paramgen/internal/diag"
	"paramgen/internal/source"
)

// Short writes the one-line-per-diagnostic form produced by
// diag.FormatShortDiagnostics.
func Short(w io.Writer, bag *diag.Bag, fs *source.FileSet, includeNotes bool) error {
	out := diag.FormatShortDiagnostics(bag.Items(), fs, includeNotes)
	if out == "" {
		return nil
	}
	_, err := io.WriteString(w, out+"\n")
	return err
}
