package expand

import (
	"fmt"

	"paramgen/internal/diag"
	"paramgen/internal/source"
)

// StructuralError aborts expansion of a template: an unterminated or
// malformed directive, a missing or unreadable sub-template, or an inclusion
// chain deeper than the configured limit.
type StructuralError struct {
	Code diag.Code
	Span source.Span
	Pos  string // "path:line:col", empty when the span is unknown
	Msg  string
	Err  error
}

func (e *StructuralError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Pos == "" {
		return msg
	}
	return e.Pos + ": " + msg
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

func position(files *source.FileSet, span source.Span) string {
	if files == nil {
		return ""
	}
	f := files.Get(span.File)
	if f == nil {
		return ""
	}
	start, _ := files.Resolve(span)
	return fmt.Sprintf("%s:%d:%d", f.Path, start.Line, start.Col)
}
