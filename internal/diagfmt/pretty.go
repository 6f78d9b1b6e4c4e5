package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"paramgen/internal/diag"
	"paramgen/internal/source"
)

type palette struct {
	err, warn, info, note, path, gutter, caret *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan, color.Bold),
		note:   color.New(color.FgBlue, color.Bold),
		path:   color.New(color.Bold),
		gutter: color.New(color.FgBlue),
		caret:  color.New(color.FgGreen, color.Bold),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.note, p.path, p.gutter, p.caret} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty writes diagnostics in human-readable form, in bag order (call
// bag.Sort first for a location-ordered report):
//
//	<path>:<line>:<col>: <SEV> <CODE>: <message>
//	   3 | $p-line$ all p_name
//	     | ^~~~~~~~~~~~~~~~~~~
//	  note: <path>:<line>:<col>: <message>
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for _, d := range bag.Items() {
		prettyOne(w, d, fs, opts, p)
	}
	if n := bag.Dropped(); n > 0 {
		fmt.Fprintf(w, "... %d more diagnostic(s) not shown\n", n)
	}
}

func prettyOne(w io.Writer, d diag.Diagnostic, fs *source.FileSet, opts PrettyOpts, p palette) {
	loc := location(fs, d.Primary, opts.PathMode)
	sev := p.severity(d.Severity)
	if loc == "" {
		fmt.Fprintf(w, "%s %s: %s\n", sev.Sprint(d.Severity.String()), d.Code.ID(), d.Message)
	} else {
		fmt.Fprintf(w, "%s: %s %s: %s\n", p.path.Sprint(loc), sev.Sprint(d.Severity.String()), d.Code.ID(), d.Message)
		if opts.Excerpt {
			writeExcerpt(w, fs, d.Primary, p)
		}
	}

	if !opts.ShowNotes {
		return
	}
	for _, n := range d.Notes {
		nloc := location(fs, n.Span, opts.PathMode)
		if nloc == "" {
			fmt.Fprintf(w, "  %s: %s\n", p.note.Sprint("note"), n.Msg)
			continue
		}
		fmt.Fprintf(w, "  %s: %s: %s\n", p.note.Sprint("note"), nloc, n.Msg)
	}
}

func location(fs *source.FileSet, span source.Span, mode PathMode) string {
	path := filePath(fs, span, mode)
	if path == "" {
		return ""
	}
	start, _ := fs.Resolve(span)
	return fmt.Sprintf("%s:%d:%d", path, start.Line, start.Col)
}

func writeExcerpt(w io.Writer, fs *source.FileSet, span source.Span, p palette) {
	file := fs.Get(span.File)
	start, end := fs.Resolve(span)
	text := file.GetLine(start.Line)
	if text == "" {
		return
	}

	gutter := fmt.Sprintf("%4d", start.Line)
	pad := strings.Repeat(" ", len(gutter))
	fmt.Fprintf(w, "%s %s %s\n", p.gutter.Sprint(gutter), p.gutter.Sprint("|"), text)

	col := int(start.Col) - 1
	col = min(max(col, 0), len(text))
	width := len(text) - col
	if end.Line == start.Line && end.Col > start.Col {
		width = int(end.Col - start.Col)
	}
	width = max(min(width, len(text)-col), 1)

	// keep tabs so the caret lines up with the excerpt
	var lead strings.Builder
	for _, r := range text[:col] {
		if r == '\t' {
			lead.WriteByte('\t')
			continue
		}
		lead.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	underline := "^" + strings.Repeat("~", width-1)
	fmt.Fprintf(w, "%s %s %s%s\n", pad, p.gutter.Sprint("|"), lead.String(), p.caret.Sprint(underline))
}

// Summary returns "N error(s), M warning(s)" for the bag.
func Summary(bag *diag.Bag) string {
	return fmt.Sprintf("%d error(s), %d warning(s)", bag.Count(diag.SevError), bag.Count(diag.SevWarning))
}
