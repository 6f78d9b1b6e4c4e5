// Package emit renders an expansion into the final source text.
package emit

import (
	"fmt"
	"strings"

	"paramgen/internal/diag"
	"paramgen/internal/expand"
	"paramgen/internal/source"
)

// Render replaces every insertion-point marker of the skeleton with the
// fragments of that point, in accumulation order and prefixed with the
// marker's indentation. Other skeleton lines pass through unchanged. Lines
// are joined with '\n' and the result ends with a newline unless empty.
//
// Fragments of points that have no marker in the skeleton are reported,
// since they would otherwise vanish silently.
func Render(x *expand.Expansion, reporter diag.Reporter) string {
	if reporter == nil {
		reporter = diag.NopReporter{}
	}

	var b strings.Builder
	for _, seg := range x.Skeleton {
		if seg.Marker == "" {
			b.WriteString(seg.Text)
			b.WriteByte('\n')
			continue
		}
		for _, f := range x.Points[seg.Marker] {
			if f.Text != "" {
				b.WriteString(seg.Indent)
				b.WriteString(f.Text)
			}
			b.WriteByte('\n')
		}
	}

	for _, point := range x.Order {
		if x.HasMarker(point) {
			continue
		}
		frags := x.Points[point]
		diag.ReportWarning(reporter, diag.TplOrphanFragments, frags[0].Span,
			fmt.Sprintf("%d line(s) for insertion point %q are dropped: the root template has no $%s$ marker", len(frags), point, point)).Emit()
	}
	return b.String()
}

// CheckBraces reports unbalanced '{' and '}' in out. Braces inside string
// and character literals and comments are ignored. It returns true when the
// braces balance.
func CheckBraces(name, out string, reporter diag.Reporter) bool {
	if reporter == nil {
		reporter = diag.NopReporter{}
	}

	depth, line := 0, 1
	var quote byte
	inLine, inBlock, balanced := false, false, true
	for i := 0; i < len(out); i++ {
		c := out[i]
		next := byte(0)
		if i+1 < len(out) {
			next = out[i+1]
		}
		switch {
		case c == '\n':
			line++
			inLine = false
			quote = 0
		case inLine:
		case inBlock:
			if c == '*' && next == '/' {
				inBlock = false
				i++
			}
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '/' && next == '/':
			inLine = true
			i++
		case c == '/' && next == '*':
			inBlock = true
			i++
		case c == '"' || c == '\'':
			quote = c
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth < 0 {
				diag.ReportWarning(reporter, diag.TplUnbalancedBraces, source.NoSpan,
					fmt.Sprintf("%s:%d: unmatched '}' in generated output", name, line)).Emit()
				depth = 0
				balanced = false
			}
		}
	}
	if depth > 0 {
		diag.ReportWarning(reporter, diag.TplUnbalancedBraces, source.NoSpan,
			fmt.Sprintf("%s: %d unclosed '{' in generated output", name, depth)).Emit()
		balanced = false
	}
	return balanced
}
