package params

import (
	"fmt"
	"strconv"
	"strings"

	"paramgen/internal/diag"
	"paramgen/internal/directive"
	"paramgen/internal/source"
)

// entry is one raw declaration before validation.
type entry struct {
	ident    string
	name     string // base name when the source gives it directly
	dataType string
	def      string
	hasDef   bool
	id       int // -1 when unspecified
	tags     []string
	span     source.Span
}

type builder struct {
	opts       Options
	reporter   diag.Reporter
	table      *Table
	overridden []source.Span
}

func newBuilder(reporter diag.Reporter, opts Options) *builder {
	if reporter == nil {
		reporter = diag.NopReporter{}
	}
	return &builder{opts: opts, reporter: reporter, table: newTable()}
}

// Build reads "$param$ <identifier> [default] [type] [id] [tag|tag]"
// declarations from file in order. Comments and blank lines are ignored;
// any other line is reported and skipped.
func Build(file *source.File, reporter diag.Reporter, opts Options) *Table {
	b := newBuilder(reporter, opts)
	for _, line := range file.Lines() {
		if strings.TrimSpace(line.Text) == "" {
			continue
		}
		n := directive.Classify(line.Text)
		switch n.Kind {
		case directive.KindComment:
			continue
		case directive.KindParam:
			if e, ok := b.parseFields(n.Fields, line.Span); ok {
				b.add(e)
			}
		default:
			diag.ReportWarning(b.reporter, diag.ParStrayLine, line.Span,
				fmt.Sprintf("ignoring line that is not a $param$ declaration: %q", strings.TrimSpace(line.Text))).Emit()
		}
	}
	return b.finish()
}

func (b *builder) parseFields(fields []string, span source.Span) (entry, bool) {
	e := entry{id: -1, span: span}

	var positional []string
	for _, f := range fields {
		if strings.HasPrefix(f, "[") && strings.HasSuffix(f, "]") {
			filter, _ := directive.ParseFilter(f[1 : len(f)-1])
			e.tags = append(e.tags, filter.Labels...)
			continue
		}
		positional = append(positional, f)
	}

	if len(positional) == 0 {
		diag.ReportWarning(b.reporter, diag.ParNoIdentifier, span,
			"$param$ declaration without identifier is skipped").Emit()
		return e, false
	}
	e.ident = positional[0]

	if len(positional) > 1 && positional[1] != "default" {
		e.def, e.hasDef = positional[1], true
	}
	if len(positional) > 2 && positional[2] != "default" {
		e.dataType = positional[2]
	}
	if len(positional) > 3 && positional[3] != "default" {
		e.id = b.parseID(positional[3], span)
	}
	if len(positional) > 4 {
		diag.ReportWarning(b.reporter, diag.ParExcessFields, span,
			fmt.Sprintf("ignoring extra fields %q of parameter %q", strings.Join(positional[4:], " "), e.ident)).Emit()
	}
	return e, true
}

func (b *builder) parseID(s string, span source.Span) int {
	id, err := strconv.ParseInt(s, 0, 32)
	if err != nil || id < 0 {
		diag.ReportWarning(b.reporter, diag.ParBadID, span,
			fmt.Sprintf("parameter id %q is not a non-negative number", s)).Emit()
		return -1
	}
	return int(id)
}

func (b *builder) add(e entry) {
	if first, ok := b.table.byIdent[e.ident]; ok {
		diag.ReportWarning(b.reporter, diag.ParDuplicate, e.span,
			fmt.Sprintf("duplicate parameter %q ignored", e.ident)).
			WithNote(first.Span, "first declared here").
			Emit()
		return
	}

	if !e.hasDef {
		diag.ReportWarning(b.reporter, diag.ParMissingDefault, e.span,
			fmt.Sprintf("missing default value for parameter %q", e.ident)).Emit()
	}

	name, suffixBits := splitIdentifier(e.ident)
	if e.name != "" {
		name = e.name
	}

	d := &Descriptor{
		Identifier: e.ident,
		Name:       name,
		Default:    e.def,
		HasDefault: e.hasDef,
		Span:       e.span,
	}

	switch {
	case e.dataType != "":
		d.DataType = e.dataType
		d.Bits = typeBits(e.dataType)
		if d.Bits == 0 {
			d.Bits = suffixBits
		}
	case suffixBits != 0:
		d.DataType = unsignedType(suffixBits)
		d.Bits = suffixBits
	default:
		d.DataType = b.opts.fallbackType()
		d.Bits = typeBits(d.DataType)
		diag.ReportWarning(b.reporter, diag.ParTypeNotInfered, e.span,
			fmt.Sprintf("cannot infer data type of %q, using %s", e.ident, d.DataType)).Emit()
	}
	if d.Bits == 0 {
		d.Bits = 32
	}

	position := b.table.Len()
	switch {
	case b.opts.AutoIncrementStart >= 0:
		d.ID = b.opts.AutoIncrementStart + position
		if e.id >= 0 && e.id != d.ID {
			b.overridden = append(b.overridden, e.span)
		}
	case e.id >= 0:
		d.ID = e.id
	default:
		d.ID = position
	}

	d.Tags = appendUnique(e.tags, d.Identifier, d.Name)
	b.table.add(d)
}

func (b *builder) finish() *Table {
	if len(b.overridden) > 0 {
		rb := diag.ReportWarning(b.reporter, diag.ParIDOverridden, b.overridden[0],
			fmt.Sprintf("auto-increment is enabled; %d explicit parameter id(s) ignored", len(b.overridden)))
		for _, sp := range b.overridden[1:] {
			rb.WithNote(sp, "explicit id ignored")
		}
		rb.Emit()
	}
	return b.table
}

func appendUnique(tags []string, extra ...string) []string {
	out := make([]string, 0, len(tags)+len(extra))
	seen := make(map[string]struct{}, len(tags)+len(extra))
	for _, t := range append(tags, extra...) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
