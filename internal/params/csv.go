package params

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"paramgen/internal/diag"
	"paramgen/internal/directive"
	"paramgen/internal/source"
)

// BuildCSV reads a parameter list in "id,name,type,default[,tags]" form,
// tags separated by '|'. An id of -1 or an empty id means unspecified. The
// name column is the storage name; the enumeration constant is derived from
// it. Lines starting with '#' and a leading "id,name,..." header are skipped.
func BuildCSV(file *source.File, reporter diag.Reporter, opts Options) *Table {
	b := newBuilder(reporter, opts)
	lines := file.Lines()

	r := csv.NewReader(bytes.NewReader(file.Content))
	r.Comment = '#'
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	for first := true; ; first = false {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				break
			}
			diag.ReportWarning(b.reporter, diag.ParStrayLine, lineSpan(lines, pe.StartLine, file.ID),
				fmt.Sprintf("malformed CSV record: %v", pe.Err)).Emit()
			continue
		}
		line, _ := r.FieldPos(0)
		span := lineSpan(lines, line, file.ID)
		if first && strings.EqualFold(strings.TrimSpace(rec[0]), "id") {
			continue
		}
		if e, ok := b.parseRecord(rec, span); ok {
			b.add(e)
		}
	}
	return b.finish()
}

func (b *builder) parseRecord(rec []string, span source.Span) (entry, bool) {
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}
	e := entry{id: -1, span: span}

	if len(rec) < 2 || rec[1] == "" {
		diag.ReportWarning(b.reporter, diag.ParNoIdentifier, span,
			"CSV parameter without name is skipped").Emit()
		return e, false
	}
	name := strings.TrimSuffix(rec[1], EnumSuffix)
	e.ident = name + EnumSuffix
	e.name = name

	if rec[0] != "" {
		if id, err := strconv.Atoi(rec[0]); err == nil && id == -1 {
			e.id = -1
		} else {
			e.id = b.parseID(rec[0], span)
		}
	}
	if len(rec) > 2 {
		e.dataType = rec[2]
	}
	if len(rec) > 3 && rec[3] != "" {
		e.def, e.hasDef = rec[3], true
	}
	if len(rec) > 4 {
		filter, _ := directive.ParseFilter(rec[4])
		e.tags = filter.Labels
	}
	if len(rec) > 5 {
		diag.ReportWarning(b.reporter, diag.ParExcessFields, span,
			fmt.Sprintf("ignoring extra CSV fields of parameter %q", name)).Emit()
	}
	return e, true
}

func lineSpan(lines []source.Line, line int, file source.FileID) source.Span {
	if line >= 1 && line <= len(lines) {
		return lines[line-1].Span
	}
	return source.Span{File: file}
}
