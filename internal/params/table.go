// Package params builds the parameter table from a descriptor file.
//
// The table is built once per generation run, before any template is
// expanded, and is read-only afterwards. Problems with individual entries
// never stop the build; they are reported as warnings and the entry is
// either repaired (missing default, unknown type) or skipped (no identifier,
// duplicate).
package params

import (
	"paramgen/internal/diag"
	"paramgen/internal/directive"
	"paramgen/internal/source"
)

// NoAutoIncrement disables automatic numbering of parameter ids.
const NoAutoIncrement = -1

// DefaultFallbackType is used when a type is neither given nor inferable.
const DefaultFallbackType = "uint32_t"

// Options tune how descriptors are turned into table entries. The zero value
// numbers parameters from 0 and falls back to uint32_t.
type Options struct {
	FallbackType string
	// AutoIncrementStart is the id of the first parameter; later ones count
	// up in declaration order. NoAutoIncrement keeps explicit ids.
	AutoIncrementStart int
}

func (o Options) fallbackType() string {
	if o.FallbackType == "" {
		return DefaultFallbackType
	}
	return o.FallbackType
}

// Table is the ordered parameter set of one generation run.
type Table struct {
	Params  []*Descriptor
	byIdent map[string]*Descriptor
	byName  map[string]*Descriptor
	tags    map[string]struct{}
}

// Empty returns a table without parameters.
func Empty() *Table {
	return newTable()
}

func newTable() *Table {
	return &Table{
		byIdent: make(map[string]*Descriptor),
		byName:  make(map[string]*Descriptor),
		tags:    make(map[string]struct{}),
	}
}

func (t *Table) add(d *Descriptor) {
	t.Params = append(t.Params, d)
	t.byIdent[d.Identifier] = d
	if _, ok := t.byName[d.Name]; !ok {
		t.byName[d.Name] = d
	}
	for _, tag := range d.Tags {
		t.tags[tag] = struct{}{}
	}
}

// Len returns the number of parameters.
func (t *Table) Len() int {
	return len(t.Params)
}

// Lookup finds a parameter by identifier or base name.
func (t *Table) Lookup(name string) (*Descriptor, bool) {
	if d, ok := t.byIdent[name]; ok {
		return d, true
	}
	d, ok := t.byName[name]
	return d, ok
}

// KnownTag reports whether any parameter carries label.
func (t *Table) KnownTag(label string) bool {
	_, ok := t.tags[label]
	return ok
}

// Subset returns a table restricted to the named parameters, keeping table
// order. Names may be identifiers or base names; unknown ones are reported
// at at and ignored.
func (t *Table) Subset(names []string, reporter diag.Reporter, at source.Span) *Table {
	want := make(map[*Descriptor]struct{}, len(names))
	for _, n := range names {
		d, ok := t.Lookup(n)
		if !ok {
			diag.ReportWarning(reporter, diag.ParUnknownSubset, at,
				"parameter list names unknown parameter \""+n+"\"").Emit()
			continue
		}
		want[d] = struct{}{}
	}
	sub := newTable()
	for _, d := range t.Params {
		if _, ok := want[d]; ok {
			sub.add(d)
		}
	}
	return sub
}

// Select returns the parameters matching filter, in table order. A wildcard
// filter returns every parameter.
func Select(filter directive.Filter, t *Table) []*Descriptor {
	if t == nil {
		return nil
	}
	if filter.IsWildcard() {
		return append([]*Descriptor(nil), t.Params...)
	}
	var out []*Descriptor
	for _, d := range t.Params {
		if filter.Matches(d.Tags) {
			out = append(out, d)
		}
	}
	return out
}
