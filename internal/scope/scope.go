// Package scope implements the chain of variable environments used while
// expanding templates. Lookups walk from the innermost frame outward; a
// definition only ever touches the innermost frame, so popping a frame
// restores exactly what the parent saw before.
package scope

import (
	"errors"
	"fmt"
	"strings"

	"paramgen/internal/diag"
	"paramgen/internal/source"
)

// ErrPopRoot is returned by Pop when only the root frame is left.
var ErrPopRoot = errors.New("scope: pop of the root frame")

type binding struct {
	value string
	bare  bool
	span  source.Span
}

type frame map[string]binding

// Manager is a stack of frames. The zero value is not usable; call New.
type Manager struct {
	frames   []frame
	reporter diag.Reporter
}

// New returns a Manager holding an empty root frame. Diagnostics go to
// reporter, which may be nil.
func New(reporter diag.Reporter) *Manager {
	if reporter == nil {
		reporter = diag.NopReporter{}
	}
	return &Manager{
		frames:   []frame{make(frame)},
		reporter: reporter,
	}
}

// Depth returns the number of frames, 1 for the root alone.
func (m *Manager) Depth() int {
	return len(m.frames)
}

// Push opens a child frame.
func (m *Manager) Push() {
	m.frames = append(m.frames, make(frame))
}

// Pop discards the innermost frame and every binding made in it.
func (m *Manager) Pop() error {
	if len(m.frames) == 1 {
		return ErrPopRoot
	}
	m.frames[len(m.frames)-1] = nil
	m.frames = m.frames[:len(m.frames)-1]
	return nil
}

// Define binds name in the innermost frame. Hiding a binding of an
// enclosing frame emits a shadowing warning; rebinding within the same frame
// emits a redefinition warning. The new binding wins either way.
func (m *Manager) Define(name, value string, at source.Span) {
	top := m.frames[len(m.frames)-1]
	if prev, ok := top[name]; ok {
		diag.ReportWarning(m.reporter, diag.TplRedefinedVar, at,
			fmt.Sprintf("variable %q redefined in the same template", name)).
			WithNote(prev.span, "previous definition").
			Emit()
	} else if prev, ok := m.lookupFrom(len(m.frames)-2, name); ok {
		diag.ReportWarning(m.reporter, diag.TplShadowedVar, at,
			fmt.Sprintf("variable %q shadows an enclosing definition", name)).
			WithNote(prev.span, "shadowed definition").
			Emit()
	}
	top[name] = binding{value: value, span: at}
}

// Bind sets name in the innermost frame without any diagnostics. Bare
// bindings are also substituted where name appears as a whole word.
func (m *Manager) Bind(name, value string, bare bool) {
	m.frames[len(m.frames)-1][name] = binding{value: value, bare: bare}
}

// Lookup finds name without reporting anything.
func (m *Manager) Lookup(name string) (string, bool) {
	b, ok := m.lookupFrom(len(m.frames)-1, name)
	return b.value, ok
}

// Resolve finds name, innermost frame first. An unbound name yields "" and
// an unresolved-variable warning at at.
func (m *Manager) Resolve(name string, at source.Span) string {
	if b, ok := m.lookupFrom(len(m.frames)-1, name); ok {
		return b.value
	}
	diag.ReportWarning(m.reporter, diag.TplUnresolvedVar, at,
		fmt.Sprintf("unresolved variable %q", name)).Emit()
	return ""
}

func (m *Manager) lookupFrom(top int, name string) (binding, bool) {
	for i := top; i >= 0; i-- {
		if b, ok := m.frames[i][name]; ok {
			return b, true
		}
	}
	return binding{}, false
}

// Substitute replaces every $name$ token through Resolve and every whole
// word bound bare with its value. It is a single pass: replacement text is
// never scanned again.
func (m *Manager) Substitute(text string, at source.Span) string {
	if !strings.ContainsAny(text, "$") && !m.hasBare() {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); {
		c := text[i]
		if c == '$' {
			if end := strings.IndexByte(text[i+1:], '$'); end >= 0 {
				name := text[i+1 : i+1+end]
				if isName(name) {
					b.WriteString(m.Resolve(name, at))
					i += end + 2
					continue
				}
			}
			b.WriteByte(c)
			i++
			continue
		}
		if isWordByte(c) && (i == 0 || !isWordByte(text[i-1])) {
			j := i
			for j < len(text) && isWordByte(text[j]) {
				j++
			}
			word := text[i:j]
			if bnd, ok := m.lookupFrom(len(m.frames)-1, word); ok && bnd.bare {
				b.WriteString(bnd.value)
			} else {
				b.WriteString(word)
			}
			i = j
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String()
}

func (m *Manager) hasBare() bool {
	for _, f := range m.frames {
		for _, b := range f {
			if b.bare {
				return true
			}
		}
	}
	return false
}

func isWordByte(c byte) bool {
	return c == '_' || c == '#' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isWordByte(s[i]) {
			return false
		}
	}
	return true
}
