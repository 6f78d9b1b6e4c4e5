package directive

import (
	"paramgen/internal/source"
)

// Kind classifies one template line.
type Kind uint8

const (
	KindText Kind = iota
	KindComment
	KindVarDef
	KindInclude
	KindRepeatLine
	KindRepeatTemplate
	KindRepeatBlock
	KindMarker
	KindParam
	KindBlockEnd
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindComment:
		return "comment"
	case KindVarDef:
		return "var"
	case KindInclude:
		return "template"
	case KindRepeatLine:
		return "p-line"
	case KindRepeatTemplate:
		return "p-template"
	case KindRepeatBlock:
		return "p-block"
	case KindMarker:
		return "marker"
	case KindParam:
		return "param"
	case KindBlockEnd:
		return "block-end"
	}
	return "unknown"
}

// IsRepeat reports whether k instantiates its body once per parameter.
func (k Kind) IsRepeat() bool {
	return k == KindRepeatLine || k == KindRepeatTemplate || k == KindRepeatBlock
}

// ErrKind tells why a directive line is malformed.
type ErrKind uint8

const (
	ErrNone ErrKind = iota
	// ErrUnterminated: a directive keyword without its closing '$', or a
	// p-block without its closing line.
	ErrUnterminated
	// ErrMalformedRepeat: a repeat directive without a bracketed filter.
	ErrMalformedRepeat
	// ErrMissingVarName: "$var$" with nothing after it.
	ErrMissingVarName
	// ErrMissingTemplateName: "$template$" with nothing after it.
	ErrMissingTemplateName
	// ErrStrayBlockEnd: a block terminator with no open p-block.
	ErrStrayBlockEnd
)

// Structural reports whether the error aborts expansion of the template.
func (k ErrKind) Structural() bool {
	switch k {
	case ErrUnterminated, ErrMalformedRepeat, ErrStrayBlockEnd:
		return true
	}
	return false
}

// Error describes a malformed directive line.
type Error struct {
	Kind ErrKind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

// Node is one classified template line.
//
// Field use by kind:
//
//	KindText            Text
//	KindVarDef          Name, Value
//	KindInclude         Name
//	KindRepeatLine      Filter, Value (pattern)
//	KindRepeatTemplate  Filter, Name
//	KindRepeatBlock     Filter, Body
//	KindMarker          Name
//	KindParam           Fields
type Node struct {
	Kind   Kind
	Indent string // leading whitespace of the line
	Text   string // the line without its newline
	Name   string
	Value  string
	Filter Filter
	Fields []string
	Body   []Node
	Span   source.Span
	Err    *Error
}
