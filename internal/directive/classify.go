package directive

import (
	"fmt"
	"strings"
)

const (
	commentPrefix = "//<"
	blockOpen     = `\{`
	blockClose    = `\}`
)

// Directive keywords.
const (
	KeywordVar       = "var"
	KeywordTemplate  = "template"
	KeywordPLine     = "p-line"
	KeywordPTemplate = "p-template"
	KeywordPBlock    = "p-block"
	KeywordParam     = "param"
)

// Classify turns one source line (without its newline) into a Node. It has
// no side effects; malformed directives come back with Err set.
func Classify(line string) Node {
	trimmed := strings.TrimLeft(line, " \t")
	n := Node{
		Kind:   KindText,
		Indent: line[:len(line)-len(trimmed)],
		Text:   line,
	}

	if strings.HasPrefix(trimmed, commentPrefix) {
		n.Kind = KindComment
		return n
	}
	if strings.TrimRight(trimmed, " \t") == blockClose {
		n.Kind = KindBlockEnd
		return n
	}
	if !strings.HasPrefix(trimmed, "$") {
		return n
	}

	end := strings.IndexByte(trimmed[1:], '$')
	if end < 0 {
		n.Err = &Error{Kind: ErrUnterminated, Msg: fmt.Sprintf("unterminated directive %q", strings.TrimSpace(trimmed))}
		return n
	}
	keyword := trimmed[1 : end+1]
	rest := trimmed[end+2:]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		// "$a$b" is substitution inside text, not a directive
		return n
	}

	switch keyword {
	case KeywordVar:
		classifyVar(&n, rest)
	case KeywordTemplate:
		n.Kind = KindInclude
		if fields := strings.Fields(rest); len(fields) > 0 {
			n.Name = fields[0]
		} else {
			n.Err = &Error{Kind: ErrMissingTemplateName, Msg: "$template$ without a template name"}
		}
	case KeywordPLine, KeywordPTemplate, KeywordPBlock:
		classifyRepeat(&n, keyword, rest)
	case KeywordParam:
		n.Kind = KindParam
		n.Fields = strings.Fields(rest)
	default:
		if strings.TrimSpace(rest) == "" && isName(keyword) {
			n.Kind = KindMarker
			n.Name = keyword
		}
	}
	return n
}

func classifyVar(n *Node, rest string) {
	n.Kind = KindVarDef
	rest = strings.TrimLeft(rest, " \t")
	if rest == "" {
		n.Err = &Error{Kind: ErrMissingVarName, Msg: "$var$ without a variable name"}
		return
	}
	name, value := rest, ""
	if i := strings.IndexAny(rest, " \t"); i >= 0 {
		name, value = rest[:i], rest[i+1:]
	}
	n.Name = name
	n.Value = value
}

func classifyRepeat(n *Node, keyword, rest string) {
	switch keyword {
	case KeywordPLine:
		n.Kind = KindRepeatLine
	case KeywordPTemplate:
		n.Kind = KindRepeatTemplate
	default:
		n.Kind = KindRepeatBlock
	}

	rest = strings.TrimLeft(rest, " \t")
	closeIdx := strings.IndexByte(rest, ']')
	if !strings.HasPrefix(rest, "[") || closeIdx < 0 {
		n.Err = &Error{Kind: ErrMalformedRepeat, Msg: fmt.Sprintf("$%s$ requires a [tag|tag] filter", keyword)}
		return
	}
	filter, ok := ParseFilter(rest[1:closeIdx])
	if !ok {
		n.Err = &Error{Kind: ErrMalformedRepeat, Msg: fmt.Sprintf("$%s$ has an empty tag filter", keyword)}
		return
	}
	n.Filter = filter
	body := rest[closeIdx+1:]

	switch n.Kind {
	case KindRepeatLine:
		// one separator is consumed, the pattern is kept verbatim
		if body != "" && (body[0] == ' ' || body[0] == '\t') {
			body = body[1:]
		}
		n.Value = body
	case KindRepeatTemplate:
		fields := strings.Fields(body)
		if len(fields) == 0 {
			n.Err = &Error{Kind: ErrMalformedRepeat, Msg: "$p-template$ without a template name"}
			return
		}
		n.Name = fields[0]
	case KindRepeatBlock:
		if strings.TrimSpace(body) != blockOpen {
			n.Err = &Error{Kind: ErrMalformedRepeat, Msg: `$p-block$ filter must be followed by \{`}
		}
	}
}

func isName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
