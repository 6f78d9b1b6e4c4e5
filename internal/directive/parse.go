package directive

import (
	"paramgen/internal/source"
)

// Parse classifies every line of file and folds p-block bodies into their
// opening node. Comment lines are dropped. A p-block left open at the end of
// the file is marked ErrUnterminated, a stray block terminator
// ErrStrayBlockEnd; neither stops parsing.
func Parse(file *source.File) []Node {
	type frame struct {
		open  Node
		nodes []Node
	}
	stack := []frame{{}}

	for _, line := range file.Lines() {
		n := Classify(line.Text)
		n.Span = line.Span
		top := &stack[len(stack)-1]

		switch {
		case n.Kind == KindComment:
			continue
		case n.Kind == KindRepeatBlock && n.Err == nil:
			stack = append(stack, frame{open: n})
			continue
		case n.Kind == KindBlockEnd:
			if len(stack) == 1 {
				n.Err = &Error{Kind: ErrStrayBlockEnd, Msg: `block terminator \} without an open $p-block$`}
				top.nodes = append(top.nodes, n)
				continue
			}
			closed := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			closed.open.Body = closed.nodes
			closed.open.Span = closed.open.Span.Cover(n.Span)
			parent := &stack[len(stack)-1]
			parent.nodes = append(parent.nodes, closed.open)
			continue
		}
		top.nodes = append(top.nodes, n)
	}

	for len(stack) > 1 {
		unclosed := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		unclosed.open.Body = unclosed.nodes
		unclosed.open.Err = &Error{Kind: ErrUnterminated, Msg: `$p-block$ is never closed with \}`}
		parent := &stack[len(stack)-1]
		parent.nodes = append(parent.nodes, unclosed.open)
	}
	return stack[0].nodes
}
