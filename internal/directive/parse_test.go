package directive

import (
	"testing"

	"paramgen/internal/source"
)

func parseString(t *testing.T, content string) []Node {
	t.Helper()
	fs := source.NewFileSet()
	return Parse(fs.Get(fs.AddVirtual("t.cgen_template", []byte(content))))
}

func TestParseFoldsBlocks(t *testing.T) {
	nodes := parseString(t, "//< header\n"+
		"switch (id) {\n"+
		"$p-block$ [all] \\{\n"+
		"case p_enumName:\n"+
		"\t$p-line$ [a] x\n"+
		"\\}\n"+
		"}\n")

	if len(nodes) != 3 {
		t.Fatalf("expected 3 top-level nodes, got %d", len(nodes))
	}
	block := nodes[1]
	if block.Kind != KindRepeatBlock || block.Err != nil {
		t.Fatalf("expected well-formed p-block, got %v err=%v", block.Kind, block.Err)
	}
	if len(block.Body) != 2 || block.Body[1].Kind != KindRepeatLine {
		t.Fatalf("unexpected block body: %+v", block.Body)
	}
	if block.Span.Start != 25 || block.Span.End != 79 {
		t.Errorf("block span should cover opener through terminator, got %v", block.Span)
	}
	if nodes[2].Text != "}" {
		t.Errorf("unexpected trailing node %q", nodes[2].Text)
	}
}

func TestParseNestedBlocks(t *testing.T) {
	nodes := parseString(t, "$p-block$ [a] \\{\n$p-block$ [b] \\{\nx\n\\}\n\\}\n")
	if len(nodes) != 1 || len(nodes[0].Body) != 1 || len(nodes[0].Body[0].Body) != 1 {
		t.Fatalf("unexpected nesting: %+v", nodes)
	}
}

func TestParseUnclosedBlock(t *testing.T) {
	nodes := parseString(t, "a\n$p-block$ [all] \\{\nb\n")
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(nodes))
	}
	if nodes[1].Err == nil || nodes[1].Err.Kind != ErrUnterminated {
		t.Errorf("expected unterminated p-block, got %+v", nodes[1].Err)
	}
	if nodes[1].Span.Start != 2 {
		t.Errorf("error should point at the opener, got %v", nodes[1].Span)
	}
}

func TestParseStrayBlockEnd(t *testing.T) {
	nodes := parseString(t, "\\}\n")
	if len(nodes) != 1 || nodes[0].Err == nil || nodes[0].Err.Kind != ErrStrayBlockEnd {
		t.Fatalf("expected stray block end error, got %+v", nodes)
	}
}
