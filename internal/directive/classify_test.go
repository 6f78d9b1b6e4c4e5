package directive

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Node
	}{
		{
			name: "comment",
			line: "  //< dropped $var$ x",
			want: Node{Kind: KindComment, Indent: "  "},
		},
		{
			name: "var with spaces in value",
			line: "$var$ greeting hello  big world ",
			want: Node{Kind: KindVarDef, Name: "greeting", Value: "hello  big world "},
		},
		{
			name: "var without value",
			line: "$var$ empty",
			want: Node{Kind: KindVarDef, Name: "empty"},
		},
		{
			name: "include",
			line: "\t$template$ mem_pool.cgen_template",
			want: Node{Kind: KindInclude, Indent: "\t", Name: "mem_pool.cgen_template"},
		},
		{
			name: "p-line",
			line: "$p-line$ [all]   p_dataType p_name;",
			want: Node{Kind: KindRepeatLine, Filter: Filter{Labels: []string{"all"}}, Value: "  p_dataType p_name;"},
		},
		{
			name: "p-template",
			line: "    $p-template$ [testing_2|testing_4] mem_pool",
			want: Node{Kind: KindRepeatTemplate, Indent: "    ", Filter: Filter{Labels: []string{"testing_2", "testing_4"}}, Name: "mem_pool"},
		},
		{
			name: "p-block open",
			line: `$p-block$ [a] \{`,
			want: Node{Kind: KindRepeatBlock, Filter: Filter{Labels: []string{"a"}}},
		},
		{
			name: "block end",
			line: `  \}`,
			want: Node{Kind: KindBlockEnd, Indent: "  "},
		},
		{
			name: "marker",
			line: "  $getParams$  ",
			want: Node{Kind: KindMarker, Indent: "  ", Name: "getParams"},
		},
		{
			name: "param",
			line: "$param$ testing_2_param_id 0xCAFE uint16_t [testing_2]",
			want: Node{Kind: KindParam, Fields: []string{"testing_2_param_id", "0xCAFE", "uint16_t", "[testing_2]"}},
		},
		{
			name: "param without identifier",
			line: "$param$",
			want: Node{Kind: KindParam},
		},
		{
			name: "text with substitution",
			line: "#define NAME \"$name$\"",
			want: Node{Kind: KindText},
		},
		{
			name: "unknown directive with trailing text is text",
			line: "$name$ = 5;",
			want: Node{Kind: KindText},
		},
		{
			name: "glued tokens are text",
			line: "$a$$b$",
			want: Node{Kind: KindText},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.line)
			tt.want.Text = tt.line
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Classify(%q) mismatch (-want +got):\n%s", tt.line, diff)
			}
		})
	}
}

func TestClassifyErrors(t *testing.T) {
	tests := []struct {
		line string
		kind ErrKind
	}{
		{"$var", ErrUnterminated},
		{"  $p-line [all] x", ErrUnterminated},
		{"$p-line$ all p_name", ErrMalformedRepeat},
		{"$p-template$ [all", ErrMalformedRepeat},
		{"$p-template$ [ | ] name", ErrMalformedRepeat},
		{"$p-template$ [all]", ErrMalformedRepeat},
		{"$p-block$ [all]", ErrMalformedRepeat},
		{"$var$   ", ErrMissingVarName},
		{"$template$", ErrMissingTemplateName},
	}

	for _, tt := range tests {
		got := Classify(tt.line)
		if got.Err == nil {
			t.Errorf("Classify(%q): expected error kind %d, got none", tt.line, tt.kind)
			continue
		}
		if got.Err.Kind != tt.kind {
			t.Errorf("Classify(%q): error kind %d, want %d (%s)", tt.line, got.Err.Kind, tt.kind, got.Err.Msg)
		}
	}
}

func TestErrKindStructural(t *testing.T) {
	if !ErrUnterminated.Structural() || !ErrMalformedRepeat.Structural() {
		t.Error("unterminated and malformed repeat must be structural")
	}
	if ErrMissingVarName.Structural() || ErrMissingTemplateName.Structural() {
		t.Error("missing names are warnings")
	}
}

func TestFilter(t *testing.T) {
	f, ok := ParseFilter(" testing_2 | testing_4 ")
	if !ok {
		t.Fatal("expected filter to parse")
	}
	if f.String() != "[testing_2|testing_4]" {
		t.Errorf("unexpected String(): %s", f)
	}
	if !f.Matches([]string{"x", "testing_4"}) {
		t.Error("expected match on second label")
	}
	if f.Matches([]string{"testing_3"}) {
		t.Error("unexpected match")
	}

	all, _ := ParseFilter("all")
	if !all.IsWildcard() || !all.Matches(nil) {
		t.Error("wildcard must match a parameter without tags")
	}
	if _, ok := ParseFilter("|"); ok {
		t.Error("empty filter must not parse")
	}
}
