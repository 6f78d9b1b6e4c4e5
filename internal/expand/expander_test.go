package expand

import (
	"errors"
	"strconv"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"paramgen/internal/diag"
	"paramgen/internal/params"
	"paramgen/internal/scope"
	"paramgen/internal/source"
)

const testingDescriptor = "" +
	"$param$ testing_2_param_id 0xCAFE uint16_t [testing_2]\n" +
	"$param$ testing_4_param_id 0xDEADBEEF uint32_t [testing_4]\n"

type harness struct {
	files  *source.FileSet
	bag    *diag.Bag
	loader *Loader
	table  *params.Table
}

func newHarness(t *testing.T, templates map[string]string, descriptor string) *harness {
	t.Helper()
	fsys := fstest.MapFS{}
	for name, body := range templates {
		fsys[name] = &fstest.MapFile{Data: []byte(body)}
	}
	files := source.NewFileSet()
	bag := diag.NewBag(256)
	desc := files.Get(files.AddVirtual("params.desc", []byte(descriptor)))
	table := params.Build(desc, diag.BagReporter{Bag: bag}, params.Options{})
	return &harness{
		files:  files,
		bag:    bag,
		loader: NewLoader(fsys, "templates", files, ""),
		table:  table,
	}
}

func (h *harness) expand(root string, opts Options) (*Expansion, error) {
	rep := diag.BagReporter{Bag: h.bag}
	return New(h.loader, h.table, scope.New(rep), rep, opts).Expand(root)
}

func render(x *Expansion) string {
	var lines []string
	for _, s := range x.Skeleton {
		if s.Marker == "" {
			lines = append(lines, s.Text)
			continue
		}
		for _, f := range x.Points[s.Marker] {
			lines = append(lines, s.Indent+f.Text)
		}
	}
	return strings.Join(lines, "\n")
}

func fragmentTexts(fs []Fragment) []string {
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		out = append(out, f.Text)
	}
	return out
}

func TestExpandTaggedStorageDeclarations(t *testing.T) {
	h := newHarness(t, map[string]string{
		"root.cgen_template": "//< storage\n" +
			"typedef struct {\n" +
			"\t$mem_pool$\n" +
			"} mem_pool_t;\n" +
			"$template$ params\n",
		"params.cgen_template": "$mem_pool$\n" +
			"$p-template$ [testing_2|testing_4] mem_pool\n",
		"mem_pool.cgen_template": "p_dataType p_name;\n",
	}, testingDescriptor)

	x, err := h.expand("root", Options{})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}

	want := []string{"uint16_t testing_2;", "uint32_t testing_4;"}
	if diff := cmp.Diff(want, fragmentTexts(x.Points["mem_pool"])); diff != "" {
		t.Errorf("mem_pool fragments (-want +got):\n%s", diff)
	}
	wantOut := "typedef struct {\n\tuint16_t testing_2;\n\tuint32_t testing_4;\n} mem_pool_t;"
	if got := render(x); got != wantOut {
		t.Errorf("unexpected output:\n%s", got)
	}
	if h.bag.HasWarnings() {
		t.Errorf("unexpected diagnostics: %+v", h.bag.Items())
	}
}

func TestSiblingExpansionsAreIsolated(t *testing.T) {
	h := newHarness(t, map[string]string{
		"root.cgen_template": "$template$ a\n$template$ b\nafter=$v$\n",
		"a.cgen_template":    "$var$ v one\n$template$ show\n",
		"b.cgen_template":    "$var$ v two\n$template$ show\n",
		"show.cgen_template": "value=$v$\n",
	}, "")

	x, err := h.expand("root", Options{})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if got, want := render(x), "value=one\nvalue=two\nafter="; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if n := h.bag.CountCode(diag.TplUnresolvedVar); n != 1 {
		t.Errorf("expected one unresolved warning for the root lookup, got %d", n)
	}
	if n := h.bag.CountCode(diag.TplShadowedVar); n != 0 {
		t.Errorf("siblings must not shadow each other, got %d shadow warnings", n)
	}
}

func TestShadowingRestoresParent(t *testing.T) {
	h := newHarness(t, map[string]string{
		"root.cgen_template":  "$var$ x parent\n$template$ child\nout=$x$\n",
		"child.cgen_template": "$var$ x child\nin=$x$\n",
	}, "")

	x, err := h.expand("root", Options{})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if got, want := render(x), "in=child\nout=parent"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if n := h.bag.CountCode(diag.TplShadowedVar); n != 1 {
		t.Errorf("expected one shadow warning, got %d", n)
	}
}

func TestRepeatFilters(t *testing.T) {
	desc := "" +
		"$param$ p1_8 1 [testing_2]\n" +
		"$param$ p2_8 2 [testing_3]\n" +
		"$param$ p3_8 3 [testing_4]\n" +
		"$param$ p4_8 4 [testing_2]\n"
	h := newHarness(t, map[string]string{
		"root.cgen_template": "$p-line$ [all] all:p_name=p_default\n" +
			"$p-line$ [testing_4|testing_2] some:p_name\n",
	}, desc)

	x, err := h.expand("root", Options{})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := "all:p1=1\nall:p2=2\nall:p3=3\nall:p4=4\nsome:p1\nsome:p3\nsome:p4"
	if got := render(x); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestRepeatIterationsAreIndependent(t *testing.T) {
	h := newHarness(t, map[string]string{
		"root.cgen_template": "$p-block$ [all] \\{\n" +
			"seen=$last$\n" +
			"$var$ last p_name\n" +
			"\\}\n",
	}, "$param$ a_8 1\n$param$ b_8 2\n")

	x, err := h.expand("root", Options{})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if got, want := render(x), "seen=\nseen="; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if n := h.bag.CountCode(diag.TplUnresolvedVar); n != 2 {
		t.Errorf("expected an unresolved warning per iteration, got %d", n)
	}
}

func TestUnmatchedFilterWarns(t *testing.T) {
	h := newHarness(t, map[string]string{
		"root.cgen_template": "before\n$p-line$ [testing_9] x\nafter\n",
	}, "$param$ a_8 1\n")

	x, err := h.expand("root", Options{})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if got := render(x); got != "before\nafter" {
		t.Errorf("unexpected output %q", got)
	}
	if h.bag.CountCode(diag.TplUnmatchedFilter) != 1 || h.bag.CountCode(diag.TplUnknownTag) != 1 {
		t.Errorf("expected unmatched and unknown-tag warnings, got %+v", h.bag.Items())
	}
}

func TestCyclicInclusionIsSkipped(t *testing.T) {
	h := newHarness(t, map[string]string{
		"root.cgen_template": "$template$ a\n$template$ self\nend\n",
		"a.cgen_template":    "in a\n$template$ b\n",
		"b.cgen_template":    "in b\n$template$ a\n",
		"self.cgen_template": "self\n$template$ self\n",
	}, "")

	x, err := h.expand("root", Options{})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if got, want := render(x), "in a\nin b\nself\nend"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if n := h.bag.CountCode(diag.TplCyclicInclude); n != 2 {
		t.Fatalf("expected 2 cyclic inclusion warnings, got %d", n)
	}
	msg := h.bag.Items()[0].Message
	if !strings.Contains(msg, "root.cgen_template -> a.cgen_template -> b.cgen_template -> a.cgen_template") {
		t.Errorf("cycle message should show the inclusion chain, got %q", msg)
	}
}

func TestDepthLimitIsStructural(t *testing.T) {
	templates := map[string]string{"root.cgen_template": "$template$ t1\n"}
	for i := 1; i <= 10; i++ {
		next := "$template$ t" + strconv.Itoa(i+1) + "\n"
		if i == 10 {
			next = "leaf\n"
		}
		templates["t"+strconv.Itoa(i)+".cgen_template"] = next
	}
	h := newHarness(t, templates, "")

	_, err := h.expand("root", Options{MaxDepth: 4})
	var se *StructuralError
	if !errors.As(err, &se) {
		t.Fatalf("expected StructuralError, got %v", err)
	}
	if se.Code != diag.TplDepthExceeded {
		t.Errorf("unexpected code %s", se.Code.ID())
	}
	if !h.bag.HasErrors() {
		t.Error("structural failures must also be reported")
	}
}

func TestMissingSubTemplate(t *testing.T) {
	h := newHarness(t, map[string]string{
		"root.cgen_template": "x\n  $template$ nowhere\n",
	}, "")

	_, err := h.expand("root", Options{})
	var se *StructuralError
	if !errors.As(err, &se) || se.Code != diag.TplMissingTemplate {
		t.Fatalf("expected missing-template error, got %v", err)
	}
	if se.Pos != "templates/root.cgen_template:2:1" {
		t.Errorf("unexpected position %q", se.Pos)
	}
}

type recordingScaffolder struct{ created []string }

func (r *recordingScaffolder) Scaffold(name string) error {
	r.created = append(r.created, name)
	return nil
}

func TestScaffoldMissingAndEmptyTemplates(t *testing.T) {
	h := newHarness(t, map[string]string{
		"root.cgen_template":  "\t$p-template$ [all] getter\n$p-template$ [all] empty\n",
		"empty.cgen_template": "//< nothing yet\n",
	}, "$param$ a_8 1\n$param$ b_8 2\n")
	sc := &recordingScaffolder{}

	x, err := h.expand("root", Options{Scaffolder: sc, ContinueIndentation: true})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := "\t// Add getter code section here!\n// Add empty code section here!"
	if got := render(x); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if diff := cmp.Diff([]string{"getter.cgen_template"}, sc.created); diff != "" {
		t.Errorf("scaffolded files (-want +got):\n%s", diff)
	}
	if h.bag.CountCode(diag.TplScaffolded) != 1 || h.bag.CountCode(diag.TplEmptyTemplate) != 1 {
		t.Errorf("unexpected diagnostics %+v", h.bag.Items())
	}
}

func TestUnterminatedDirectiveAborts(t *testing.T) {
	h := newHarness(t, map[string]string{
		"root.cgen_template": "ok\n$template oops\n",
	}, "")

	x, err := h.expand("root", Options{})
	if x != nil {
		t.Error("no expansion is returned after a structural failure")
	}
	var se *StructuralError
	if !errors.As(err, &se) || se.Code != diag.TplUnterminated {
		t.Fatalf("expected unterminated directive error, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "templates/root.cgen_template:2:1: ") {
		t.Errorf("error should carry the location, got %q", err)
	}
}

func TestContinueIndentation(t *testing.T) {
	templates := map[string]string{
		"root.cgen_template": "void f(void) {\n\t$template$ body\n}\n",
		"body.cgen_template": "a();\n\tif (x) {\n\n\t}\n",
	}

	for _, tc := range []struct {
		cont bool
		want string
	}{
		{true, "void f(void) {\n\ta();\n\t\tif (x) {\n\n\t\t}\n}"},
		{false, "void f(void) {\na();\n\tif (x) {\n\n\t}\n}"},
	} {
		h := newHarness(t, templates, "")
		x, err := h.expand("root", Options{ContinueIndentation: tc.cont})
		if err != nil {
			t.Fatalf("Expand: %v", err)
		}
		if got := render(x); got != tc.want {
			t.Errorf("continue=%v: got %q, want %q", tc.cont, got, tc.want)
		}
	}
}

func TestSubTemplateMarkersSwitchPoints(t *testing.T) {
	h := newHarness(t, map[string]string{
		"root.cgen_template": "$par_specific$\n---\n$template$ access\n---\n$getParams$\n",
		"access.cgen_template": "inline before\n" +
			"$getParams$\n" +
			"$p-line$ [all] case p_enumName:\n" +
			"$par_specific$\n" +
			"$p-line$ [all] /* p_name */\n" +
			"$inline$\n" +
			"inline after\n",
	}, "$param$ a_8 1\n$param$ b_8 2\n")

	x, err := h.expand("root", Options{})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := "/* a */\n/* b */\n---\ninline before\ninline after\n---\ncase a_param_id:\ncase b_param_id:"
	if got := render(x); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
	if diff := cmp.Diff([]string{"getParams", "par_specific"}, x.Order); diff != "" {
		t.Errorf("point order (-want +got):\n%s", diff)
	}
}

func TestParamInTemplateWarns(t *testing.T) {
	h := newHarness(t, map[string]string{
		"root.cgen_template": "$param$ stray 1\nkept\n",
	}, "")

	x, err := h.expand("root", Options{})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if render(x) != "kept" || h.bag.CountCode(diag.TplParamOutsideDesc) != 1 {
		t.Errorf("expected the $param$ line to be dropped with a warning")
	}
}

func TestBoundVariableOnItsOwnLineIsText(t *testing.T) {
	h := newHarness(t, map[string]string{
		"root.cgen_template": "$var$ header #include \"params.h\"\n$header$\n",
	}, "")

	x, err := h.expand("root", Options{})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if got := render(x); got != "#include \"params.h\"" {
		t.Errorf("got %q", got)
	}
}

func TestExpandIsDeterministic(t *testing.T) {
	templates := map[string]string{
		"root.cgen_template": "$mem_pool$\n$template$ parts\n",
		"parts.cgen_template": "$mem_pool$\n$p-template$ [all] decl\n",
		"decl.cgen_template":  "p_dataType p_name; /* $s_name$ */\n",
	}
	var outputs []string
	for range 3 {
		h := newHarness(t, templates, testingDescriptor)
		x, err := h.expand("root", Options{})
		if err != nil {
			t.Fatalf("Expand: %v", err)
		}
		outputs = append(outputs, render(x))
	}
	if outputs[0] != outputs[1] || outputs[1] != outputs[2] {
		t.Errorf("outputs differ: %q", outputs)
	}
}

func TestExpandPoint(t *testing.T) {
	h := newHarness(t, map[string]string{
		"builtin.cgen_template": "case p_enumName:\n\t*size = p_size;\n",
	}, testingDescriptor)
	tpl, err := h.loader.Load("builtin")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	rep := diag.BagReporter{Bag: h.bag}
	e := New(h.loader, h.table, scope.New(rep), rep, Options{})
	if err := e.ExpandPoint("getParams", tpl); err != nil {
		t.Fatalf("ExpandPoint: %v", err)
	}
	want := []string{
		"case testing_2_param_id:", "\t*size = 2;",
		"case testing_4_param_id:", "\t*size = 4;",
	}
	if diff := cmp.Diff(want, fragmentTexts(e.Expansion().Points["getParams"])); diff != "" {
		t.Errorf("getParams (-want +got):\n%s", diff)
	}
}
