// Package expand walks a root template depth-first and turns it into a
// skeleton plus per-insertion-point fragments.
//
// Sub-templates are inlined where they are referenced, each inside its own
// scope frame. Repeat directives instantiate their body once per selected
// parameter, every instantiation in a fresh frame holding the per-parameter
// variables. Data-quality problems are reported and skipped over; only the
// failures described by StructuralError stop the walk.
package expand

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"paramgen/internal/diag"
	"paramgen/internal/directive"
	"paramgen/internal/params"
	"paramgen/internal/scope"
	"paramgen/internal/source"
)

// DefaultMaxDepth bounds sub-template nesting when Options.MaxDepth is 0.
const DefaultMaxDepth = 32

// InlinePoint is the reserved marker that sends output of a sub-template
// back to where the sub-template was included.
const InlinePoint = "inline"

// Options control expansion.
type Options struct {
	MaxDepth int
	// ContinueIndentation prefixes every line produced by an inclusion or a
	// repeat with the indentation of the directive line.
	ContinueIndentation bool
	// Scaffolder, when set, creates missing sub-templates instead of failing.
	Scaffolder Scaffolder
}

func (o Options) maxDepth() int {
	if o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

// Expander expands templates of one generation run. It is not safe for
// concurrent use; concurrent runs each need their own Expander, scope
// Manager and Reporter.
type Expander struct {
	opts     Options
	loader   *Loader
	table    *params.Table
	scope    *scope.Manager
	reporter diag.Reporter
	out      *Expansion
	path     []string
}

// New returns an Expander. reporter may be nil.
func New(loader *Loader, table *params.Table, sc *scope.Manager, reporter diag.Reporter, opts Options) *Expander {
	if reporter == nil {
		reporter = diag.NopReporter{}
	}
	return &Expander{
		opts:     opts,
		loader:   loader,
		table:    table,
		scope:    sc,
		reporter: reporter,
		out:      newExpansion(),
	}
}

// walkCtx is the state of one template instance being walked.
type walkCtx struct {
	// root is set while walking the root template itself; markers there
	// are splice slots rather than switches of the active point.
	root bool
	// inherited is the point output went to at the inclusion site, "" for
	// the skeleton. active is where output goes now.
	inherited string
	active    string
	indent    string
}

// Expand expands the template called rootName.
func (e *Expander) Expand(rootName string) (*Expansion, error) {
	root, err := e.loader.Load(rootName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, e.structural(diag.TplMissingTemplate, source.NoSpan, fmt.Sprintf("root template %q not found", rootName), nil)
		}
		return nil, e.structural(diag.IOLoadFileError, source.NoSpan, "cannot load root template", err)
	}

	e.path = append(e.path[:0], root.Name)
	if err := e.walk(&walkCtx{root: true}, root.Nodes); err != nil {
		return nil, err
	}
	return e.out, nil
}

// ExpandPoint instantiates tpl once per table parameter, in table order,
// sending its output to point.
func (e *Expander) ExpandPoint(point string, tpl *Template) error {
	e.path = append(e.path[:0], tpl.Name)
	for _, d := range e.table.Params {
		err := e.withParam(d, func() error {
			return e.walk(&walkCtx{inherited: point, active: point}, tpl.Nodes)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Expansion returns everything produced so far.
func (e *Expander) Expansion() *Expansion {
	return e.out
}

func (e *Expander) walk(ctx *walkCtx, nodes []directive.Node) error {
	for i := range nodes {
		if err := e.node(ctx, &nodes[i]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Expander) node(ctx *walkCtx, n *directive.Node) error {
	if n.Err != nil {
		return e.malformed(n)
	}

	switch n.Kind {
	case directive.KindComment, directive.KindBlockEnd:
	case directive.KindText:
		e.emit(ctx, e.scope.Substitute(n.Text, n.Span), n.Span)
	case directive.KindVarDef:
		e.scope.Define(n.Name, e.scope.Substitute(n.Value, n.Span), n.Span)
	case directive.KindMarker:
		e.marker(ctx, n)
	case directive.KindParam:
		diag.ReportWarning(e.reporter, diag.TplParamOutsideDesc, n.Span,
			"$param$ is only meaningful in a descriptor; line dropped").Emit()
	case directive.KindInclude:
		tpl, err := e.resolve(ctx, n, n.Name)
		if err != nil || tpl == nil {
			return err
		}
		return e.withFrame(func() error { return e.enter(ctx, n, tpl) })
	case directive.KindRepeatLine, directive.KindRepeatTemplate, directive.KindRepeatBlock:
		return e.repeat(ctx, n)
	}
	return nil
}

func (e *Expander) malformed(n *directive.Node) error {
	switch n.Err.Kind {
	case directive.ErrUnterminated:
		return e.structural(diag.TplUnterminated, n.Span, n.Err.Msg, nil)
	case directive.ErrMalformedRepeat, directive.ErrStrayBlockEnd:
		return e.structural(diag.TplMalformedRepeat, n.Span, n.Err.Msg, nil)
	case directive.ErrMissingVarName:
		diag.ReportWarning(e.reporter, diag.TplMissingVarName, n.Span, n.Err.Msg).Emit()
	case directive.ErrMissingTemplateName:
		diag.ReportWarning(e.reporter, diag.TplMissingTemplateName, n.Span, n.Err.Msg).Emit()
	}
	return nil
}

func (e *Expander) marker(ctx *walkCtx, n *directive.Node) {
	// a bound variable standing alone on its line is plain substitution
	if _, ok := e.scope.Lookup(n.Name); ok {
		e.emit(ctx, e.scope.Substitute(n.Text, n.Span), n.Span)
		return
	}
	if ctx.root {
		e.out.Skeleton = append(e.out.Skeleton, Segment{
			Marker: n.Name,
			Indent: n.Indent,
			Span:   n.Span,
		})
		return
	}
	if n.Name == InlinePoint {
		ctx.active = ctx.inherited
		return
	}
	ctx.active = n.Name
}

// emit sends one line to the active point, or to the skeleton.
func (e *Expander) emit(ctx *walkCtx, text string, span source.Span) {
	if text != "" {
		text = ctx.indent + text
	}
	if ctx.active == "" {
		e.out.Skeleton = append(e.out.Skeleton, Segment{Text: text, Span: span})
		return
	}
	e.out.addFragment(ctx.active, Fragment{Text: text, Span: span})
}

func (e *Expander) childIndent(ctx *walkCtx, n *directive.Node) string {
	if e.opts.ContinueIndentation {
		return ctx.indent + n.Indent
	}
	return ctx.indent
}

// resolve loads the sub-template name referenced by n. A nil template with
// a nil error means the reference was handled without expanding anything
// (placeholder, scaffolded file or skipped cycle).
func (e *Expander) resolve(ctx *walkCtx, n *directive.Node, name string) (*Template, error) {
	tpl, err := e.loader.Load(name)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if e.opts.Scaffolder == nil {
			return nil, e.structural(diag.TplMissingTemplate, n.Span, fmt.Sprintf("sub-template %q not found", name), nil)
		}
		file := e.loader.Canonical(name)
		if serr := e.opts.Scaffolder.Scaffold(file); serr != nil {
			return nil, e.structural(diag.IOWriteFileError, n.Span, fmt.Sprintf("cannot create sub-template %q", file), serr)
		}
		diag.ReportWarning(e.reporter, diag.TplScaffolded, n.Span,
			fmt.Sprintf("sub-template %q did not exist; created blank %s", name, file)).Emit()
		e.placeholder(ctx, n, name)
		return nil, nil
	case err != nil:
		return nil, e.structural(diag.IOLoadFileError, n.Span, fmt.Sprintf("cannot load sub-template %q", name), err)
	}

	for _, p := range e.path {
		if p == tpl.Name {
			chain := strings.Join(append(append([]string(nil), e.path...), tpl.Name), " -> ")
			diag.ReportWarning(e.reporter, diag.TplCyclicInclude, n.Span,
				fmt.Sprintf("cyclic inclusion %s; inclusion skipped", chain)).Emit()
			return nil, nil
		}
	}
	if len(e.path) >= e.opts.maxDepth() {
		return nil, e.structural(diag.TplDepthExceeded, n.Span,
			fmt.Sprintf("including %q exceeds the maximum nesting depth of %d", name, e.opts.maxDepth()), nil)
	}

	if len(tpl.Nodes) == 0 {
		diag.ReportWarning(e.reporter, diag.TplEmptyTemplate, n.Span,
			fmt.Sprintf("sub-template %q is empty", name)).Emit()
		e.placeholder(ctx, n, name)
		return nil, nil
	}
	return tpl, nil
}

func (e *Expander) placeholder(ctx *walkCtx, n *directive.Node, name string) {
	name = strings.TrimSuffix(name, e.loader.Extension())
	line := fmt.Sprintf("// Add %s code section here!", name)
	e.emit(&walkCtx{active: ctx.active, indent: e.childIndent(ctx, n)}, line, n.Span)
}

// enter walks tpl in place of n. The caller owns the scope frame.
func (e *Expander) enter(ctx *walkCtx, n *directive.Node, tpl *Template) error {
	e.path = append(e.path, tpl.Name)
	defer func() { e.path = e.path[:len(e.path)-1] }()

	child := &walkCtx{
		inherited: ctx.active,
		active:    ctx.active,
		indent:    e.childIndent(ctx, n),
	}
	return e.walk(child, tpl.Nodes)
}

func (e *Expander) repeat(ctx *walkCtx, n *directive.Node) error {
	selected := params.Select(n.Filter, e.table)
	e.checkFilter(n, len(selected))

	switch n.Kind {
	case directive.KindRepeatLine:
		lineCtx := &walkCtx{active: ctx.active, indent: e.childIndent(ctx, n)}
		for _, d := range selected {
			err := e.withParam(d, func() error {
				e.emit(lineCtx, e.scope.Substitute(n.Value, n.Span), n.Span)
				return nil
			})
			if err != nil {
				return err
			}
		}

	case directive.KindRepeatTemplate:
		tpl, err := e.resolve(ctx, n, n.Name)
		if err != nil || tpl == nil {
			return err
		}
		for _, d := range selected {
			if err := e.withParam(d, func() error { return e.enter(ctx, n, tpl) }); err != nil {
				return err
			}
		}

	case directive.KindRepeatBlock:
		for _, d := range selected {
			err := e.withParam(d, func() error {
				body := &walkCtx{inherited: ctx.active, active: ctx.active, indent: ctx.indent}
				return e.walk(body, n.Body)
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Expander) checkFilter(n *directive.Node, matched int) {
	if !n.Filter.IsWildcard() {
		for _, label := range n.Filter.Labels {
			if !e.table.KnownTag(label) {
				diag.ReportWarning(e.reporter, diag.TplUnknownTag, n.Span,
					fmt.Sprintf("no parameter is tagged %q", label)).Emit()
			}
		}
	}
	if matched == 0 {
		diag.ReportWarning(e.reporter, diag.TplUnmatchedFilter, n.Span,
			fmt.Sprintf("$%s$ filter %s selects no parameters", n.Kind, n.Filter)).Emit()
	}
}

// withFrame runs fn inside a fresh scope frame.
func (e *Expander) withFrame(fn func() error) error {
	e.scope.Push()
	err := fn()
	if perr := e.scope.Pop(); perr != nil && err == nil {
		err = perr
	}
	return err
}

// withParam runs fn inside a fresh frame holding the variables of d.
func (e *Expander) withParam(d *params.Descriptor, fn func() error) error {
	return e.withFrame(func() error {
		for _, kv := range d.Vars() {
			e.scope.Bind(kv[0], kv[1], true)
		}
		return fn()
	})
}

func (e *Expander) structural(code diag.Code, span source.Span, msg string, cause error) error {
	se := &StructuralError{
		Code: code,
		Span: span,
		Pos:  position(e.loader.Files(), span),
		Msg:  msg,
		Err:  cause,
	}
	text := msg
	if cause != nil {
		text = fmt.Sprintf("%s: %v", msg, cause)
	}
	diag.ReportError(e.reporter, code, span, text).Emit()
	return se
}
