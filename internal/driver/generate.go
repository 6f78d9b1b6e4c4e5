// Package driver runs one generation: it builds the parameter table,
// expands the root template, fills the fixed insertion points from the
// built-in contract and renders the result.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"paramgen/internal/contract"
	"paramgen/internal/diag"
	"paramgen/internal/emit"
	"paramgen/internal/expand"
	"paramgen/internal/observ"
	"paramgen/internal/params"
	"paramgen/internal/scope"
	"paramgen/internal/source"
)

// SubsystemVars are the names the subsystem name is bound under.
var SubsystemVars = []string{"s_name", "s#name"}

// DefaultMaxDiagnostics is used when Options.MaxDiagnostics is 0.
const DefaultMaxDiagnostics = 100

// Options tune a generation run.
type Options struct {
	Extension           string
	MaxDepth            int
	ContinueIndentation bool
	// ScaffoldMissing creates blank sub-templates under the template
	// directory instead of failing on them.
	ScaffoldMissing bool
	// NoContract leaves empty fixed insertion points empty.
	NoContract     bool
	Params         params.Options
	MaxDiagnostics int
	// Timings adds an info diagnostic with the phase durations.
	Timings bool
}

func (o Options) maxDiagnostics() int {
	if o.MaxDiagnostics <= 0 {
		return DefaultMaxDiagnostics
	}
	return o.MaxDiagnostics
}

// Request describes one generated file.
type Request struct {
	// Name identifies the output in messages; it defaults to Root.
	Name string
	// Root is the root template name, resolved like any sub-template.
	Root string
	// TemplatesDir is the template directory. Templates, when set, is read
	// instead and TemplatesDir only prefixes paths in diagnostics.
	TemplatesDir string
	Templates    fs.FS
	// Table is a prebuilt table. When nil the table is built from
	// Descriptor, and when that is empty too the table is empty.
	Table      *params.Table
	Descriptor string
	// Params restricts the table to the named parameters.
	Params []string
	// Subsystem is bound to the SubsystemVars when non-empty.
	Subsystem string
	// Vars are bound in the root scope before expansion.
	Vars    [][2]string
	BaseDir string
	Options Options

	Cache    *DiskCache
	Logger   *slog.Logger
	Observer PhaseObserver
}

func (r *Request) name() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Root
}

func (r *Request) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Request) templates() fs.FS {
	if r.Templates != nil {
		return r.Templates
	}
	dir := r.TemplatesDir
	if dir == "" {
		dir = "."
	}
	return os.DirFS(dir)
}

// Result is the outcome of a run. Diagnostics refer to Files.
type Result struct {
	Name    string
	Output  string
	Files   *source.FileSet
	Bag     *diag.Bag
	Table   *params.Table
	Timings observ.Report
	// Cached is set when Output and Bag were served from the disk cache.
	Cached bool
}

// Generate performs the run described by req. The returned Result is
// non-nil whenever req is, so its diagnostics can be shown even when an
// error is returned. Errors are structural failures (*expand.StructuralError),
// unreadable inputs (*LoadError) or cancellation.
func Generate(ctx context.Context, req *Request) (*Result, error) {
	if req == nil {
		return nil, errors.New("driver: nil request")
	}
	res := &Result{
		Name:  req.name(),
		Files: source.NewFileSetWithBase(req.BaseDir),
		Bag:   diag.NewBag(req.Options.maxDiagnostics()),
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	log := req.logger().With("file", res.Name)
	reporter := diag.NewDedupReporter(diag.BagReporter{Bag: res.Bag})
	timer := observ.NewTimer()
	ph := phases{timer: timer, observer: req.Observer}
	defer func() {
		res.Timings = timer.Report()
		if req.Options.Timings {
			appendTimingDiagnostic(res.Bag, timingPayload{Path: res.Name, TotalMS: res.Timings.TotalMS, Phases: res.Timings.Phases})
		}
	}()

	idx := ph.begin(PhaseTable)
	table, err := buildTable(res.Files, req, reporter)
	res.Table = table
	ph.end(idx, PhaseTable, fmt.Sprintf("%d parameters", table.Len()))
	if err != nil {
		return res, err
	}

	fsys := req.templates()
	var key cacheKey
	if req.Cache != nil {
		key, err = makeCacheKey(req, res.Files, table, fsys)
		if err != nil {
			log.Debug("cache disabled", "err", err)
		} else {
			var payload DiskPayload
			hit, gerr := req.Cache.Get(key.digest, &payload)
			if gerr != nil {
				log.Warn("cache read failed", "err", gerr)
			}
			if hit {
				restoreResult(res, &payload, req.BaseDir, req.Options.maxDiagnostics())
				log.Debug("served from cache", "key", key.digest)
				return res, nil
			}
		}
	}

	sc := scope.New(reporter)
	if req.Subsystem != "" {
		for _, name := range SubsystemVars {
			sc.Bind(name, req.Subsystem, true)
		}
	}
	for _, kv := range req.Vars {
		sc.Bind(kv[0], kv[1], false)
	}

	expOpts := expand.Options{
		MaxDepth:            req.Options.MaxDepth,
		ContinueIndentation: req.Options.ContinueIndentation,
	}
	if req.Options.ScaffoldMissing && req.Templates == nil {
		expOpts.Scaffolder = dirScaffolder{dir: req.TemplatesDir}
	}
	loader := expand.NewLoader(fsys, req.TemplatesDir, res.Files, req.Options.Extension)
	exp := expand.New(loader, table, sc, reporter, expOpts)

	idx = ph.begin(PhaseExpand)
	x, err := exp.Expand(req.Root)
	ph.end(idx, PhaseExpand, "")
	if err != nil {
		log.Debug("expansion failed", "err", err)
		return res, err
	}

	if !req.Options.NoContract {
		idx = ph.begin(PhaseContract)
		filled, err := applyContract(x, exp, res.Files)
		ph.end(idx, PhaseContract, fmt.Sprintf("%d points", filled))
		if err != nil {
			return res, err
		}
	}

	idx = ph.begin(PhaseEmit)
	res.Output = emit.Render(x, reporter)
	emit.CheckBraces(res.Name, res.Output, reporter)
	ph.end(idx, PhaseEmit, "")

	if req.Cache != nil && !key.digest.IsZero() && !res.Bag.HasErrors() {
		if perr := req.Cache.Put(key.digest, resultToDiskPayload(res)); perr != nil {
			log.Warn("cache write failed", "err", perr)
		}
	}
	log.Debug("generated", "lines", countLines(res.Output), "diagnostics", res.Bag.Len())
	return res, nil
}

func buildTable(files *source.FileSet, req *Request, reporter diag.Reporter) (*params.Table, error) {
	table := req.Table
	if table == nil {
		if req.Descriptor == "" {
			table = params.Empty()
		} else {
			t, err := LoadTable(files, req.Descriptor, reporter, req.Options.Params)
			if err != nil {
				return t, err
			}
			table = t
		}
	}
	if len(req.Params) > 0 {
		table = table.Subset(req.Params, reporter, source.NoSpan)
	}
	return table, nil
}

// applyContract expands the built-in template of every fixed insertion
// point that has a marker but no fragments. It returns how many points it
// filled.
func applyContract(x *expand.Expansion, exp *expand.Expander, files *source.FileSet) (int, error) {
	loader := expand.NewLoader(contract.FS(), "builtin", files, contract.Extension)
	filled := 0
	for _, point := range contract.Points {
		if !x.HasMarker(point) || len(x.Points[point]) > 0 {
			continue
		}
		tpl, err := loader.Load(point)
		if err != nil {
			return filled, fmt.Errorf("built-in template %s: %w", point, err)
		}
		if err := exp.ExpandPoint(point, tpl); err != nil {
			return filled, err
		}
		filled++
	}
	return filled, nil
}

func countLines(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			n++
		}
	}
	return n
}
