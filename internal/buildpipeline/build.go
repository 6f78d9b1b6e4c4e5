// Package buildpipeline generates every file of a project manifest.
package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"paramgen/internal/diag"
	"paramgen/internal/driver"
	"paramgen/internal/params"
	"paramgen/internal/project"
	"paramgen/internal/source"
)

// Request configures a project build.
type Request struct {
	Manifest *project.Manifest
	// Jobs overrides generator.jobs; 0 keeps it, and 0 there means one
	// worker per CPU.
	Jobs int
	// DryRun generates everything but creates, clears and writes nothing.
	DryRun bool
	// Vars are bound after the manifest variables and win over them.
	Vars           [][2]string
	MaxDiagnostics int
	Timings        bool
	Cache          *driver.DiskCache
	Progress       ProgressSink
	Logger         *slog.Logger
}

// Unit is a set of diagnostics together with the files they point into.
type Unit struct {
	Name  string
	Files *source.FileSet
	Bag   *diag.Bag
}

// FileResult is the outcome for one [[files]] entry.
type FileResult struct {
	Entry  project.FileEntry
	Path   string // output path
	Result *driver.Result
	Err    error
	// Written is set when Path was (re)written; Skipped when an existing
	// file was kept because overwriting is disabled.
	Written bool
	Skipped bool
}

// Result collects everything a build produced.
type Result struct {
	// Project holds manifest, directory and global descriptor findings.
	Project Unit
	Files   []FileResult
	Timings Timings
}

// Units lists the project unit followed by one unit per file, in manifest
// order.
func (r *Result) Units() []Unit {
	out := []Unit{r.Project}
	for _, f := range r.Files {
		if f.Result == nil {
			continue
		}
		out = append(out, Unit{Name: f.Entry.Filename, Files: f.Result.Files, Bag: f.Result.Bag})
	}
	return out
}

// HasErrors reports whether any unit carries an error diagnostic.
func (r *Result) HasErrors() bool {
	for _, u := range r.Units() {
		if u.Bag != nil && u.Bag.HasErrors() {
			return true
		}
	}
	return false
}

// Build generates every file of req.Manifest. Files are generated
// concurrently, each in its own FileSet, Bag and scope. The returned error
// joins every structural failure and I/O error; warnings never fail a build.
func Build(ctx context.Context, req *Request) (Result, error) {
	var result Result
	if req == nil || req.Manifest == nil {
		return result, fmt.Errorf("missing build request")
	}
	m := req.Manifest
	g := m.Config.Generator
	log := req.Logger
	if log == nil {
		log = slog.Default()
	}

	names := make([]string, len(m.Config.Files))
	for i, f := range m.Config.Files {
		names[i] = f.Filename
	}
	emitQueued(req.Progress, names)

	prepStart := time.Now()
	emit(req.Progress, Event{Stage: StagePrepare, Status: StatusWorking})
	result.Project = Unit{
		Name:  filepath.Base(m.Path),
		Files: source.NewFileSetWithBase(m.Root),
		Bag:   diag.NewBag(maxDiagnostics(req.MaxDiagnostics)),
	}
	reporter := diag.BagReporter{Bag: result.Project.Bag}
	for _, key := range m.Unknown {
		diag.ReportWarning(reporter, diag.ProjUnknownKey, source.NoSpan,
			fmt.Sprintf("%s: unknown key %s is ignored", result.Project.Name, key)).Emit()
	}

	paramOpts := params.Options{FallbackType: g.FallbackType, AutoIncrementStart: g.AutoIncrementStart()}
	var table *params.Table
	if g.Parameters != "" {
		t, err := driver.LoadTable(result.Project.Files, m.Abs(g.Parameters), reporter, paramOpts)
		if err != nil {
			emit(req.Progress, Event{Stage: StagePrepare, Status: StatusError, Err: err})
			return result, err
		}
		table = t
	}

	if !req.DryRun {
		if err := prepareDirs(m, log); err != nil {
			diag.ReportError(reporter, diag.IOWriteFileError, source.NoSpan, err.Error()).Emit()
			emit(req.Progress, Event{Stage: StagePrepare, Status: StatusError, Err: err})
			return result, err
		}
	}
	result.Timings.Set(StagePrepare, time.Since(prepStart))
	emit(req.Progress, Event{Stage: StagePrepare, Status: StatusDone, Elapsed: time.Since(prepStart)})

	vars := append(m.Vars(), req.Vars...)
	opts := driver.Options{
		Extension:           g.TemplateExtension(),
		MaxDepth:            g.MaxDepth,
		ContinueIndentation: g.Indent(),
		ScaffoldMissing:     g.ScaffoldMissing && !req.DryRun,
		NoContract:          !g.Contract(),
		Params:              paramOpts,
		MaxDiagnostics:      req.MaxDiagnostics,
		Timings:             req.Timings,
	}

	jobs := req.Jobs
	if jobs <= 0 {
		jobs = g.Jobs
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	genStart := time.Now()
	emit(req.Progress, Event{Stage: StageGenerate, Status: StatusWorking})
	result.Files = make([]FileResult, len(m.Config.Files))
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(jobs)
	for i, entry := range m.Config.Files {
		fr := &result.Files[i]
		fr.Entry = entry
		fr.Path = filepath.Join(m.OutputDir(), filepath.FromSlash(entry.Filename))
		dreq := &driver.Request{
			Name:         entry.Filename,
			Root:         entry.Template(g.TemplateExtension()),
			TemplatesDir: m.Abs(g.TemplatesDir()),
			Params:       entry.Parameters,
			Subsystem:    m.Config.Subsystem.Name,
			Vars:         vars,
			BaseDir:      m.Root,
			Options:      opts,
			Cache:        req.Cache,
			Logger:       log,
		}
		if entry.ParametersFile != "" {
			dreq.Descriptor = m.Abs(entry.ParametersFile)
		} else {
			dreq.Table = table
		}
		grp.Go(func() error {
			generateFile(gctx, req, dreq, fr, g.Overwrite())
			// Failures are kept per file so the other files still build.
			return gctx.Err()
		})
	}
	waitErr := grp.Wait()
	elapsed := time.Since(genStart)
	result.Timings.Set(StageGenerate, elapsed)

	var errs []error
	for i := range result.Files {
		if err := result.Files[i].Err; err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", result.Files[i].Entry.Filename, err))
		}
	}
	if waitErr != nil && len(errs) == 0 {
		errs = append(errs, waitErr)
	}
	err := errors.Join(errs...)
	status := StatusDone
	if err != nil {
		status = StatusError
	}
	emit(req.Progress, Event{Stage: StageGenerate, Status: status, Err: err, Elapsed: elapsed})
	log.Info("build finished", "subsystem", m.Config.Subsystem.Name, "files", len(result.Files), "elapsed", elapsed, "failed", len(errs))
	return result, err
}

func generateFile(ctx context.Context, req *Request, dreq *driver.Request, fr *FileResult, overwrite bool) {
	file := fr.Entry.Filename
	start := time.Now()
	if err := ctx.Err(); err != nil {
		fr.Err = err
		emit(req.Progress, Event{File: file, Stage: StageTable, Status: StatusError, Err: err})
		return
	}

	dreq.Observer = func(ev driver.PhaseEvent) {
		if ev.Status != driver.PhaseStart {
			return
		}
		emit(req.Progress, Event{File: file, Stage: stageOf(ev.Name), Status: StatusWorking})
	}
	res, err := driver.Generate(ctx, dreq)
	fr.Result = res
	if err != nil {
		fr.Err = err
		emit(req.Progress, Event{File: file, Stage: StageExpand, Status: StatusError, Err: err, Elapsed: time.Since(start)})
		return
	}
	if req.DryRun {
		emit(req.Progress, Event{File: file, Stage: StageEmit, Status: StatusDone, Elapsed: time.Since(start)})
		return
	}

	emit(req.Progress, Event{File: file, Stage: StageWrite, Status: StatusWorking})
	written, err := writeOutput(fr.Path, res.Output, overwrite)
	reporter := diag.BagReporter{Bag: res.Bag}
	switch {
	case err != nil:
		fr.Err = err
		diag.ReportError(reporter, diag.IOWriteFileError, source.NoSpan, err.Error()).Emit()
		emit(req.Progress, Event{File: file, Stage: StageWrite, Status: StatusError, Err: err, Elapsed: time.Since(start)})
	case !written:
		fr.Skipped = true
		diag.ReportWarning(reporter, diag.IOWriteSkipped, source.NoSpan,
			fmt.Sprintf("%s already exists and overwrite_existing is off; file not written", fr.Path)).Emit()
		emit(req.Progress, Event{File: file, Stage: StageWrite, Status: StatusSkipped, Elapsed: time.Since(start)})
	default:
		fr.Written = true
		emit(req.Progress, Event{File: file, Stage: StageWrite, Status: StatusDone, Elapsed: time.Since(start)})
	}
}

func maxDiagnostics(n int) int {
	if n <= 0 {
		return driver.DefaultMaxDiagnostics
	}
	return n
}

func stageOf(phase string) Stage {
	switch phase {
	case driver.PhaseTable:
		return StageTable
	case driver.PhaseEmit:
		return StageEmit
	default:
		return StageExpand
	}
}

// prepareDirs creates the subsystem directory and its subdirectories,
// clearing them first when the manifest asks for it.
func prepareDirs(m *project.Manifest, log *slog.Logger) error {
	out := m.OutputDir()
	dirs := []string{out}
	for _, sub := range m.Config.Subsystem.Subdirectories {
		dirs = append(dirs, filepath.Join(out, filepath.FromSlash(sub)))
	}
	if m.Config.Generator.ClearExistingFolders {
		if err := checkClearable(m, out); err != nil {
			return err
		}
		log.Debug("clearing output directory", "dir", out)
		if err := os.RemoveAll(out); err != nil {
			return fmt.Errorf("failed to clear %s: %w", out, err)
		}
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// checkClearable refuses to clear out when it holds the project root, the
// manifest, the templates or a descriptor.
func checkClearable(m *project.Manifest, out string) error {
	g := m.Config.Generator
	inputs := []string{m.Root, m.Path, m.Abs(g.TemplatesDir()), m.Abs(g.Parameters)}
	for _, f := range m.Config.Files {
		inputs = append(inputs, m.Abs(f.ParametersFile))
	}
	for _, in := range inputs {
		if in != "" && isWithin(out, in) {
			return fmt.Errorf("refusing to clear %s: it contains project input %s", out, in)
		}
	}
	return nil
}

// isWithin reports whether path is dir or lies below it.
func isWithin(dir, path string) bool {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// writeOutput writes content to path. It returns false without writing
// when path exists and overwrite is off.
func writeOutput(path, content string, overwrite bool) (bool, error) {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return false, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}
