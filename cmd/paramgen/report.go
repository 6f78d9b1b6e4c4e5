package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"paramgen/internal/buildpipeline"
	"paramgen/internal/diag"
	"paramgen/internal/diagfmt"
)

// reportOptions controls how diagnostics are printed.
type reportOptions struct {
	format           string
	noWarnings       bool
	warningsAsErrors bool
	withNotes        bool
	pathMode         diagfmt.PathMode
	color            bool
}

func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().String("format", "pretty", "diagnostics format (pretty|short|json)")
	cmd.Flags().Bool("no-warnings", false, "drop warnings from the output")
	cmd.Flags().Bool("warnings-as-errors", false, "treat warnings as errors")
	cmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	cmd.Flags().String("paths", "auto", "path display (auto|absolute|relative|basename)")
}

func readReportOptions(cmd *cobra.Command) (reportOptions, error) {
	var opts reportOptions
	var err error
	if opts.format, err = cmd.Flags().GetString("format"); err != nil {
		return opts, fmt.Errorf("failed to get format flag: %w", err)
	}
	switch opts.format {
	case "pretty", "short", "json":
	default:
		return opts, fmt.Errorf("unknown format: %s", opts.format)
	}
	if opts.noWarnings, err = cmd.Flags().GetBool("no-warnings"); err != nil {
		return opts, fmt.Errorf("failed to get no-warnings flag: %w", err)
	}
	if opts.warningsAsErrors, err = cmd.Flags().GetBool("warnings-as-errors"); err != nil {
		return opts, fmt.Errorf("failed to get warnings-as-errors flag: %w", err)
	}
	if opts.noWarnings && opts.warningsAsErrors {
		return opts, fmt.Errorf("no-warnings and warnings-as-errors flags cannot be used together")
	}
	if opts.withNotes, err = cmd.Flags().GetBool("with-notes"); err != nil {
		return opts, fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	paths, err := cmd.Flags().GetString("paths")
	if err != nil {
		return opts, fmt.Errorf("failed to get paths flag: %w", err)
	}
	var ok bool
	if opts.pathMode, ok = diagfmt.ParsePathMode(paths); !ok {
		return opts, fmt.Errorf("unknown paths value: %s", paths)
	}
	if opts.color, err = useColor(cmd); err != nil {
		return opts, err
	}
	return opts, nil
}

// applyWarningPolicy drops or promotes warnings in bag. Info diagnostics
// are left alone.
func applyWarningPolicy(bag *diag.Bag, opts reportOptions) {
	if bag == nil {
		return
	}
	switch {
	case opts.noWarnings:
		bag.Filter(func(d diag.Diagnostic) bool { return d.Severity != diag.SevWarning })
	case opts.warningsAsErrors:
		bag.Transform(func(d diag.Diagnostic) diag.Diagnostic {
			if d.Severity == diag.SevWarning {
				d.Severity = diag.SevError
			}
			return d
		})
	}
}

// printUnits writes the diagnostics of every unit that has any. It returns
// true when an error diagnostic remains after the warning policy.
func printUnits(out io.Writer, units []buildpipeline.Unit, opts reportOptions) (bool, error) {
	failed := false
	for _, u := range units {
		applyWarningPolicy(u.Bag, opts)
		if u.Bag != nil {
			u.Bag.Sort()
			if u.Bag.HasErrors() {
				failed = true
			}
		}
	}

	switch opts.format {
	case "json":
		output := make(map[string]diagfmt.DiagnosticsOutput, len(units))
		for _, u := range units {
			if u.Bag == nil {
				continue
			}
			output[u.Name] = diagfmt.BuildDiagnosticsOutput(u.Bag, u.Files, diagfmt.JSONOpts{
				IncludePositions: true,
				PathMode:         opts.pathMode,
				IncludeNotes:     opts.withNotes,
			})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(output); err != nil {
			return failed, fmt.Errorf("failed to format diagnostics: %w", err)
		}
	case "short":
		for _, u := range units {
			if u.Bag == nil || u.Bag.Len() == 0 {
				continue
			}
			if err := diagfmt.Short(out, u.Bag, u.Files, opts.withNotes); err != nil {
				return failed, err
			}
		}
	default:
		first := true
		for _, u := range units {
			if u.Bag == nil || u.Bag.Len() == 0 {
				continue
			}
			if !first {
				fmt.Fprintln(out)
			}
			first = false
			fmt.Fprintf(out, "== %s ==\n", u.Name)
			diagfmt.Pretty(out, u.Bag, u.Files, diagfmt.PrettyOpts{
				Color:     opts.color,
				PathMode:  opts.pathMode,
				ShowNotes: opts.withNotes,
				Excerpt:   true,
			})
		}
	}
	return failed, nil
}
