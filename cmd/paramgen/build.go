package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"paramgen/internal/buildpipeline"
	"paramgen/internal/driver"
	"paramgen/internal/project"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] [DIR]",
	Short: "Generate every file of a paramgen project",
	Long: `Build the project whose manifest (paramgen.toml or paramgen.yaml) is found
in DIR or one of its parents. DIR defaults to the current directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProject(cmd, args, false)
	},
}

var diagCmd = &cobra.Command{
	Use:   "diag [flags] [DIR]",
	Short: "Check a paramgen project without writing files",
	Long: `Run the whole project build in memory and print its diagnostics. Nothing
is created, cleared or written.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProject(cmd, args, true)
	},
}

func init() {
	for _, c := range []*cobra.Command{buildCmd, diagCmd} {
		c.Flags().Int("jobs", 0, "max parallel files (0=manifest or auto)")
		c.Flags().StringArray("var", nil, "bind a template variable (name=value, repeatable)")
		c.Flags().Bool("cache", false, "reuse results from the disk cache")
		addReportFlags(c)
	}
	buildCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
}

func runProject(cmd *cobra.Command, args []string, dryRun bool) error {
	report, err := readReportOptions(cmd)
	if err != nil {
		return err
	}
	startDir := "."
	if len(args) == 1 {
		startDir = args[0]
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	varValues, err := cmd.Flags().GetStringArray("var")
	if err != nil {
		return fmt.Errorf("failed to get var flag: %w", err)
	}
	vars, err := parseVars(varValues)
	if err != nil {
		return err
	}
	useCache, err := cmd.Flags().GetBool("cache")
	if err != nil {
		return fmt.Errorf("failed to get cache flag: %w", err)
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}

	manifest, ok, err := project.LoadManifest(startDir)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no paramgen.toml or paramgen.yaml found in %s or its parents\nrun `paramgen init` to create one", startDir)
	}

	req := &buildpipeline.Request{
		Manifest:       manifest,
		Jobs:           jobs,
		DryRun:         dryRun,
		Vars:           vars,
		MaxDiagnostics: maxDiagnostics,
		Timings:        showTimings,
	}
	if useCache || manifest.Config.Generator.Cache {
		if req.Cache, err = driver.OpenDiskCache("paramgen"); err != nil {
			return fmt.Errorf("failed to open disk cache: %w", err)
		}
	}

	tui := false
	if !dryRun && !quiet {
		uiFlag, err := cmd.Flags().GetString("ui")
		if err != nil {
			return fmt.Errorf("failed to get ui flag: %w", err)
		}
		if tui, err = progressUI(uiFlag, isTerminal(os.Stdout)); err != nil {
			return err
		}
	}

	var result buildpipeline.Result
	var buildErr error
	if tui {
		files := make([]string, len(manifest.Config.Files))
		for i, f := range manifest.Config.Files {
			files[i] = f.Filename
		}
		title := fmt.Sprintf("building %s", manifest.Config.Subsystem.Name)
		result, buildErr = runBuildWithUI(cmd.Context(), title, files, req)
	} else {
		result, buildErr = buildpipeline.Build(cmd.Context(), req)
	}

	failed, err := printUnits(cmd.ErrOrStderr(), result.Units(), report)
	if err != nil {
		return err
	}
	if !quiet && !dryRun {
		printWritten(cmd, result)
	}
	if showTimings {
		printStageTimings(cmd.ErrOrStderr(), result.Timings)
	}
	if buildErr != nil {
		return fmt.Errorf("build failed: %w", buildErr)
	}
	if failed {
		return errors.New("build produced errors")
	}
	return nil
}

// progressUI decides whether the build runs under the progress view. In
// auto mode it follows whether stdout is a terminal.
func progressUI(flag string, terminal bool) (bool, error) {
	switch strings.TrimSpace(strings.ToLower(flag)) {
	case "", "auto":
		return terminal, nil
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid --ui value %q (expected auto|on|off)", flag)
	}
}

func printWritten(cmd *cobra.Command, result buildpipeline.Result) {
	out := cmd.OutOrStdout()
	for _, f := range result.Files {
		switch {
		case f.Written:
			cached := ""
			if f.Result != nil && f.Result.Cached {
				cached = " (cached)"
			}
			fmt.Fprintf(out, "wrote %s%s\n", displayPath(f.Path), cached)
		case f.Skipped:
			fmt.Fprintf(out, "kept  %s\n", displayPath(f.Path))
		}
	}
}

func displayPath(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	return relOrSelf(wd, path)
}

func relOrSelf(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
