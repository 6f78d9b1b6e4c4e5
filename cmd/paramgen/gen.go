package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"paramgen/internal/buildpipeline"
	"paramgen/internal/driver"
	"paramgen/internal/params"
	"paramgen/internal/project"
)

var genCmd = &cobra.Command{
	Use:   "gen [flags] ROOT",
	Short: "Expand one root template",
	Long: `Expand the root template ROOT against a parameter descriptor and print
the generated code, or write it with --out. ROOT is looked up in --templates
(default: the directory of ROOT) with or without the template extension.`,
	Args: cobra.ExactArgs(1),
	RunE: runGen,
}

func init() {
	genCmd.Flags().String("templates", "", "template directory")
	genCmd.Flags().String("descriptor", "", "parameter descriptor ($param$ lines or .csv)")
	genCmd.Flags().StringP("out", "o", "", "write the generated code to this file")
	genCmd.Flags().StringArray("var", nil, "bind a template variable (name=value, repeatable)")
	genCmd.Flags().String("subsystem", "", "subsystem name bound to s_name")
	genCmd.Flags().StringSlice("params", nil, "restrict the table to these parameters")
	genCmd.Flags().String("extension", project.DefaultExtension, "template file extension")
	genCmd.Flags().Int("max-depth", 0, "maximum inclusion depth (0=default)")
	genCmd.Flags().Bool("no-indent", false, "do not continue the directive indentation in included lines")
	genCmd.Flags().Bool("scaffold-missing", false, "create blank files for missing sub-templates")
	genCmd.Flags().Bool("no-contract", false, "leave empty fixed insertion points empty")
	genCmd.Flags().String("fallback-type", "", "data type for parameters without one (default uint32_t)")
	genCmd.Flags().Int("auto-increment", params.NoAutoIncrement, "number parameters from this id (-1 keeps explicit ids)")
	genCmd.Flags().Bool("cache", false, "reuse results from the disk cache")
	addReportFlags(genCmd)
}

func runGen(cmd *cobra.Command, args []string) error {
	report, err := readReportOptions(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	templatesDir, _ := flags.GetString("templates")
	descriptor, _ := flags.GetString("descriptor")
	outPath, _ := flags.GetString("out")
	varValues, _ := flags.GetStringArray("var")
	subsystem, _ := flags.GetString("subsystem")
	only, _ := flags.GetStringSlice("params")
	ext, _ := flags.GetString("extension")
	maxDepth, _ := flags.GetInt("max-depth")
	noIndent, _ := flags.GetBool("no-indent")
	scaffold, _ := flags.GetBool("scaffold-missing")
	noContract, _ := flags.GetBool("no-contract")
	fallback, _ := flags.GetString("fallback-type")
	autoInc, _ := flags.GetInt("auto-increment")
	useCache, _ := flags.GetBool("cache")
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
	if autoInc < params.NoAutoIncrement {
		return fmt.Errorf("--auto-increment must be -1 or more")
	}

	vars, err := parseVars(varValues)
	if err != nil {
		return err
	}

	root := args[0]
	if templatesDir == "" {
		templatesDir = filepath.Dir(root)
		root = filepath.Base(root)
	}

	req := &driver.Request{
		Name:         root,
		Root:         filepath.ToSlash(root),
		TemplatesDir: templatesDir,
		Descriptor:   descriptor,
		Params:       only,
		Subsystem:    subsystem,
		Vars:         vars,
		Options: driver.Options{
			Extension:           ext,
			MaxDepth:            maxDepth,
			ContinueIndentation: !noIndent,
			ScaffoldMissing:     scaffold,
			NoContract:          noContract,
			Params:              params.Options{FallbackType: fallback, AutoIncrementStart: autoInc},
			MaxDiagnostics:      maxDiagnostics,
			Timings:             showTimings,
		},
	}
	if wd, err := os.Getwd(); err == nil {
		req.BaseDir = wd
	}
	if useCache {
		if req.Cache, err = driver.OpenDiskCache("paramgen"); err != nil {
			return fmt.Errorf("failed to open disk cache: %w", err)
		}
	}

	res, genErr := driver.Generate(cmd.Context(), req)
	failed := false
	if res != nil {
		unit := buildpipeline.Unit{Name: res.Name, Files: res.Files, Bag: res.Bag}
		if failed, err = printUnits(cmd.ErrOrStderr(), []buildpipeline.Unit{unit}, report); err != nil {
			return err
		}
	}
	if genErr != nil {
		return fmt.Errorf("generation failed: %w", genErr)
	}
	if failed {
		return errors.New("generation produced errors")
	}

	if outPath == "" {
		_, err = fmt.Fprint(cmd.OutOrStdout(), res.Output)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(outPath), err)
	}
	if err := os.WriteFile(outPath, []byte(res.Output), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	if !quiet {
		cached := ""
		if res.Cached {
			cached = " (cached)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s%s\n", outPath, cached)
	}
	return nil
}
