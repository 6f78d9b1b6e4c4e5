package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/spf13/cobra"

	"paramgen/internal/project"
)

var initCmd = &cobra.Command{
	Use:   "init [path|name]",
	Short: "Initialize a new paramgen project",
	Long: `Initialize a new paramgen project by creating a manifest, a parameter
descriptor and a header/source template pair. If [path|name] is omitted, the
current directory is initialized. A non-existing name is created.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().String("format", "toml", "manifest format (toml|yaml)")
	initCmd.Flags().String("subsystem", "", "subsystem name (default: derived from the directory)")
}

const (
	initDescriptor = "params.desc"
	initHeader     = "parameters.h"
	initSource     = "parameters.c"
)

func runInit(cmd *cobra.Command, args []string) error {
	formatFlag, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	var manifestName string
	format := project.Format(formatFlag)
	switch format {
	case project.FormatTOML:
		manifestName = "paramgen.toml"
	case project.FormatYAML:
		manifestName = "paramgen.yaml"
	default:
		return fmt.Errorf("unknown manifest format %q (expected toml|yaml)", formatFlag)
	}
	subsystem, err := cmd.Flags().GetString("subsystem")
	if err != nil {
		return fmt.Errorf("failed to get subsystem flag: %w", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	target := wd
	if len(args) == 1 && args[0] != "." {
		target = args[0]
		if !filepath.IsAbs(target) {
			target = filepath.Join(wd, target)
		}
	}

	if st, err := os.Stat(target); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err = os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", target, err)
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	for _, name := range project.ManifestNames {
		if _, err := os.Stat(filepath.Join(target, name)); err == nil {
			return fmt.Errorf("project already initialized: %s exists", filepath.Join(target, name))
		}
	}

	if subsystem == "" {
		subsystem = subsystemName(filepath.Base(target))
	}
	cfg := defaultConfig(subsystem)

	var created []string
	write := func(rel string, content []byte) error {
		path := filepath.Join(target, filepath.FromSlash(rel))
		if _, err := os.Stat(path); err == nil {
			created = append(created, rel+" (existing)")
			return nil
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", rel, err)
		}
		created = append(created, rel)
		return nil
	}

	var manifest strings.Builder
	manifest.WriteString("# paramgen project manifest\n")
	if format == project.FormatTOML {
		manifest.WriteString("\n")
	}
	if err := cfg.Encode(&manifest, format); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := write(manifestName, []byte(manifest.String())); err != nil {
		return err
	}
	if err := write(initDescriptor, []byte(defaultDescriptor(subsystem))); err != nil {
		return err
	}
	tmpl := project.DefaultTemplatesDir + "/"
	if err := write(tmpl+initHeader+project.DefaultExtension, []byte(defaultHeaderTemplate)); err != nil {
		return err
	}
	if err := write(tmpl+initSource+project.DefaultExtension, []byte(defaultSourceTemplate)); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Initialized paramgen project %s in %s\n", subsystem, relOrSelf(wd, target))
	for _, c := range created {
		fmt.Fprintf(out, "  - %s\n", c)
	}
	return nil
}

// subsystemName derives an upper-case C identifier from a directory name.
func subsystemName(dir string) string {
	var b strings.Builder
	for _, r := range dir {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(unicode.ToUpper(r))
		case r == '-' || r == '_' || r == ' ' || r == '.':
			b.WriteByte('_')
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" || unicode.IsDigit(rune(name[0])) {
		return "SUBSYS"
	}
	return name
}

func defaultConfig(subsystem string) project.Config {
	overwrite := true
	indent := true
	start := 0
	return project.Config{
		Subsystem: project.Subsystem{
			Name:           subsystem,
			Subdirectories: []string{"inc", "src"},
		},
		Generator: project.Generator{
			Templates:            project.DefaultTemplatesDir,
			Extension:            project.DefaultExtension,
			Parameters:           initDescriptor,
			OverwriteExisting:    &overwrite,
			ContinueIndentation:  &indent,
			AutoIncrementStartID: &start,
		},
		Files: []project.FileEntry{
			{Filename: "inc/" + initHeader, BaseTemplate: initHeader},
			{Filename: "src/" + initSource, BaseTemplate: initSource},
		},
	}
}

func defaultDescriptor(subsystem string) string {
	prefix := strings.ToLower(subsystem)
	return fmt.Sprintf(`//< $param$ <identifier> [default] [type] [id] [tags]
$param$ %[1]s_enable_param_id 1 uint8_t default [config]
$param$ %[1]s_timeout_param_id_32 1000 default default [config|timing]
`, prefix)
}

const defaultHeaderTemplate = `//< Parameter header
#ifndef $s_name$_PARAMETERS_H
#define $s_name$_PARAMETERS_H

#include <stdint.h>

typedef enum {
	$p-line$ [all] p_enumName = p_hexId,
} $s_name$_param_id_t;

int $s_name$_getParam(uint16_t id, void *value, uint8_t *buf, uint8_t *size);
int $s_name$_setParam(uint16_t id, void *value);
void $s_name$_initParams(void);

#endif
`

const defaultSourceTemplate = `//< Parameter storage and accessors
#include "parameters.h"

static struct {
	$mem_pool$
} mem_pool;

void $s_name$_initParams(void)
{
	$initParams$
}

int $s_name$_getParam(uint16_t id, void *value, uint8_t *buf, uint8_t *size)
{
	switch (id) {
	$getParams$
	default:
		return -1;
	}
	return 0;
}

int $s_name$_setParam(uint16_t id, void *value)
{
	switch (id) {
	$setParams$
	default:
		return -1;
	}
	return 0;
}
`
