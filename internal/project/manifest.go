package project

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"paramgen/internal/diag"
)

// Defaults applied to options the manifest leaves out.
const (
	DefaultTemplatesDir = "templates"
	DefaultExtension    = ".cgen_template"
)

// Format is the encoding of a manifest file.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatOf picks the manifest format from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%s: unsupported manifest format", path)
	}
}

// Manifest is a loaded and validated project manifest.
type Manifest struct {
	Path   string
	Root   string
	Format Format
	Config Config
	// Unknown lists keys present in the file that no option reads.
	Unknown []string
}

// Config mirrors the manifest file.
type Config struct {
	Subsystem Subsystem      `toml:"subsystem" yaml:"subsystem"`
	Generator Generator      `toml:"generator" yaml:"generator"`
	Variables map[string]any `toml:"variables,omitempty" yaml:"variables,omitempty"`
	Files     []FileEntry    `toml:"files" yaml:"files"`
}

// Subsystem names the output directory tree.
type Subsystem struct {
	Name           string   `toml:"name" yaml:"name"`
	Subdirectories []string `toml:"subdirectories,omitempty" yaml:"subdirectories,omitempty"`
}

// Generator holds the generation options. Pointer fields are optional and
// read through the accessor methods, which apply the defaults.
type Generator struct {
	Templates            string `toml:"templates,omitempty" yaml:"templates,omitempty"`
	Extension            string `toml:"extension,omitempty" yaml:"extension,omitempty"`
	Parameters           string `toml:"parameters,omitempty" yaml:"parameters,omitempty"`
	OverwriteExisting    *bool  `toml:"overwrite_existing" yaml:"overwrite_existing,omitempty"`
	ClearExistingFolders bool   `toml:"clear_existing_folders,omitempty" yaml:"clear_existing_folders,omitempty"`
	ContinueIndentation  *bool  `toml:"continue_indentation" yaml:"continue_indentation,omitempty"`
	AutoIncrementStartID *int   `toml:"auto_increment_start_id" yaml:"auto_increment_start_id,omitempty"`
	MaxDepth             int    `toml:"max_depth,omitempty" yaml:"max_depth,omitempty"`
	FallbackType         string `toml:"fallback_type,omitempty" yaml:"fallback_type,omitempty"`
	ScaffoldMissing      bool   `toml:"scaffold_missing,omitempty" yaml:"scaffold_missing,omitempty"`
	BuiltinContract      *bool  `toml:"builtin_contract" yaml:"builtin_contract,omitempty"`
	Jobs                 int    `toml:"jobs,omitempty" yaml:"jobs,omitempty"`
	Cache                bool   `toml:"cache,omitempty" yaml:"cache,omitempty"`
}

// FileEntry describes one generated file.
type FileEntry struct {
	Filename       string   `toml:"filename" yaml:"filename"`
	BaseTemplate   string   `toml:"base_template,omitempty" yaml:"base_template,omitempty"`
	ParametersFile string   `toml:"parameters_file,omitempty" yaml:"parameters_file,omitempty"`
	Parameters     []string `toml:"parameters,omitempty" yaml:"parameters,omitempty"`
}

func (g Generator) TemplatesDir() string {
	if strings.TrimSpace(g.Templates) == "" {
		return DefaultTemplatesDir
	}
	return g.Templates
}

func (g Generator) TemplateExtension() string {
	if g.Extension == "" {
		return DefaultExtension
	}
	if !strings.HasPrefix(g.Extension, ".") {
		return "." + g.Extension
	}
	return g.Extension
}

func (g Generator) Overwrite() bool {
	return g.OverwriteExisting == nil || *g.OverwriteExisting
}

func (g Generator) Indent() bool {
	return g.ContinueIndentation == nil || *g.ContinueIndentation
}

// AutoIncrementStart returns -1 when ids are not renumbered.
func (g Generator) AutoIncrementStart() int {
	if g.AutoIncrementStartID == nil {
		return -1
	}
	return *g.AutoIncrementStartID
}

func (g Generator) Contract() bool {
	return g.BuiltinContract == nil || *g.BuiltinContract
}

// Template returns the base template of the entry, the file name plus ext
// when none is given.
func (f FileEntry) Template(ext string) string {
	if strings.TrimSpace(f.BaseTemplate) != "" {
		return f.BaseTemplate
	}
	return f.Filename + ext
}

// ManifestError is a validation failure at one manifest key.
type ManifestError struct {
	Path string
	Key  string
	Code diag.Code
	Msg  string
}

func (e *ManifestError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Path, e.Key, e.Msg)
}

// LoadManifest locates the manifest above startDir and loads it. ok is false
// when there is none.
func LoadManifest(startDir string) (m *Manifest, ok bool, err error) {
	path, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	m, err = Load(path)
	return m, true, err
}

// Load decodes and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	// #nosec G304 -- path is provided by the caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	m.Path = abs
	m.Root = filepath.Dir(abs)
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Decode parses manifest data without validating it.
func Decode(data []byte, format Format) (*Manifest, error) {
	m := &Manifest{Format: format}
	switch format {
	case FormatTOML:
		meta, err := toml.Decode(string(data), &m.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
		m.Unknown = unknownTOMLKeys(meta.Undecoded())
	case FormatYAML:
		var root yaml.Node
		if err := yaml.Unmarshal(data, &root); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		if len(root.Content) > 0 {
			if err := root.Decode(&m.Config); err != nil {
				return nil, fmt.Errorf("failed to decode YAML: %w", err)
			}
			m.Unknown = unknownYAMLKeys(root.Content[0])
		}
	default:
		return nil, fmt.Errorf("unsupported manifest format %q", format)
	}
	sort.Strings(m.Unknown)
	return m, nil
}

var knownKeys = map[string][]string{
	"":          {"subsystem", "generator", "variables", "files"},
	"subsystem": {"name", "subdirectories"},
	"generator": {
		"templates", "extension", "parameters", "overwrite_existing",
		"clear_existing_folders", "continue_indentation", "auto_increment_start_id",
		"max_depth", "fallback_type", "scaffold_missing", "builtin_contract", "jobs", "cache",
	},
	"files": {"filename", "base_template", "parameters_file", "parameters"},
}

// unknownTOMLKeys lists undecoded keys, skipping variables and keys below
// an unknown table that is already listed.
func unknownTOMLKeys(keys []toml.Key) []string {
	var out []string
	listed := map[string]bool{}
	for _, k := range keys {
		if len(k) == 0 || k[0] == "variables" {
			continue
		}
		covered := false
		for i := 1; i <= len(k); i++ {
			if listed[k[:i].String()] {
				covered = true
				break
			}
		}
		if covered {
			continue
		}
		listed[k.String()] = true
		out = append(out, k.String())
	}
	return out
}

func unknownYAMLKeys(doc *yaml.Node) []string {
	var out []string
	var visit func(section, prefix string, n *yaml.Node)
	visit = func(section, prefix string, n *yaml.Node) {
		if n.Kind != yaml.MappingNode {
			return
		}
		allowed := knownKeys[section]
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			val := n.Content[i+1]
			full := key
			if prefix != "" {
				full = prefix + "." + key
			}
			if !contains(allowed, key) {
				out = append(out, full)
				continue
			}
			switch {
			case section == "" && key == "files" && val.Kind == yaml.SequenceNode:
				for _, item := range val.Content {
					visit("files", "files", item)
				}
			case section == "" && (key == "subsystem" || key == "generator"):
				visit(key, key, val)
			}
		}
	}
	visit("", "", doc)
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks the options and file entries.
func (m *Manifest) Validate() error {
	c := &m.Config
	fail := func(key string, code diag.Code, format string, args ...any) error {
		return &ManifestError{Path: m.Path, Key: key, Code: code, Msg: fmt.Sprintf(format, args...)}
	}

	if strings.TrimSpace(c.Subsystem.Name) == "" {
		return fail("subsystem.name", diag.ProjInvalidEntry, "missing subsystem name")
	}
	if err := checkRelative(c.Subsystem.Name); err != nil {
		return fail("subsystem.name", diag.ProjInvalidEntry, "%v", err)
	}
	if filepath.Clean(c.Subsystem.Name) == "." {
		return fail("subsystem.name", diag.ProjInvalidEntry, "must name a directory below the project root")
	}
	for i, dir := range c.Subsystem.Subdirectories {
		if err := checkRelative(dir); err != nil {
			return fail(fmt.Sprintf("subsystem.subdirectories[%d]", i), diag.ProjInvalidEntry, "%v", err)
		}
	}

	g := c.Generator
	if g.Jobs < 0 {
		return fail("generator.jobs", diag.ProjInvalidEntry, "must not be negative")
	}
	if g.MaxDepth < 0 {
		return fail("generator.max_depth", diag.ProjInvalidEntry, "must not be negative")
	}
	if g.AutoIncrementStart() < -1 {
		return fail("generator.auto_increment_start_id", diag.ProjInvalidEntry, "must be -1 or a non-negative id")
	}

	for name := range c.Variables {
		if !namePattern.MatchString(name) {
			return fail("variables."+name, diag.ProjInvalidEntry, "not a valid variable name")
		}
	}

	if len(c.Files) == 0 {
		return fail("files", diag.ProjInvalidEntry, "no files to generate")
	}
	seen := make(map[string]int, len(c.Files))
	for i, f := range c.Files {
		key := fmt.Sprintf("files[%d]", i)
		if strings.TrimSpace(f.Filename) == "" {
			return fail(key+".filename", diag.ProjInvalidEntry, "missing file name")
		}
		if err := checkRelative(f.Filename); err != nil {
			return fail(key+".filename", diag.ProjInvalidEntry, "%v", err)
		}
		clean := filepath.ToSlash(filepath.Clean(f.Filename))
		if prev, ok := seen[clean]; ok {
			return fail(key+".filename", diag.ProjDuplicateFile, "%q is already generated by files[%d]", f.Filename, prev)
		}
		seen[clean] = i
		if len(f.Parameters) > 0 && f.ParametersFile == "" && g.Parameters == "" {
			return fail(key+".parameters", diag.ProjInvalidEntry, "parameter names need generator.parameters or parameters_file")
		}
	}
	return nil
}

var errNotRelative = errors.New("must be a relative path inside the project")

func checkRelative(p string) error {
	if filepath.IsAbs(p) {
		return errNotRelative
	}
	clean := filepath.ToSlash(filepath.Clean(p))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return errNotRelative
	}
	return nil
}

// Abs resolves a manifest-relative path.
func (m *Manifest) Abs(rel string) string {
	if rel == "" || filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(m.Root, filepath.FromSlash(rel))
}

// OutputDir is the subsystem directory that receives generated files.
func (m *Manifest) OutputDir() string {
	return m.Abs(m.Config.Subsystem.Name)
}

// Vars returns the manifest variables as strings, sorted by name.
func (m *Manifest) Vars() [][2]string {
	names := make([]string, 0, len(m.Config.Variables))
	for n := range m.Config.Variables {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([][2]string, 0, len(names))
	for _, n := range names {
		out = append(out, [2]string{n, fmt.Sprint(m.Config.Variables[n])})
	}
	return out
}

// Encode writes c in the given format.
func (c Config) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatTOML:
		return toml.NewEncoder(w).Encode(c)
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
		_, err := w.Write(buf.Bytes())
		return err
	default:
		return fmt.Errorf("unsupported manifest format %q", format)
	}
}
